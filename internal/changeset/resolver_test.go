package changeset_test

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/gitlab"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
)

type diffCall struct {
	sha  string
	page int
}

type fakeAPI struct {
	commits      []gitlab.Commit
	pages        map[string][][]gitlab.Diff
	compareCalls int
	diffCalls    []diffCall
	compareErr   error
	diffErr      map[diffCall]error
}

func (f *fakeAPI) Compare(context.Context, string, string) ([]gitlab.Commit, error) {
	f.compareCalls++

	return f.commits, f.compareErr
}

func (f *fakeAPI) CommitDiff(_ context.Context, sha string, page int) ([]gitlab.Diff, error) {
	call := diffCall{sha: sha, page: page}
	f.diffCalls = append(f.diffCalls, call)

	if err := f.diffErr[call]; err != nil {
		return nil, err
	}

	pages := f.pages[sha]
	if page-1 < len(pages) {
		return pages[page-1], nil
	}

	return nil, nil
}

var _ = Describe("Resolver", func() {
	var (
		ctx context.Context
		api *fakeAPI
		rec *progress.Recorder
		res *changeset.Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = progress.NewRecorder()
		api = &fakeAPI{
			commits: []gitlab.Commit{{ID: "c1", ShortID: "c1"}, {ID: "c2", ShortID: "c2"}},
			pages: map[string][][]gitlab.Diff{
				"c1": {
					{{OldPath: "a", NewPath: "a", NewFile: true}},
					{{OldPath: "b", NewPath: "c", RenamedFile: true}},
				},
				"c2": {
					{{OldPath: "a", NewPath: "a", DeletedFile: true}},
				},
			},
		}
		res = changeset.NewResolver(api)
	})

	It("returns an empty result for equal revisions without network access", func() {
		result, err := res.Compare(ctx, "same", "same", rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Empty()).To(BeTrue())
		Expect(api.compareCalls).To(BeZero())
		Expect(api.diffCalls).To(BeEmpty())
	})

	It("folds every page of every commit in order", func() {
		result, err := res.Compare(ctx, "old", "new", rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.ToFetch).To(Equal([]string{"c"}))
		Expect(result.ToDelete).To(Equal([]string{"a", "b"}))
	})

	It("stops paging at the first empty page", func() {
		_, err := res.Compare(ctx, "old", "new", rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(api.diffCalls).To(Equal([]diffCall{
			{"c1", 1}, {"c1", 2}, {"c1", 3},
			{"c2", 1}, {"c2", 2},
		}))
	})

	It("reports the comparing phase and per-commit percentages", func() {
		_, err := res.Compare(ctx, "old", "new", rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.Phases()).To(Equal([]progress.Phase{progress.PhaseComparing}))
		Expect(rec.Percents()).To(Equal([]float64{50, 100}))
	})

	It("reports completion when there are no commits", func() {
		api.commits = nil

		result, err := res.Compare(ctx, "old", "new", rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Empty()).To(BeTrue())
		Expect(rec.Percents()).To(Equal([]float64{100}))
	})

	It("aborts without a partial result when compare fails", func() {
		api.compareErr = errors.Mark(errors.New("boom"), gitlab.ErrNetwork)

		result, err := res.Compare(ctx, "old", "new", rec)
		Expect(errors.Is(err, gitlab.ErrNetwork)).To(BeTrue())
		Expect(result.Empty()).To(BeTrue())
	})

	It("aborts without a partial result when a diff page fails", func() {
		api.diffErr = map[diffCall]error{
			{"c2", 1}: errors.Mark(fmt.Errorf("HTTP 500"), gitlab.ErrNetwork),
		}

		result, err := res.Compare(ctx, "old", "new", rec)
		Expect(errors.Is(err, gitlab.ErrNetwork)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("c2"))
		Expect(result.ToFetch).To(BeNil())
		Expect(result.ToDelete).To(BeNil())
	})

	It("accepts a nil sink", func() {
		_, err := res.Compare(ctx, "old", "new", nil)
		Expect(err).NotTo(HaveOccurred())
	})
})
