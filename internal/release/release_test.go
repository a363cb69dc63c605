package release_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/internal/gitlab"
	"github.com/smykla-skalski/patchlaunch/internal/release"
)

type fakeLister struct {
	calls    atomic.Int32
	gate     chan struct{}
	releases []gitlab.Release
	err      error
}

func (f *fakeLister) ListReleases(context.Context) ([]gitlab.Release, error) {
	f.calls.Add(1)

	if f.gate != nil {
		<-f.gate
	}

	return f.releases, f.err
}

func sampleReleases() []gitlab.Release {
	return []gitlab.Release{
		{
			TagName:  "v2.0.1",
			CommitID: "abcdef0123456789",
			Sources: []gitlab.Source{
				{Format: "zip", URL: "https://gitlab.example.com/game-v2.0.1.zip"},
				{Format: "tar.gz", URL: "https://gitlab.example.com/game-v2.0.1.tar.gz"},
			},
		},
		{
			TagName:  "v2.0.0",
			CommitID: "0000000000000000",
			Sources:  []gitlab.Source{{Format: "zip", URL: "https://gitlab.example.com/old.zip"}},
		},
	}
}

var _ = Describe("Resolver", func() {
	var (
		ctx    context.Context
		lister *fakeLister
		res    *release.Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		lister = &fakeLister{releases: sampleReleases()}
		res = release.NewResolver(lister)
	})

	It("takes the first release as latest", func() {
		rel, err := res.Resolve(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(rel).To(Equal(release.Release{
			DownloadLink: "https://gitlab.example.com/game-v2.0.1.zip",
			HeadRevision: "abcdef0123456789",
			Tag:          "v2.0.1",
		}))
	})

	It("resolves the latest release when older ones are malformed", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[
  {"tag_name": "v2", "commit": {"id": "abc123"},
   "assets": {"sources": [{"format": "zip", "url": "https://gitlab.example.com/game-v2.zip"}]}},
  {"tag_name": "v1"}
]`))
		}))
		DeferCleanup(server.Close)

		client := gitlab.NewClient("group/game",
			gitlab.WithHTTPClient(server.Client()),
			gitlab.WithBaseURL(server.URL+"/api/v4/"),
		)

		rel, err := release.NewResolver(client).Resolve(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rel.Tag).To(Equal("v2"))
		Expect(rel.HeadRevision).To(Equal(release.Revision("abc123")))
	})

	It("caches the result until invalidated", func() {
		_, err := res.Resolve(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = res.Resolve(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(lister.calls.Load()).To(Equal(int32(1)))

		cached, ok := res.Cached()
		Expect(ok).To(BeTrue())
		Expect(cached.Tag).To(Equal("v2.0.1"))

		res.Invalidate()
		_, ok = res.Cached()
		Expect(ok).To(BeFalse())

		_, err = res.Resolve(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(lister.calls.Load()).To(Equal(int32(2)))
	})

	It("shares one request between concurrent callers", func() {
		lister.gate = make(chan struct{})

		var wg sync.WaitGroup

		results := make([]release.Release, 5)

		for i := range results {
			wg.Add(1)

			go func() {
				defer GinkgoRecover()
				defer wg.Done()

				rel, err := res.Resolve(ctx)
				Expect(err).NotTo(HaveOccurred())
				results[i] = rel
			}()
		}

		Eventually(lister.calls.Load).Should(Equal(int32(1)))
		close(lister.gate)
		wg.Wait()

		Expect(lister.calls.Load()).To(Equal(int32(1)))
		for _, rel := range results {
			Expect(rel.Tag).To(Equal("v2.0.1"))
		}
	})

	It("does not cache failures", func() {
		lister.err = errors.Mark(errors.New("connection refused"), gitlab.ErrNetwork)

		_, err := res.Resolve(ctx)
		Expect(errors.Is(err, release.ErrReleaseResolution)).To(BeTrue())
		Expect(errors.Is(err, gitlab.ErrNetwork)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("connection refused"))

		lister.err = nil
		_, err = res.Resolve(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(lister.calls.Load()).To(Equal(int32(2)))
	})

	It("reports an empty release list", func() {
		lister.releases = nil

		_, err := res.Resolve(ctx)
		Expect(errors.Is(err, release.ErrNoReleases)).To(BeTrue())
		Expect(errors.Is(err, release.ErrReleaseResolution)).To(BeTrue())
	})

	It("requires a source archive on the latest release", func() {
		lister.releases[0].Sources = nil

		_, err := res.Resolve(ctx)
		Expect(errors.Is(err, release.ErrReleaseResolution)).To(BeTrue())
		Expect(errors.Is(err, gitlab.ErrAPIFormat)).To(BeTrue())
	})
})

var _ = Describe("Release", func() {
	It("parses semantic version tags", func() {
		v, err := release.Release{Tag: "v1.2.10"}.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Minor()).To(Equal(uint64(2)))
	})

	It("rejects non-semver tags", func() {
		_, err := release.Release{Tag: "spring-patch"}.Version()
		Expect(err).To(HaveOccurred())
	})

	It("compares tags", func() {
		Expect(release.Release{Tag: "v1.2.0"}.IsOlderThan("v1.10.0")).To(BeTrue())
		Expect(release.Release{Tag: "v1.10.0"}.IsOlderThan("v1.2.0")).To(BeFalse())
		Expect(release.Release{Tag: "latest"}.IsOlderThan("v1.2.0")).To(BeFalse())
	})

	It("shortens revisions", func() {
		Expect(release.Revision("abcdef0123456789").Short()).To(Equal("abcdef01"))
		Expect(release.Revision("abc").Short()).To(Equal("abc"))
	})
})
