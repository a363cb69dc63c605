package updater_test

import (
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/payload"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/internal/updater"
	pkgconfig "github.com/smykla-skalski/patchlaunch/pkg/config"
)

var _ = Describe("SourceFactory", func() {
	rel := release.Release{DownloadLink: "https://example.com/a.zip", HeadRevision: "r", Tag: "v1"}

	It("builds an HTTP archive source by default", func() {
		f := &updater.SourceFactory{}

		src, err := f.Full(rel, "/tmp/Game.zip")

		Expect(err).NotTo(HaveOccurred())
		Expect(src).To(BeAssignableToTypeOf(&payload.ArchiveHTTPSource{}))
	})

	It("builds a cloud source from the configured link", func() {
		f := &updater.SourceFactory{
			Kind:  pkgconfig.SourceCloud,
			Cloud: &pkgconfig.CloudConfig{Link: "gs://bucket/Game.zip"},
		}

		src, err := f.Full(rel, "/tmp/Game.zip")

		Expect(err).NotTo(HaveOccurred())
		Expect(src).To(BeAssignableToTypeOf(&payload.CloudObjectSource{}))
	})

	It("requires a cloud link", func() {
		f := &updater.SourceFactory{Kind: pkgconfig.SourceCloud}

		_, err := f.Full(rel, "/tmp/Game.zip")

		Expect(errors.Is(err, payload.ErrUnsupportedLink)).To(BeTrue())
	})

	It("rejects unknown source kinds", func() {
		f := &updater.SourceFactory{Kind: "torrent"}

		_, err := f.Full(rel, "/tmp/Game.zip")

		Expect(errors.Is(err, pkgconfig.ErrInvalidSource)).To(BeTrue())
	})

	It("builds a patch source from the tag-expanded base URL", func() {
		f := &updater.SourceFactory{
			Remote: &pkgconfig.RemoteConfig{PatchBaseURL: "https://gitlab.example.com/g/p/-/raw/{tag}"},
		}

		src, err := f.Patch(rel, changeset.Result{})

		Expect(err).NotTo(HaveOccurred())
		Expect(src).To(BeAssignableToTypeOf(&payload.PatchFileSetSource{}))
	})

	It("refuses to patch without a base URL", func() {
		f := &updater.SourceFactory{}

		_, err := f.Patch(rel, changeset.Result{})

		Expect(err).To(MatchError(updater.ErrNoPatchURL))
	})
})
