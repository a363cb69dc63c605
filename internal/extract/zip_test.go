package extract_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/internal/extract"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
)

type zipEntry struct {
	name string
	body string
}

func createZip(path string, entries ...zipEntry) {
	GinkgoHelper()

	f, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())

	w := zip.NewWriter(f)

	for _, e := range entries {
		ew, err := w.Create(e.name)
		Expect(err).NotTo(HaveOccurred())

		if e.body != "" {
			_, err = ew.Write([]byte(e.body))
			Expect(err).NotTo(HaveOccurred())
		}
	}

	Expect(w.Close()).To(Succeed())
	Expect(f.Close()).To(Succeed())
}

var _ = Describe("Zip", func() {
	var (
		ctx     context.Context
		tmp     string
		archive string
		dest    string
		rec     *progress.Recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmp = GinkgoT().TempDir()
		archive = filepath.Join(tmp, "Game.zip")
		dest = filepath.Join(tmp, "Game")
		rec = progress.NewRecorder()
	})

	It("extracts every entry and reports per-entry progress", func() {
		createZip(archive,
			zipEntry{name: "game-v1/"},
			zipEntry{name: "game-v1/Game.exe", body: "MZ"},
			zipEntry{name: "game-v1/data/level1.dat", body: "level"},
			zipEntry{name: "game-v1/readme.txt", body: "hi"},
		)

		n, err := extract.Zip(ctx, archive, dest, rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))

		data, err := os.ReadFile(filepath.Join(dest, "game-v1", "data", "level1.dat"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("level"))

		Expect(rec.Phases()).To(Equal([]progress.Phase{progress.PhaseExtracting}))
		Expect(rec.Percents()).To(Equal([]float64{25, 50, 75, 100}))
	})

	It("creates parent directories missing from the archive", func() {
		createZip(archive, zipEntry{name: "root/deep/nested/file.txt", body: "x"})

		_, err := extract.Zip(ctx, archive, dest, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(dest, "root", "deep", "nested", "file.txt")).To(BeARegularFile())
	})

	It("rejects zip-slip entries", func() {
		createZip(archive,
			zipEntry{name: "ok.txt", body: "fine"},
			zipEntry{name: "../evil.txt", body: "nope"},
		)

		n, err := extract.Zip(ctx, archive, dest, rec)
		Expect(errors.Is(err, extract.ErrUnsafePath)).To(BeTrue())
		Expect(n).To(Equal(1))
		Expect(filepath.Join(tmp, "evil.txt")).NotTo(BeAnExistingFile())
	})

	It("fails on a corrupt archive", func() {
		Expect(os.WriteFile(archive, []byte("not a zip"), 0o600)).To(Succeed())

		_, err := extract.Zip(ctx, archive, dest, rec)
		Expect(errors.Is(err, extract.ErrInvalidArchive)).To(BeTrue())
	})

	It("rejects entries larger than the per-entry limit", func() {
		DeferCleanup(extract.SetMaxEntrySize(4))

		createZip(archive,
			zipEntry{name: "small.txt", body: "abcd"},
			zipEntry{name: "big.dat", body: "abcdefgh"},
		)

		n, err := extract.Zip(ctx, archive, dest, rec)
		Expect(errors.Is(err, extract.ErrInvalidArchive)).To(BeTrue())
		Expect(n).To(Equal(1))
		Expect(filepath.Join(dest, "small.txt")).To(BeARegularFile())
		Expect(filepath.Join(dest, "big.dat")).NotTo(BeAnExistingFile())
	})

	It("stops when the context is cancelled", func() {
		createZip(archive, zipEntry{name: "a.txt", body: "a"})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		n, err := extract.Zip(cancelled, archive, dest, rec)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(n).To(BeZero())
	})

	It("is usable through the Extractor interface", func() {
		createZip(archive, zipEntry{name: "a.txt", body: "a"})

		var ex extract.Extractor = extract.ZipExtractor{}

		n, err := ex.Extract(ctx, archive, dest, rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})
})

var _ = Describe("SafeJoin", func() {
	DescribeTable("validates relative paths",
		func(name string, ok bool) {
			got, err := extract.SafeJoin("/base", name)
			if ok {
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(HavePrefix(filepath.Clean("/base") + string(os.PathSeparator)))
			} else {
				Expect(errors.Is(err, extract.ErrUnsafePath)).To(BeTrue())
			}
		},
		Entry("plain file", "a.txt", true),
		Entry("nested file", "dir/sub/a.txt", true),
		Entry("inner dot-dot", "dir/../a.txt", true),
		Entry("parent escape", "../a.txt", false),
		Entry("deep escape", "dir/../../a.txt", false),
		Entry("absolute", "/etc/passwd", false),
		Entry("empty", "", false),
		Entry("base itself", ".", false),
	)
})
