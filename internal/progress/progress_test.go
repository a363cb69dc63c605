package progress_test

import (
	"bytes"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-skalski/patchlaunch/internal/progress"
)

var _ = Describe("FormatTransferred", func() {
	DescribeTable("formats byte counts",
		func(received int64, want string) {
			Expect(progress.FormatTransferred(received)).To(Equal(want))
		},
		Entry("zero", int64(0), "0.00 MB"),
		Entry("half a megabyte", int64(512*1024), "0.50 MB"),
		Entry("512 MB", int64(512*1024*1024), "512.00 MB"),
		Entry("exactly 1024 MB stays in MB", int64(1024*1024*1024), "1024.00 MB"),
		Entry("1.5 GB", int64(1536*1024*1024), "1.50 GB"),
	)
})

var _ = Describe("Percentage", func() {
	It("should compute done over total", func() {
		Expect(progress.Percentage(1, 4)).To(BeNumerically("==", 25))
		Expect(progress.Percentage(4, 4)).To(BeNumerically("==", 100))
	})

	It("should return zero for an empty total", func() {
		Expect(progress.Percentage(0, 0)).To(BeZero())
	})
})

var _ = Describe("Phase", func() {
	It("should have readable names", func() {
		Expect(progress.PhaseDownloading.String()).To(Equal("downloading"))
		Expect(progress.Phase(99).String()).To(Equal("Phase(99)"))
	})
})

var _ = Describe("Recorder", func() {
	var rec *progress.Recorder

	BeforeEach(func() {
		rec = progress.NewRecorder()
	})

	It("should keep events in order", func() {
		rec.Phase(progress.PhaseDownloading)
		rec.Percent(50)
		rec.Percent(100)
		rec.Done(nil)

		Expect(rec.Phases()).To(Equal([]progress.Phase{progress.PhaseDownloading}))
		Expect(rec.Percents()).To(Equal([]float64{50, 100}))
		Expect(rec.Events()).To(HaveLen(4))

		last := rec.Last()
		Expect(last.Finished).To(BeTrue())
		Expect(last.Err).NotTo(HaveOccurred())
		Expect(last.Percent).To(BeNumerically("==", 100))
	})

	It("should track unknown-size transfers", func() {
		rec.Phase(progress.PhaseDownloading)
		rec.SizeUnknown()
		rec.Transferred(2048)

		last := rec.Last()
		Expect(last.Indeterminate).To(BeTrue())
		Expect(last.Transferred).To(Equal(int64(2048)))
	})

	It("should reset counters on a new phase", func() {
		rec.Phase(progress.PhaseDownloading)
		rec.Percent(100)
		rec.Phase(progress.PhaseExtracting)

		Expect(rec.Last().Percent).To(BeZero())
		Expect(rec.Last().Phase).To(Equal(progress.PhaseExtracting))
	})

	It("should be safe for concurrent use", func() {
		var wg sync.WaitGroup

		for i := range 10 {
			wg.Add(1)

			go func() {
				defer wg.Done()
				rec.Percent(float64(i))
			}()
		}

		wg.Wait()
		Expect(rec.Percents()).To(HaveLen(10))
	})

	It("should forget everything on Reset", func() {
		rec.Percent(10)
		rec.Reset()

		Expect(rec.Events()).To(BeEmpty())
	})
})

var _ = Describe("Tee", func() {
	var ctrl *gomock.Controller

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
	})

	It("should forward every call to each sink in order", func() {
		mock := progress.NewMockSink(ctrl)
		rec := progress.NewRecorder()
		failure := errors.New("boom")

		gomock.InOrder(
			mock.EXPECT().Phase(progress.PhaseComparing),
			mock.EXPECT().Percent(50.0),
			mock.EXPECT().SizeUnknown(),
			mock.EXPECT().Transferred(int64(10)),
			mock.EXPECT().Done(failure),
		)

		sink := progress.Tee(mock, nil, rec)
		sink.Phase(progress.PhaseComparing)
		sink.Percent(50)
		sink.SizeUnknown()
		sink.Transferred(10)
		sink.Done(failure)

		Expect(rec.Events()).To(HaveLen(5))
	})

	It("should substitute Nop for a nil sink", func() {
		Expect(progress.OrNop(nil)).To(Equal(progress.Nop{}))
	})
})

var _ = Describe("Writer", func() {
	var (
		buf   *bytes.Buffer
		clock time.Time
		w     *progress.Writer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		clock = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		w = progress.NewWriter(buf, progress.WithClock(func() time.Time { return clock }))
	})

	It("should render phases and percentages", func() {
		w.Phase(progress.PhaseDownloading)
		w.Percent(12.4)
		w.Percent(12.9)
		w.Percent(100)

		clock = clock.Add(90 * time.Second)
		w.Done(nil)

		out := buf.String()
		Expect(out).To(ContainSubstring("Downloading..."))
		Expect(out).To(ContainSubstring(" 12%"))
		Expect(out).To(ContainSubstring("100%"))
		Expect(out).To(ContainSubstring("Done in 1 minute 30 seconds"))
	})

	It("should render unknown-size transfers with the soft cap", func() {
		w.Phase(progress.PhaseDownloading)
		w.SizeUnknown()
		w.Transferred(512 * 1024 * 1024)

		Expect(buf.String()).To(ContainSubstring("size unknown"))
		Expect(buf.String()).To(ContainSubstring("512.00 MB of ~2GB (512 MiB)"))
	})

	It("should render failures", func() {
		w.Phase(progress.PhaseExtracting)
		w.Done(errors.New("corrupt archive"))

		Expect(buf.String()).To(ContainSubstring("Failed after"))
		Expect(buf.String()).To(ContainSubstring("corrupt archive"))
	})
})
