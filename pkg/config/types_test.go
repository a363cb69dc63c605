package config_test

import (
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

var _ = Describe("SourceKind", func() {
	Describe("ParseSourceKind", func() {
		It("should parse 'archive'", func() {
			kind, err := config.ParseSourceKind("archive")
			Expect(err).NotTo(HaveOccurred())
			Expect(kind).To(Equal(config.SourceArchive))
		})

		It("should parse 'cloud'", func() {
			kind, err := config.ParseSourceKind("cloud")
			Expect(err).NotTo(HaveOccurred())
			Expect(kind).To(Equal(config.SourceCloud))
		})

		It("should reject unknown sources", func() {
			_, err := config.ParseSourceKind("torrent")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, config.ErrInvalidSource)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("torrent"))
		})

		It("should be case sensitive", func() {
			_, err := config.ParseSourceKind("Archive")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UnmarshalText", func() {
		It("should set the value on success", func() {
			var kind config.SourceKind
			Expect(kind.UnmarshalText([]byte("cloud"))).To(Succeed())
			Expect(kind).To(Equal(config.SourceCloud))
		})

		It("should leave the value untouched on error", func() {
			kind := config.SourceArchive
			Expect(kind.UnmarshalText([]byte("nope"))).NotTo(Succeed())
			Expect(kind).To(Equal(config.SourceArchive))
		})
	})
})

var _ = Describe("Duration", func() {
	Describe("UnmarshalText", func() {
		It("should parse valid duration strings", func() {
			var d config.Duration
			err := d.UnmarshalText([]byte("10s"))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.String()).To(Equal("10s"))
		})

		It("should parse duration with multiple units", func() {
			var d config.Duration
			err := d.UnmarshalText([]byte("1h30m"))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.String()).To(Equal("1h30m0s"))
		})

		It("should return error for invalid duration format", func() {
			var d config.Duration
			err := d.UnmarshalText([]byte("invalid"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid duration"))
		})

		It("should return error for negative duration", func() {
			var d config.Duration
			err := d.UnmarshalText([]byte("-5s"))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, config.ErrNegativeDuration)).To(BeTrue())
		})

		It("should accept zero duration", func() {
			var d config.Duration
			err := d.UnmarshalText([]byte("0s"))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.String()).To(Equal("0s"))
		})
	})

	Describe("MarshalText", func() {
		It("should marshal duration to text", func() {
			var d config.Duration
			_ = d.UnmarshalText([]byte("5m"))
			text, err := d.MarshalText()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(text)).To(Equal("5m0s"))
		})

		It("should marshal zero duration", func() {
			var d config.Duration
			text, err := d.MarshalText()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(text)).To(Equal("0s"))
		})
	})

	Describe("String", func() {
		It("should return string representation", func() {
			var d config.Duration
			_ = d.UnmarshalText([]byte("2h"))
			Expect(d.String()).To(Equal("2h0m0s"))
		})
	})

	Describe("ToDuration", func() {
		It("should convert to time.Duration", func() {
			var d config.Duration
			_ = d.UnmarshalText([]byte("30s"))
			Expect(d.ToDuration().Seconds()).To(Equal(float64(30)))
		})
	})
})
