package config_test

import (
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/patchlaunch/internal/config"
	pkgConfig "github.com/smykla-skalski/patchlaunch/pkg/config"
)

var _ = Describe("Validator", func() {
	var (
		validator *config.Validator
		cfg       *pkgConfig.Config
	)

	BeforeEach(func() {
		validator = config.NewValidator()
		cfg = config.DefaultConfig()
		cfg.Remote.ProjectID = "group/game"
	})

	It("should return error when config is nil", func() {
		err := validator.Validate(nil)
		Expect(errors.Is(err, config.ErrInvalidConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("config is nil"))
	})

	It("should pass for defaults with a project id", func() {
		Expect(validator.Validate(cfg)).To(Succeed())
	})

	It("should require a project id", func() {
		cfg.Remote.ProjectID = "  "

		err := validator.Validate(cfg)
		Expect(errors.Is(err, config.ErrInvalidConfig)).To(BeTrue())
	})

	DescribeTable("remote URLs",
		func(baseURL string, valid bool) {
			cfg.Remote.BaseURL = baseURL

			err := validator.Validate(cfg)
			if valid {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(HaveOccurred())
			}
		},
		Entry("https", "https://gitlab.com/api/v4", true),
		Entry("http", "http://localhost:8080/api/v4", true),
		Entry("ftp scheme", "ftp://gitlab.com/api/v4", false),
		Entry("no host", "https:///api/v4", false),
	)

	It("should validate the patch base URL after tag expansion", func() {
		cfg.Remote.PatchBaseURL = "gitlab.com/raw/{tag}"
		Expect(validator.Validate(cfg)).NotTo(Succeed())

		cfg.Remote.PatchBaseURL = "https://gitlab.com/g/p/-/raw/{tag}"
		Expect(validator.Validate(cfg)).To(Succeed())
	})

	It("should reject nested install dirs", func() {
		cfg.Install.Dir = "a/b"
		Expect(validator.Validate(cfg)).NotTo(Succeed())
	})

	It("should require a cloud link for the cloud source", func() {
		cfg.Install.Source = pkgConfig.SourceCloud
		Expect(validator.Validate(cfg)).NotTo(Succeed())

		cfg.Cloud.Link = "s3://bucket/game.zip"
		Expect(validator.Validate(cfg)).To(Succeed())
	})

	It("should require a telemetry base URL when enabled", func() {
		cfg.Telemetry.Enabled = true
		Expect(validator.Validate(cfg)).NotTo(Succeed())

		cfg.Telemetry.BaseURL = "https://stats.example.com/"
		Expect(validator.Validate(cfg)).To(Succeed())
	})

	It("should count every failure", func() {
		cfg.Remote.ProjectID = ""
		cfg.Install.Dir = ".."

		err := validator.Validate(cfg)
		Expect(err.Error()).To(ContainSubstring("2 error(s)"))
	})
})
