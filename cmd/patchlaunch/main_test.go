package main

import (
	"bytes"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/color"
	"github.com/smykla-skalski/patchlaunch/internal/crashdump"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/internal/state"
)

var _ = Describe("CLI helpers", func() {
	Describe("changedFlags", func() {
		newFlags := func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			fs.String("project", "", "")
			fs.String("timeout", "", "")
			fs.Bool("telemetry", false, "")
			fs.Bool("debug", false, "")

			return fs
		}

		It("returns only config flags set on the command line", func() {
			fs := newFlags()
			Expect(fs.Parse([]string{"--project", "group/game", "--debug"})).To(Succeed())

			Expect(changedFlags(fs)).To(Equal(map[string]any{"project": "group/game"}))
		})

		It("keeps bool flags typed", func() {
			fs := newFlags()
			Expect(fs.Parse([]string{"--telemetry", "--timeout", "45s"})).To(Succeed())

			Expect(changedFlags(fs)).To(Equal(map[string]any{
				"telemetry": true,
				"timeout":   "45s",
			}))
		})

		It("returns an empty map when nothing changed", func() {
			fs := newFlags()
			Expect(fs.Parse(nil)).To(Succeed())

			Expect(changedFlags(fs)).To(BeEmpty())
		})
	})

	DescribeTable("sameHost",
		func(a, b string, expected bool) {
			Expect(sameHost(a, b)).To(Equal(expected))
		},
		Entry("same host", "https://gitlab.com/g/p/-/raw/{tag}/", "https://gitlab.com/api/v4", true),
		Entry("case-insensitive", "https://GitLab.com/raw/", "https://gitlab.com/api/v4", true),
		Entry("different host", "https://cdn.example.com/raw/", "https://gitlab.com/api/v4", false),
		Entry("different port", "https://gitlab.com:8443/raw/", "https://gitlab.com/api/v4", false),
		Entry("empty patch url", "", "https://gitlab.com/api/v4", false),
	)

	Describe("validateOutput", func() {
		It("accepts the known formats", func() {
			for _, f := range []string{outputTable, outputJSON, outputYAML} {
				Expect(validateOutput(f)).To(Succeed())
			}
		})

		It("rejects anything else", func() {
			Expect(validateOutput("xml")).To(MatchError(ErrUnknownOutput))
		})
	})

	Describe("writeChanges", func() {
		var (
			buf   *bytes.Buffer
			theme color.Theme
		)

		BeforeEach(func() {
			buf = &bytes.Buffer{}
			theme = color.NewTheme(false)
		})

		result := changeset.Result{
			ToDelete: []string{"old.dat"},
			ToFetch:  []string{"bin/game.exe", "data/map.pak"},
		}

		It("encodes json", func() {
			Expect(writeChanges(buf, outputJSON, result, 0, theme)).To(Succeed())

			var decoded changeset.Result
			Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
			Expect(decoded).To(Equal(result))
		})

		It("encodes an empty result as empty lists", func() {
			Expect(writeChanges(buf, outputJSON, changeset.Result{}, 0, theme)).To(Succeed())
			Expect(buf.String()).To(ContainSubstring(`"to_delete": []`))
			Expect(buf.String()).To(ContainSubstring(`"to_fetch": []`))
		})

		It("encodes yaml", func() {
			Expect(writeChanges(buf, outputYAML, result, 0, theme)).To(Succeed())

			var decoded changeset.Result
			Expect(yaml.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
			Expect(decoded).To(Equal(result))
		})

		It("renders a table with a summary", func() {
			Expect(writeChanges(buf, outputTable, result, 80, theme)).To(Succeed())

			out := buf.String()
			Expect(out).To(ContainSubstring("old.dat"))
			Expect(out).To(ContainSubstring("data/map.pak"))
			Expect(out).To(ContainSubstring("1 to delete"))
			Expect(out).To(ContainSubstring("2 to fetch"))
		})

		It("says so when nothing changed", func() {
			Expect(writeChanges(buf, outputTable, changeset.Result{}, 80, theme)).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("No changes"))
			Expect(buf.String()).NotTo(ContainSubstring("Summary"))
		})
	})

	Describe("writeVersion", func() {
		var buf *bytes.Buffer

		BeforeEach(func() {
			buf = &bytes.Buffer{}
		})

		It("names the launcher build", func() {
			writeVersion(buf, nil)
			Expect(buf.String()).To(HavePrefix("patchlaunch " + version + " ("))
			Expect(buf.String()).To(ContainSubstring("installed: unknown"))
		})

		It("reports a fresh machine", func() {
			writeVersion(buf, state.Defaults("game"))
			Expect(buf.String()).To(ContainSubstring("installed: none"))
			Expect(buf.String()).NotTo(ContainSubstring("client id"))
		})

		It("reports the installed release and client id", func() {
			s := state.Defaults("game")
			s.Tag = "v1.4.0"
			s.Revision = release.Revision("0123456789abcdef0123")
			s.ClientID = 42

			writeVersion(buf, s)
			Expect(buf.String()).To(ContainSubstring("installed: v1.4.0 at " + s.Revision.Short()))
			Expect(buf.String()).To(ContainSubstring("client id: 42"))
		})
	})
})

var _ = Describe("crash commands", func() {
	var (
		dir     string
		storage *crashdump.Storage
		buf     *bytes.Buffer
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		buf = &bytes.Buffer{}

		w, err := crashdump.NewWriter(dir)
		Expect(err).NotTo(HaveOccurred())

		now := time.Now()
		for i, id := range []string{"crash-a", "crash-b", "crash-c"} {
			_, err := w.Write(&crashdump.CrashInfo{
				ID:         id,
				Timestamp:  now.Add(-time.Duration(i) * time.Hour),
				PanicValue: "boom",
				StackTrace: "goroutine 1 [running]:\nmain.main()",
				Operation:  "patchlaunch update",
				Install:    &crashdump.InstallInfo{Tag: "v1.4.0", Revision: "0123abcd", Root: "/games/game"},
			})
			Expect(err).NotTo(HaveOccurred())
		}

		storage, err = crashdump.NewStorage(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("lists dumps newest first", func() {
		Expect(displayCrashList(buf, storage)).To(Succeed())
		Expect(buf.String()).To(MatchRegexp(`(?s)1\. crash-a.*2\. crash-b.*3\. crash-c`))
	})

	It("shows a dump", func() {
		Expect(displayCrashDump(buf, storage, "crash-b")).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Command:   patchlaunch update"))
		Expect(buf.String()).To(ContainSubstring("Release:  v1.4.0 (0123abcd)"))
		Expect(buf.String()).To(ContainSubstring("  main.main()"))
	})

	It("reports unknown dumps without failing", func() {
		Expect(displayCrashDump(buf, storage, "crash-zzz")).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Crash dump not found"))
	})

	It("previews a clean without deleting", func() {
		Expect(cleanCrashDumps(buf, storage, 1, 0, true)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Would remove 2 dump(s)"))

		list, err := storage.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(3))
	})

	It("cleans beyond the retention", func() {
		Expect(cleanCrashDumps(buf, storage, 1, 0, false)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Removed: 2 dump(s)"))
		Expect(buf.String()).To(ContainSubstring("unlimited age"))
	})
})
