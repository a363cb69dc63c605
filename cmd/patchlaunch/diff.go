package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/color"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/internal/report"
)

// Output formats of the diff command.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var (
	// ErrUnknownOutput is returned for an unsupported --output value.
	ErrUnknownOutput = errors.New("unknown output format")

	// ErrNoRevision is returned when a diff end cannot be determined.
	ErrNoRevision = errors.New("no revision to compare")
)

var (
	diffFrom   string
	diffTo     string
	diffOutput string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show the files an update would delete and fetch",
	Long: `Show the files an update would delete and fetch.

Walks every commit between two revisions and folds their file changes into
a set of paths to delete and a set of paths to download. Without flags the
installed revision is compared with the latest release.

Examples:
  patchlaunch diff                          # Installed vs latest
  patchlaunch diff --from 1a2b3c --to 4d5e6f
  patchlaunch diff -o json                  # Machine-readable output`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().StringVar(&diffFrom, "from", "", "Base revision (default: installed revision)")
	diffCmd.Flags().StringVar(&diffTo, "to", "", "Target revision (default: latest release head)")
	diffCmd.Flags().StringVarP(
		&diffOutput,
		"output",
		"o",
		outputTable,
		"Output format: table, json or yaml",
	)
}

func runDiff(_ *cobra.Command, _ []string) error {
	if err := validateOutput(diffOutput); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(rootCmd.PersistentFlags())
	if err != nil {
		return err
	}
	defer a.close()

	from, to, err := a.diffRange(ctx, diffFrom, diffTo)
	if err != nil {
		return err
	}

	var sink progress.Sink = progress.Nop{}
	if diffOutput == outputTable {
		sink = progress.NewWriter(os.Stderr)
	}

	result, err := a.diffs.Compare(ctx, from, to, sink)
	sink.Done(err)

	if err != nil {
		return errors.Wrap(err, "diff failed")
	}

	return writeChanges(os.Stdout, diffOutput, result, report.TermWidth(), a.theme)
}

// diffRange fills missing ends from the installed state and latest release.
func (a *app) diffRange(ctx context.Context, from, to string) (release.Revision, release.Revision, error) {
	if from != "" && to != "" {
		return release.Revision(from), release.Revision(to), nil
	}

	st := a.updater.Check(ctx)

	if from == "" {
		if st.InstalledRevision == "" {
			return "", "", errors.Wrap(ErrNoRevision, "nothing installed, pass --from")
		}

		from = string(st.InstalledRevision)
	}

	if to == "" {
		if !st.Reachable || st.Latest.HeadRevision == "" {
			return "", "", errors.Wrap(ErrNoRevision, "latest release unavailable, pass --to")
		}

		to = string(st.Latest.HeadRevision)
	}

	return release.Revision(from), release.Revision(to), nil
}

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return errors.Wrapf(ErrUnknownOutput, "%q (want table, json or yaml)", format)
	}
}

func writeChanges(w io.Writer, format string, r changeset.Result, width int, theme color.Theme) error {
	if r.ToDelete == nil {
		r.ToDelete = []string{}
	}

	if r.ToFetch == nil {
		r.ToFetch = []string{}
	}

	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return errors.Wrap(enc.Encode(r), "encoding json")
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, "encoding yaml")
		}

		return errors.Wrap(enc.Close(), "encoding yaml")
	default:
		fmt.Fprintln(w, report.RenderChanges(r, width, theme))

		if !r.Empty() {
			fmt.Fprintln(w, report.ChangesSummary(r, theme))
		}

		return nil
	}
}
