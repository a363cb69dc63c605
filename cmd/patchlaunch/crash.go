package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/patchlaunch/internal/crashdump"
	"github.com/smykla-skalski/patchlaunch/internal/xdg"
)

const (
	unlimitedStr         = "unlimited"
	durationDisplayUnits = 2
)

var (
	crashDryRun   bool
	crashMaxDumps int
	crashMaxAge   time.Duration
)

var crashCmd = &cobra.Command{
	Use:   "crash",
	Short: "Manage crash dumps",
	Long: `Manage crash dumps created by patchlaunch on panic.

Subcommands:
  list   List crash dumps
  view   View crash dump details
  clean  Remove old crash dumps`,
}

var crashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crash dumps",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		storage, err := crashdump.NewStorage(xdg.CrashDir())
		if err != nil {
			return err
		}

		return displayCrashList(os.Stdout, storage)
	},
}

var crashViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View crash dump details",
	Long: `View detailed information about a specific crash dump.

Examples:
  patchlaunch crash view crash-20260304T160432-a1b2c3d4`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		storage, err := crashdump.NewStorage(xdg.CrashDir())
		if err != nil {
			return err
		}

		return displayCrashDump(os.Stdout, storage, args[0])
	},
}

var crashCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old crash dumps",
	Long: `Remove crash dumps beyond the newest --keep or older than --max-age.

Examples:
  patchlaunch crash clean            # Apply the default retention
  patchlaunch crash clean --dry-run  # Show what would be removed`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		storage, err := crashdump.NewStorage(xdg.CrashDir())
		if err != nil {
			return err
		}

		return cleanCrashDumps(os.Stdout, storage, crashMaxDumps, crashMaxAge, crashDryRun)
	},
}

func init() {
	rootCmd.AddCommand(crashCmd)
	crashCmd.AddCommand(crashListCmd, crashViewCmd, crashCleanCmd)

	crashCleanCmd.Flags().BoolVar(&crashDryRun, "dry-run", false, "Show what would be removed without deleting")
	crashCleanCmd.Flags().IntVar(&crashMaxDumps, "keep", crashdump.DefaultMaxDumps, "Number of dumps to keep")
	crashCleanCmd.Flags().DurationVar(
		&crashMaxAge,
		"max-age",
		crashdump.DefaultMaxAge,
		"Remove dumps older than this (0 keeps all ages)",
	)
}

func displayCrashList(w io.Writer, storage *crashdump.Storage) error {
	summaries, err := storage.List()
	if err != nil {
		return errors.Wrap(err, "failed to list crash dumps")
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No crash dumps found.")
		fmt.Fprintf(w, "Crash dumps are stored in: %s\n", storage.DumpDir())

		return nil
	}

	fmt.Fprintf(w, "Crash dumps in %s (%d)\n\n", storage.DumpDir(), len(summaries))

	for i, summary := range summaries {
		size := "unknown"
		if summary.Size >= 0 {
			size = humanize.Bytes(uint64(summary.Size))
		}

		fmt.Fprintf(w, "%d. %s\n", i+1, summary.ID)
		fmt.Fprintf(w, "   Time:  %s (%s)\n",
			summary.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.Time(summary.Timestamp),
		)
		fmt.Fprintf(w, "   Panic: %s\n", summary.PanicValue)
		fmt.Fprintf(w, "   Size:  %s\n\n", size)
	}

	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  patchlaunch crash view <id>    # View full details")
	fmt.Fprintln(w, "  patchlaunch crash clean        # Remove old dumps")

	return nil
}

func displayCrashDump(w io.Writer, storage *crashdump.Storage, id string) error {
	info, err := storage.Get(id)
	if err != nil {
		if errors.Is(err, crashdump.ErrDumpNotFound) {
			fmt.Fprintf(w, "Crash dump not found: %s\n", id)
			fmt.Fprintln(w, "Use 'patchlaunch crash list' to see available dumps.")

			return nil
		}

		return errors.Wrap(err, "failed to get crash dump")
	}

	fmt.Fprintf(w, "ID:        %s\n", info.ID)
	fmt.Fprintf(w, "Timestamp: %s\n", info.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Panic:     %s\n", info.PanicValue)

	if info.Operation != "" {
		fmt.Fprintf(w, "Command:   %s\n", info.Operation)
	}

	if in := info.Install; in != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Installation")
		fmt.Fprintf(w, "  Root:     %s\n", in.Root)
		fmt.Fprintf(w, "  Release:  %s (%s)\n", valueOr(in.Tag, "none"), valueOr(in.Revision, "-"))
		fmt.Fprintf(w, "  Mutating: %t\n", in.Mutating)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Runtime")
	fmt.Fprintf(w, "  Go:         %s\n", info.Runtime.GoVersion)
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", info.Runtime.GOOS, info.Runtime.GOARCH)
	fmt.Fprintf(w, "  CPUs:       %d\n", info.Runtime.NumCPU)
	fmt.Fprintf(w, "  Goroutines: %d\n", info.Runtime.NumGoroutine)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Metadata")
	fmt.Fprintf(w, "  Version:     %s\n", info.Metadata.Version)
	fmt.Fprintf(w, "  Working Dir: %s\n", info.Metadata.WorkingDir)
	fmt.Fprintln(w)

	if len(info.Config) > 0 {
		data, err := json.MarshalIndent(info.Config, "  ", "  ")
		if err == nil {
			fmt.Fprintf(w, "Configuration\n  %s\n\n", data)
		}
	}

	fmt.Fprintln(w, "Stack Trace")

	for line := range strings.SplitSeq(info.StackTrace, "\n") {
		if line != "" {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	return nil
}

func cleanCrashDumps(
	w io.Writer,
	storage *crashdump.Storage,
	maxDumps int,
	maxAge time.Duration,
	dryRun bool,
) error {
	fmt.Fprintf(w, "Retention: %d dumps, %s age\n", maxDumps, formatDuration(maxAge))

	if !dryRun {
		removed, err := storage.Prune(maxDumps, maxAge)
		if err != nil {
			return errors.Wrap(err, "failed to prune crash dumps")
		}

		fmt.Fprintf(w, "Removed: %d dump(s)\n", removed)

		return nil
	}

	summaries, err := storage.List()
	if err != nil {
		return errors.Wrap(err, "failed to list crash dumps")
	}

	now := time.Now()
	toRemove := crashdump.PlanPrune(summaries, maxDumps, maxAge, now)

	if len(toRemove) == 0 {
		fmt.Fprintln(w, "No dumps would be removed.")

		return nil
	}

	fmt.Fprintf(w, "Would remove %d dump(s):\n", len(toRemove))

	for _, summary := range toRemove {
		fmt.Fprintf(w, "  - %s (age: %s)\n", summary.ID, formatDuration(now.Sub(summary.Timestamp)))
	}

	return nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return unlimitedStr
	}

	return durafmt.Parse(d).LimitFirstN(durationDisplayUnits).String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
