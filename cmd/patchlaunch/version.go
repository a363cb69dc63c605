package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/smykla-skalski/patchlaunch/internal/state"
	"github.com/smykla-skalski/patchlaunch/internal/xdg"
)

// Build information set by ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	versionRequested bool
	versionShort     bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print launcher and installation versions",
	Long: `Print the launcher build and the release installed on this machine.

The installed release is read from the state file; no network access is made.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), version)

			return
		}

		writeVersion(cmd.OutOrStdout(), loadInstalledState())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Flags().BoolVarP(&versionRequested, "version", "v", false, "Print version information")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the launcher version")
}

func checkVersionFlag() {
	if versionRequested {
		fmt.Println(version)
		os.Exit(ExitCodeOK)
	}
}

// loadInstalledState returns the persisted state, or nil when it cannot be read.
func loadInstalledState() *state.State {
	s, err := state.NewFileStore(xdg.StateFile()).Load()
	if err != nil {
		return nil
	}

	return s
}

func writeVersion(w io.Writer, installed *state.State) {
	fmt.Fprintf(w, "patchlaunch %s (%s/%s, %s)\n", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
	fmt.Fprintf(w, "  commit:    %s\n", buildRevision())
	fmt.Fprintf(w, "  built:     %s\n", date)

	switch {
	case installed == nil:
		fmt.Fprintln(w, "  installed: unknown (state file unreadable)")
	case installed.Revision == "":
		fmt.Fprintln(w, "  installed: none")
	default:
		fmt.Fprintf(w, "  installed: %s at %s\n", installed.Tag, installed.Revision.Short())
	}

	if installed != nil && installed.ClientID != state.NoClientID {
		fmt.Fprintf(w, "  client id: %d\n", installed.ClientID)
	}

	fmt.Fprintf(w, "  config:    %s\n", xdg.GlobalConfigFile())
	fmt.Fprintf(w, "  state:     %s\n", xdg.StateFile())
}

// buildRevision prefers the ldflags commit and falls back to VCS build info.
func buildRevision() string {
	if commit != "unknown" {
		return commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit
	}

	rev, dirty := "", false

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if rev == "" {
		return commit
	}

	short := rev[:min(len(rev), 12)]
	if dirty {
		short += "-dirty"
	}

	return short
}
