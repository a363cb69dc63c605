// Package main provides the CLI entry point for patchlaunch.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smykla-skalski/patchlaunch/internal/crashdump"
	"github.com/smykla-skalski/patchlaunch/internal/xdg"
	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

const (
	// ExitCodeOK indicates the command completed.
	ExitCodeOK = 0

	// ExitCodeError indicates the command failed.
	ExitCodeError = 1

	// ExitCodeCrash indicates an unexpected panic.
	ExitCodeCrash = 3
)

var (
	debugMode   bool
	traceMode   bool
	configPath  string
	noColorFlag bool

	// crashOperation is the command path recorded in crash dumps.
	crashOperation string

	// crashConfig is the loaded configuration recorded in crash dumps.
	crashConfig *config.Config

	// crashInstall describes the installation for crash dumps once the app is wired.
	crashInstall func() *crashdump.InstallInfo
)

// configFlags are the persistent flags forwarded to the config loader.
var configFlags = []string{
	"project",
	"base-url",
	"token",
	"timeout",
	"workdir",
	"install-dir",
	"source",
	"executable",
	"telemetry",
}

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			handlePanic(r)

			exitCode = ExitCodeCrash
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return ExitCodeError
	}

	return ExitCodeOK
}

var rootCmd = &cobra.Command{
	Use:   "patchlaunch",
	Short: "Install, patch and launch a game released on GitLab",
	Long: `Install, patch and launch a game released on GitLab.

patchlaunch tracks the revision of the local installation, compares it with
the newest release of the configured project and applies either a full
install or an incremental patch built from the commits in between.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		crashOperation = cmd.CommandPath()

		checkVersionFlag()
	},
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	flags.BoolVar(&traceMode, "trace", false, "Enable trace logging")
	flags.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	flags.StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"Path to project configuration file (default: .patchlaunch/config.toml or patchlaunch.toml)",
	)

	flags.String("project", "", "GitLab project id or path (e.g. group/game)")
	flags.String("base-url", "", "GitLab API root (default: https://gitlab.com/api/v4)")
	flags.String("token", "", "Private access token (prefer PATCHLAUNCH_REMOTE_TOKEN)")
	flags.String("timeout", "", "Timeout for a single API request (e.g. 30s)")
	flags.String("workdir", "", "Directory the installation lives in")
	flags.String("install-dir", "", "Installation directory name under the work dir")
	flags.String("source", "", "Full install source: archive or cloud")
	flags.String("executable", "", "File name launched by the launch command")
	flags.Bool("telemetry", false, "Report client id, version and errors")
}

// changedFlags collects the config flags set on the command line.
func changedFlags(flags *pflag.FlagSet) map[string]any {
	result := make(map[string]any)

	for _, name := range configFlags {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}

		if f.Value.Type() == "bool" {
			result[name] = f.Value.String() == "true"

			continue
		}

		result[name] = f.Value.String()
	}

	return result
}

// handlePanic writes a crash dump for a recovered panic and prunes old ones.
func handlePanic(recovered any) {
	fmt.Fprintf(os.Stderr, "panic: %v\n", recovered)

	scene := crashdump.Scene{Operation: crashOperation, Config: crashConfig}
	if crashInstall != nil {
		scene.Install = crashInstall()
	}

	info := crashdump.NewCollector(version).Collect(recovered, scene)

	writer, err := crashdump.NewWriter(xdg.CrashDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create crash dump writer: %v\n", err)

		return
	}

	path, err := writer.Write(info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write crash dump: %v\n", err)

		return
	}

	fmt.Fprintf(os.Stderr, "Crash dump written to: %s\n", path)

	if storage, err := crashdump.NewStorage(writer.DumpDir()); err == nil {
		_, _ = storage.Prune(crashdump.DefaultMaxDumps, crashdump.DefaultMaxAge)
	}
}
