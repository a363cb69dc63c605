package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/patchlaunch/internal/color"
	"github.com/smykla-skalski/patchlaunch/internal/doctor"
	"github.com/smykla-skalski/patchlaunch/internal/doctor/checkers"
	"github.com/smykla-skalski/patchlaunch/internal/doctor/reporters"
	"github.com/smykla-skalski/patchlaunch/internal/xdg"
	"github.com/smykla-skalski/patchlaunch/pkg/config"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

var (
	doctorVerbose    bool
	doctorFix        bool
	doctorCategories []string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the launcher setup for problems",
	Long: `Check the launcher setup for problems.

Validates the configuration, the state directory, the connection to the
release API, the local installation and the free disk space. Problems with
a safe automatic fix can be repaired with --fix.

Examples:
  patchlaunch doctor                   # Run all checks
  patchlaunch doctor --fix             # Apply available fixes
  patchlaunch doctor --category remote # Only check the release API`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "V", false, "Show details of passing checks")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Apply available fixes")
	doctorCmd.Flags().StringSliceVar(
		&doctorCategories,
		"category",
		nil,
		"Only run checks of these categories (config, paths, remote, install, disk)",
	)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loader, err := newLoader()
	if err != nil {
		return err
	}

	flags := rootCmd.PersistentFlags()
	configFiles := append([]string{loader.GlobalConfigPath()}, loader.ProjectConfigPaths()...)

	if configPath != "" {
		configFiles = append(configFiles, configPath)
	}

	registry := doctor.NewRegistry()
	registry.RegisterChecker(checkers.NewConfigChecker(func() (*config.Config, error) {
		return loadConfig(flags)
	}, configFiles...))
	registry.RegisterChecker(checkers.NewPathsChecker(xdg.StateDir()))
	registry.RegisterFixer(checkers.NewPermissionsFixer(configFiles...))
	registry.RegisterFixer(checkers.NewDirFixer(xdg.StateDir()))

	theme := color.NewTheme(color.Enabled(os.Stdout, noColorFlag))
	reporter := reporters.NewSimpleReporter(os.Stdout, theme)

	var log logger.Logger = logger.NewNoOpLogger()

	// Checks that need a working app only run once the config loads.
	if probe, probeErr := loadConfig(flags); probeErr == nil {
		a, appErr := newAppWithConfig(probe)
		if appErr != nil {
			return appErr
		}
		defer a.close()

		log = a.log

		registry.RegisterChecker(checkers.NewRemoteChecker(a.releases, probe.GetRemote().GetBaseURL()))
		registry.RegisterChecker(checkers.NewInstallChecker(a.updater))
		registry.RegisterChecker(checkers.NewDiskChecker(
			a.updater.WorkDir(),
			checkers.DefaultMinFreeSpace,
			nil,
		))
	}

	categories := make([]doctor.Category, 0, len(doctorCategories))
	for _, c := range doctorCategories {
		categories = append(categories, doctor.Category(c))
	}

	runner := doctor.NewRunner(registry, reporter, log)

	err = runner.Run(ctx, doctor.RunOptions{
		Verbose:    doctorVerbose,
		Fix:        doctorFix,
		Categories: categories,
	})
	if errors.Is(err, doctor.ErrChecksFailed) {
		return err
	}

	return errors.Wrap(err, "doctor failed")
}
