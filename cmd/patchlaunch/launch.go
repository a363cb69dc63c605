package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/patchlaunch/internal/exec"
	"github.com/smykla-skalski/patchlaunch/internal/launch"
	"github.com/smykla-skalski/patchlaunch/internal/report"
	"github.com/smykla-skalski/patchlaunch/internal/updater"
)

// ErrNoExecutable is returned when install.executable is not configured.
var ErrNoExecutable = errors.New("install.executable is not configured")

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start the installed game",
	Long: `Start the installed game.

Looks up the configured executable anywhere under the installation directory
and starts it detached from patchlaunch. Only available when the installation
is current or an update is merely pending.`,
	Args: cobra.NoArgs,
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(rootCmd.PersistentFlags())
	if err != nil {
		return err
	}
	defer a.close()

	return a.launch(ctx)
}

func (a *app) launch(ctx context.Context) error {
	st := a.updater.Check(ctx)
	if !st.CanPlay() {
		fmt.Println(report.RenderStatus(st, report.TermWidth(), a.theme))

		return errors.Wrapf(updater.ErrNotAllowed, "cannot launch while %s", st.State)
	}

	executable := a.cfg.GetInstall().Executable
	if executable == "" {
		return ErrNoExecutable
	}

	path, err := launch.Find(a.updater.InstallRoot(), executable)
	if err != nil {
		return err
	}

	clientID, err := a.updater.EnsureClientID(ctx)
	if err != nil {
		a.log.Error("client id unavailable", "error", err)
	}

	launcher := launch.New(
		launch.WithStarter(exec.NewStarter()),
		launch.WithReporter(a.reporter),
		launch.WithLogger(a.log),
	)

	proc, err := launcher.Start(ctx, path, clientID, st.InstalledTag)
	if err != nil {
		return err
	}

	fmt.Println(a.theme.OK.Render(fmt.Sprintf("Started %s (pid %d)", proc.Path, proc.Pid)))

	return nil
}
