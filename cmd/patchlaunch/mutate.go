package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/report"
	"github.com/smykla-skalski/patchlaunch/internal/updater"
)

// mutation is one of the installation-changing operations of the updater.
type mutation func(u *updater.Updater, ctx context.Context, sink progress.Sink) error

var launchAfter bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download and install the latest release",
	Long: `Download and install the latest release.

Fetches the full release archive (over HTTP or from the configured cloud
bucket), extracts it into the installation directory and records the
installed revision. Only available when nothing is installed yet.

Examples:
  patchlaunch install              # Install the latest release
  patchlaunch install --launch     # Install, then start the game`,
	Args: cobra.NoArgs,
	RunE: mutationRunner("install", (*updater.Updater).Install),
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Patch the installation to the latest release",
	Long: `Patch the installation to the latest release.

Compares the installed revision with the latest release, deletes the files
removed in between and downloads the files added or changed. The recorded
revision only moves forward when every step succeeded.`,
	Args: cobra.NoArgs,
	RunE: mutationRunner("update", (*updater.Updater).Update),
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Remove the installation and install it again",
	Long: `Remove the installation and install it again.

Deletes the installation directory and any leftover archive, then performs
a fresh install. Use this when status reports that a repair is required.`,
	Args: cobra.NoArgs,
	RunE: mutationRunner("recover", (*updater.Updater).Recover),
}

func init() {
	for _, cmd := range []*cobra.Command{installCmd, updateCmd, recoverCmd} {
		cmd.Flags().BoolVar(&launchAfter, "launch", false, "Launch the game after success")
		rootCmd.AddCommand(cmd)
	}
}

func mutationRunner(name string, run mutation) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		a, err := newApp(rootCmd.PersistentFlags())
		if err != nil {
			return err
		}
		defer a.close()

		a.log.Info("mutation requested", "operation", name)

		if _, err := a.updater.EnsureClientID(ctx); err != nil {
			a.log.Error("client id unavailable", "error", err)
		}

		sink := progress.NewWriter(os.Stderr)

		if err := run(a.updater, ctx, sink); err != nil {
			if errors.Is(err, updater.ErrNotAllowed) {
				fmt.Println(report.RenderStatus(a.updater.Status(), report.TermWidth(), a.theme))
			}

			return errors.Wrapf(err, "%s failed", name)
		}

		fmt.Println(report.RenderStatus(a.updater.Status(), report.TermWidth(), a.theme))

		if !launchAfter {
			return nil
		}

		return a.launch(ctx)
	}
}
