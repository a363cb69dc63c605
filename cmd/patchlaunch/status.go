package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/smykla-skalski/patchlaunch/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the installed and latest revisions",
	Long: `Show the installed and latest revisions.

Resolves the newest release of the configured project, compares it with the
persisted revision and prints the state of the installation together with
the actions currently available.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(rootCmd.PersistentFlags())
	if err != nil {
		return err
	}
	defer a.close()

	st := a.updater.Check(ctx)

	fmt.Println(report.RenderStatus(st, report.TermWidth(), a.theme))

	return nil
}
