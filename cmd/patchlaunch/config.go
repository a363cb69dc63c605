package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	internalconfig "github.com/smykla-skalski/patchlaunch/internal/config"
)

// ErrConfigExists is returned by config init when the target file exists.
var ErrConfigExists = errors.New("configuration file already exists")

var (
	initGlobal bool
	initForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file from the current settings",
	Long: `Write a configuration file from the current settings.

Values come from defaults, existing files, PATCHLAUNCH_* variables and the
flags given on the command line. The access token is never written.

Examples:
  patchlaunch config init --project group/game
  patchlaunch config init --global --source cloud`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().BoolVar(&initGlobal, "global", false, "Write the global config instead of the project one")
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}

	cfg, err := loader.LoadWithoutValidation(changedFlags(rootCmd.PersistentFlags()))
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	writer, err := internalconfig.NewWriter()
	if err != nil {
		return err
	}

	path := writer.ProjectConfigPath()
	exists := writer.IsProjectConfigExists()

	if initGlobal {
		path = writer.GlobalConfigPath()
		exists = writer.IsGlobalConfigExists()
	}

	if exists && !initForce {
		return errors.Wrapf(ErrConfigExists, "%s (use --force to overwrite)", path)
	}

	if err := writer.WriteFile(path, cfg); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)

	if err := internalconfig.NewValidator().Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(rootCmd.PersistentFlags())
	if err != nil {
		return err
	}

	out := *cfg

	if cfg.Remote != nil && cfg.Remote.Token != "" {
		remote := *cfg.Remote
		remote.Token = "***"
		out.Remote = &remote
	}

	enc := toml.NewEncoder(os.Stdout)
	enc.SetIndentTables(true)

	return errors.Wrap(enc.Encode(&out), "encoding config")
}
