package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxforecast/config"
	"github.com/rustyeddy/fxforecast/internal/logging"
)

func newConfigCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage fxforecast configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  fxforecast config init --output fxforecast.yaml
  fxforecast config validate --file fxforecast.yaml`,
		// A broken config must not stop these commands from running.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(rc.LogLevel, rc.NoColor)
			return nil
		},
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nSet auth.jwt_secret (or "+config.EnvJWTSecret+") to enable accounts, then run:")
			fmt.Fprintf(out, "  fxforecast --config %s serve\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "fxforecast.yaml", "output config file path")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  Server: %s\n", cfg.Server.Addr)
			switch cfg.Store.Type {
			case "rest":
				fmt.Fprintf(out, "  Store: rest (%s)\n", cfg.Store.BackendURL)
			default:
				fmt.Fprintf(out, "  Store: sqlite (%s)\n", cfg.Store.DBPath)
			}
			fmt.Fprintf(out, "  Defaults: risk %.2f%%, pair %s\n", cfg.Defaults.RiskPercent, cfg.Defaults.CurrencyPair)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (required)")
	cmd.MarkFlagRequired("file")
	return cmd
}
