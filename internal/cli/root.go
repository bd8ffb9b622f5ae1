package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxforecast/config"
	"github.com/rustyeddy/fxforecast/internal/logging"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// RootConfig carries the global flags and the loaded configuration to the
// subcommands.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
	NoColor    bool

	Config *config.Config
}

// load reads the configuration and lets explicit flags override it.
func (rc *RootConfig) load(cmd *cobra.Command) error {
	cfg, err := config.Load(rc.ConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Store.Type = "sqlite"
		cfg.Store.DBPath = rc.DBPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = rc.LogLevel
	}
	if flags.Changed("no-color") {
		cfg.Log.NoColor = rc.NoColor
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.NoColor)
	rc.Config = cfg
	return nil
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "fxforecast",
		Short:         "FXFORECAST trading tools: position sizing, ADR exits and risk guard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "", "SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&rc.NoColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.load(cmd)
	}

	// Subcommands
	cmd.AddCommand(
		newPositionSizeCmd(rc),
		newADRExitCmd(rc),
		newRiskGuardCmd(rc),
		newInstrumentsCmd(rc),
		newDashboardCmd(rc),
		newServeCmd(rc),
		newUserCmd(rc),
		newCalcCmd(rc),
		newConfigCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fxforecast (%s)\n", Version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
