package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/signalnine/vadtune/internal/config"
)

var (
	cfgFile      string
	flagLogLevel string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vadtune",
		Short:         "Debug and tune VAD parameters against the simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.AddCommand(newDebugCmd())
	root.AddCommand(newOptimizeCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newReportCmd())
	return root
}

// loadConfig resolves the tool config: .env, then the YAML file, then
// VADTUNE_* variables, then flags. The default config file may be absent.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, nil, err
	}
	load := config.LoadOptional
	if cmd.Flags().Changed("config") {
		load = config.Load
	}
	cfg, err := load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, config.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel), nil
}
