// Command finplan runs retirement simulations over a user file and any
// number of scenario sets, validates input documents, serves the engine
// over HTTP and lists archived runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app carries what every subcommand shares once flags are parsed.
type app struct {
	v        *viper.Viper
	settings *config.Settings
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "finplan",
		Short: "Retirement portfolio simulator",
		Long: `finplan projects a retirement portfolio month by month from a base
user file and layered scenario files, under deterministic and Monte Carlo
market assumptions.

Settings come from defaults, an optional --config file, FINPLAN_*
environment variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "settings file (yaml, json or toml)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (console, json)")
	pf.String("log-file", "", "write logs to this file instead of stderr")

	root.AddCommand(
		newRunCmd(a),
		newValidateCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	configFile, _ := cmd.Flags().GetString("config")
	settings, err := config.LoadSettings(a.v, configFile)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.Logging)
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger = logger
	return nil
}

// engine builds a calculation engine logging through zap, with the
// historical dataset loaded when one is configured.
func (a *app) engine() (*calculation.CalculationEngine, error) {
	engine := calculation.NewCalculationEngine()
	engine.SetLogger(a.logger.Sugar())
	if a.settings.Historical == "" {
		return engine, nil
	}

	hdm := calculation.NewHistoricalDataManager(a.settings.Historical)
	if err := hdm.LoadAllData(); err != nil {
		return nil, err
	}
	issues, err := hdm.ValidateDataQuality()
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		a.logger.Warn("historical data: "+issue, zap.String("op", "engine"))
	}
	engine.HistoricalData = hdm
	return engine, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "finplan version %s\n", version)
		},
	}
}
