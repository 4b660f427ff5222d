package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/gridtrader/config"
	"github.com/rustyeddy/gridtrader/logging"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

// RootConfig carries the global flags and what PersistentPreRunE builds
// from them.
type RootConfig struct {
	ConfigPath string
	LogLevel   string
	DataDir    string

	Config *config.Config
	Log    *zap.Logger
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "trader",
		Short:         "Candle backtests and train/test parameter optimization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional, YAML or JSON)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.DataDir, "data", "", "Candle data directory (overrides data.dir)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.load(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if rc.Log != nil {
			_ = rc.Log.Sync()
		}
	}

	cmd.AddCommand(
		newBacktestCmd(rc),
		newOptimizeCmd(rc),
		newWalkForwardCmd(rc),
		newGapsCmd(rc),
		newStrategiesCmd(),
		newConfigCmd(),
		newJournalCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trader %s\n", Version)
		},
	})

	return cmd
}

func (rc *RootConfig) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(rc.ConfigPath); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("log-level") || rc.ConfigPath == "" {
		cfg.Log.Level = rc.LogLevel
	}
	if rc.DataDir != "" {
		cfg.Data.Dir = rc.DataDir
	}

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	rc.Config = cfg
	rc.Log = log
	return nil
}

// Execute runs the CLI. Ctrl-C cancels a running optimization, which then
// saves the rows finished so far.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
