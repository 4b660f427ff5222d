package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridtrader/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  trader config init -o trader.yaml
  trader config validate -f trader.yaml`,
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  trader --config %s optimize\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "trader.yaml", "output config file path")

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  Account:   $%.2f (sizing %s)\n", cfg.Account.StartingBalance, cfg.Sizing.Mode)
			fmt.Fprintf(out, "  Strategy:  %s (%s, %d workers)\n", cfg.Optimizer.Strategy, cfg.Optimizer.Mode, cfg.Optimizer.Workers)
			fmt.Fprintf(out, "  Data:      %s %v x %v\n", cfg.Data.Dir, cfg.Data.Symbols, cfg.Data.Intervals)
			fmt.Fprintf(out, "  Journal:   %s\n", cfg.Journal.Type)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("file")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
