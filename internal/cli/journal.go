package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridtrader/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the SQLite journal",
		Long: `Query trade and optimizer records from the SQLite journal.

Subcommands:
  trade <trade-id>  - Details of one trade
  trades <run-id>   - Every trade of a backtest run
  run <run-id>      - Org report of an optimizer run`,
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path)")

	open := func() (*journal.SQLite, error) {
		path := dbPath
		if path == "" {
			path = rc.Config.Journal.DBPath
		}
		if path == "" {
			return nil, fmt.Errorf("no journal database: set --db or journal.db_path")
		}
		j, err := journal.NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	tradeCmd := &cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Get details of a specific trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetTrade(args[0])
			if err != nil {
				return fmt.Errorf("get trade: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
			return nil
		},
	}

	tradesCmd := &cobra.Command{
		Use:   "trades <run-id>",
		Short: "List the trades of a backtest run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.ListTradesByRunID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		},
	}

	var topN int
	runCmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Print the Org report of an optimizer run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			org, err := j.ExportBacktestOrg(cmd.Context(), args[0], topN)
			if err != nil {
				return fmt.Errorf("export run: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), org)
			return nil
		},
	}
	runCmd.Flags().IntVar(&topN, "top", 10, "Result rows to include")

	cmd.AddCommand(tradeCmd, tradesCmd, runCmd)
	return cmd
}
