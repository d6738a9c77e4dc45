package main

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/warehouse-agent/internal/warehouse"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the warehouse schema summary",
	Long:  "Prints the tables, columns and row counts the language model sees.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if strings.TrimSpace(cfg.Warehouse.DSN) == "" {
			return eris.New("config: warehouse.dsn is required (set WAREHOUSE_DSN)")
		}
		schemas := cfg.Warehouse.Schemas
		if cmd.Flags().Changed("schema") {
			schemas, _ = cmd.Flags().GetStringSlice("schema")
		}

		wh, err := warehouse.Open(ctx, cfg.Warehouse)
		if err != nil {
			return eris.Wrap(err, "open warehouse")
		}
		defer wh.Close() //nolint:errcheck

		summary, err := wh.Summary(ctx, schemas)
		if err != nil {
			return eris.Wrap(err, "schema")
		}
		pterm.Println(summary.String())
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringSlice("schema", nil, "restrict to these schemas (repeatable)")
	rootCmd.AddCommand(schemaCmd)
}
