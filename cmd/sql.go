package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var sqlCmd = &cobra.Command{
	Use:     "sql <question>",
	Short:   "Generate SQL for a question without executing it",
	Example: `  warehouse-agent sql "Show me monthly revenue trends"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		query, err := s.agent.GenerateSQL(ctx, strings.Join(args, " "))
		if err != nil {
			return eris.Wrap(err, "sql")
		}

		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Println(query)
			return nil
		}
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("SQL")).
			WithPadding(1).
			Println(query)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sqlCmd)
}
