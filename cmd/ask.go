package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/warehouse-agent/internal/model"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question",
	Long: "Generates SQL for the question, runs it against the warehouse (fixing failed queries), " +
		"and prints a summary of the results.",
	Example: `  warehouse-agent ask "How much revenue did we do last quarter?"
  warehouse-agent ask "What are the top 5 products by sales?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := answerWithSpinner(ctx, s, strings.Join(args, " "))
		if err != nil {
			return eris.Wrap(err, "ask")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		pterm.Println(formatAnswer(res))
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("json", false, "print the full answer as JSON")
	rootCmd.AddCommand(askCmd)
}

// answerWithSpinner runs one question behind a progress spinner.
func answerWithSpinner(ctx context.Context, s *session, question string) (*model.AnswerResult, error) {
	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Thinking...")
	res, err := s.ask(ctx, question)
	if spinner != nil {
		_ = spinner.Stop()
	}
	return res, err
}
