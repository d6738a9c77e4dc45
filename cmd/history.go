package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/warehouse-agent/internal/model"
	"github.com/sells-group/warehouse-agent/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded answers",
	Long:  "Lists questions recorded in the run store, newest first. Requires store.driver to be sqlite or postgres.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{Status: model.RunStatus(status), Limit: limit})
		if err != nil {
			return eris.Wrap(err, "history")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a recorded answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "history show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete recorded answers older than a cutoff",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		age, _ := cmd.Flags().GetDuration("older-than")
		n, err := st.DeleteBefore(ctx, time.Now().Add(-age))
		if err != nil {
			return eris.Wrap(err, "history prune")
		}
		fmt.Fprintf(os.Stderr, "Deleted %d runs.\n", n)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate answer statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "history stats")
		}
		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	historyCmd.Flags().String("status", "", "filter by status (answered, exhausted, failed)")
	historyCmd.Flags().Int("limit", 20, "max number of runs to display")

	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete runs older than this")

	historyStatsCmd.Flags().Int("limit", 1000, "number of recent runs to aggregate")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open run store")
	}
	return st, nil
}

// formatRunsList writes a tabular list of runs to out.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tATTEMPTS\tDURATION\tQUESTION")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t--------\t--------\t--------")

	for _, r := range runs {
		dur := (time.Duration(r.DurationMs) * time.Millisecond).Round(10 * time.Millisecond)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Status,
			r.AttemptsUsed,
			dur,
			truncate(oneLine(r.Question), 60),
		)
	}
	_ = w.Flush()
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total       int
	Answered    int
	Exhausted   int
	Failed      int
	FirstTry    int
	AvgAttempts float64
	AvgDurSecs  float64
}

func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var attempts, executed int
	var dur time.Duration
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusAnswered:
			s.Answered++
			if r.AttemptsUsed == 1 {
				s.FirstTry++
			}
		case model.RunStatusExhausted:
			s.Exhausted++
		default:
			s.Failed++
		}
		if r.AttemptsUsed > 0 {
			attempts += r.AttemptsUsed
			executed++
			dur += time.Duration(r.DurationMs) * time.Millisecond
		}
	}
	if executed > 0 {
		s.AvgAttempts = float64(attempts) / float64(executed)
		s.AvgDurSecs = dur.Seconds() / float64(executed)
	}
	return s
}

func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Answered:\t%d\n", s.Answered)
	_, _ = fmt.Fprintf(w, "  First try:\t%d\n", s.FirstTry)
	_, _ = fmt.Fprintf(w, "Exhausted:\t%d\n", s.Exhausted)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	if s.AvgAttempts > 0 {
		_, _ = fmt.Fprintf(w, "Avg attempts:\t%.2f\n", s.AvgAttempts)
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
