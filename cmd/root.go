package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-agent/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "warehouse-agent",
	Short: "Ask questions of a data warehouse in plain English",
	Long: "Discovers the warehouse schema, turns questions into SQL with a language model, " +
		"repairs failing queries, and summarizes the results. Runs an interactive session when called without a command.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := applyFlags(cmd, c); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runREPL(cmd.Context(), os.Stdin)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("provider", "", "completion provider (groq, openai, anthropic)")
	pf.Int("retries", 0, "SQL fix attempts after a failed query (overrides agent.max_retries)")
	pf.String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
}

// applyFlags overlays explicitly set global flags on the loaded config.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		p, _ := flags.GetString("provider")
		c.LLM.Provider = strings.ToLower(strings.TrimSpace(p))
	}
	if flags.Changed("retries") {
		n, _ := flags.GetInt("retries")
		if n < 0 {
			return eris.New("--retries must be >= 0")
		}
		c.Agent.MaxRetries = n
	}
	if flags.Changed("metrics-addr") {
		c.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			pterm.Error.Println(err.Error())
		}
		os.Exit(1)
	}
}
