package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/warehouse-agent/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"repl", "ask", "sql", "schema", "history", "auth", "config"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "warehouse-agent", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.RunE, "bare invocation starts the REPL")
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	for _, name := range []string{"provider", "retries", "metrics-addr"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestHistoryCommand_Flags(t *testing.T) {
	flag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)

	names := make(map[string]bool)
	for _, c := range historyCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["show"])
	assert.True(t, names["prune"])
}

func TestAuthCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range authCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"set", "delete", "status"} {
		assert.True(t, names[name], name)
	}
	assert.Equal(t, config.Providers, authSetCmd.ValidArgs)
}

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String("provider", "", "")
	cmd.Flags().Int("retries", 0, "")
	cmd.Flags().String("metrics-addr", "", "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestApplyFlags(t *testing.T) {
	c := &config.Config{
		LLM:     config.LLMConfig{Provider: "groq"},
		Agent:   config.AgentConfig{MaxRetries: 2},
		Metrics: config.MetricsConfig{Addr: ":1"},
	}

	require.NoError(t, applyFlags(newFlagCmd(t), c))
	assert.Equal(t, "groq", c.LLM.Provider, "unset flags leave config alone")
	assert.Equal(t, 2, c.Agent.MaxRetries)
	assert.Equal(t, ":1", c.Metrics.Addr)

	require.NoError(t, applyFlags(newFlagCmd(t, "--provider", " OpenAI ", "--retries", "0", "--metrics-addr", ":9090"), c))
	assert.Equal(t, "openai", c.LLM.Provider)
	assert.Equal(t, 0, c.Agent.MaxRetries)
	assert.Equal(t, ":9090", c.Metrics.Addr)

	err := applyFlags(newFlagCmd(t, "--retries", "-1"), c)
	assert.ErrorContains(t, err, "--retries must be >= 0")
}
