package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/metrics"
	"github.com/sells-group/warehouse-agent/pkg/openai"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "DATABASE SCHEMA:", req.Messages[0].Content)
		assert.Equal(t, "How many orders?", req.Messages[1].Content)
		require.NotNil(t, req.MaxTokens)
		assert.Equal(t, 1024, *req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":    "cmpl-1",
			"model": req.Model,
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{"prompt_tokens": 1000, "completion_tokens": 100, "total_tokens": 1100},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func groqConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    "groq",
		GroqKey:     "gsk-test",
		GroqModel:   "llama-3.3-70b-versatile",
		GroqBaseURL: baseURL,
		MaxTokens:   1024,
		MaxRetries:  1,
	}
}

func TestNew_Groq(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "```sql\nSELECT count(*) FROM marts.fct_orders\n```")
	rec := metrics.NewRecorder()

	c, err := New(groqConfig(srv.URL), WithMetrics(rec))
	require.NoError(t, err)
	assert.Equal(t, "groq", c.Name())

	out, err := c.Complete(context.Background(), "DATABASE SCHEMA:", "How many orders?")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT count(*)")

	n, err := testutil.GatherAndCount(rec.Registry(), "warehouse_agent_llm_tokens_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = testutil.GatherAndCount(rec.Registry(), "warehouse_agent_llm_cost_usd_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_OpenAI(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "SELECT 1")

	c, err := New(config.LLMConfig{
		Provider:      "OpenAI",
		OpenAIKey:     "sk-test",
		OpenAIBaseURL: srv.URL,
		MaxTokens:     1024,
		MaxRetries:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	out, err := c.Complete(context.Background(), "DATABASE SCHEMA:", "How many orders?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)
}

func TestNew_DefaultsToGroq(t *testing.T) {
	c, err := New(config.LLMConfig{GroqKey: "gsk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultProvider, c.Name())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "mistral", GroqKey: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "mistral"`)
	assert.Contains(t, err.Error(), "anthropic, groq, openai")

	_, err = New(config.LLMConfig{Provider: "anthropic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
}

func TestComplete_ProviderErrorIsMarked(t *testing.T) {
	srv := chatServer(t, http.StatusUnauthorized, "")

	c, err := New(groqConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "DATABASE SCHEMA:", "How many orders?")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "llm: groq")

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestComplete_EmptyCompletion(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "   ")

	c, err := New(groqConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "DATABASE SCHEMA:", "How many orders?")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "empty completion")
}

func TestNew_Anthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/messages")
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
		assert.InDelta(t, 1024, body["max_tokens"], 0)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": "Revenue grew 12%."}},
			"model":       "claude-sonnet-4-20250514",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	c, err := New(config.LLMConfig{
		Provider:         "anthropic",
		AnthropicKey:     "sk-ant",
		AnthropicBaseURL: srv.URL,
		MaxTokens:        1024,
		MaxRetries:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	core, logs := observer.New(zapcore.DebugLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	out, err := c.Complete(context.Background(), "You are a helpful data analyst.", "Summarize")
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12%.", out)

	costLines := logs.Filter(func(e observer.LoggedEntry) bool {
		_, ok := e.ContextMap()["estimated_cost_usd"]
		return ok
	})
	require.Equal(t, 1, costLines.Len())
	entry := costLines.All()[0]
	assert.Equal(t, "anthropic", entry.ContextMap()["provider"])
	assert.Equal(t, int64(10), entry.ContextMap()["input_tokens"])
}

func TestComplete_RateLimitHonoursContext(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "SELECT 1")

	cfg := groqConfig(srv.URL)
	cfg.RequestsPerMinute = 1
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "DATABASE SCHEMA:", "How many orders?")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, "DATABASE SCHEMA:", "How many orders?")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestNames_MatchConfig(t *testing.T) {
	assert.ElementsMatch(t, config.Providers, Names())
}

func TestProviderError(t *testing.T) {
	cause := errors.New("boom")
	err := wrapProvider("groq", cause)
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "llm: groq: boom", err.Error())
	assert.NoError(t, wrapProvider("groq", nil))
}
