package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/resilience"
	"github.com/sells-group/warehouse-agent/pkg/anthropic"
	"github.com/sells-group/warehouse-agent/pkg/openai"
)

const defaultMaxTokens = 1024

func maxTokens(cfg config.LLMConfig) int {
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return defaultMaxTokens
}

func httpTimeout(cfg config.LLMConfig) time.Duration {
	if cfg.TimeoutSecs > 0 {
		return time.Duration(cfg.TimeoutSecs) * time.Second
	}
	return 60 * time.Second
}

// chatBackend serves groq and openai through the OpenAI-compatible client.
type chatBackend struct {
	client    openai.Client
	modelName string
	maxTokens int
}

func newChatBackend(cfg config.LLMConfig, baseURL, defaultBase, defaultModel string) (backend, error) {
	if baseURL == "" {
		baseURL = defaultBase
	}
	m := cfg.Model()
	if m == "" {
		m = defaultModel
	}
	client := openai.NewClient(cfg.APIKey(),
		openai.WithName(cfg.Provider),
		openai.WithBaseURL(baseURL),
		openai.WithModel(m),
		openai.WithHTTPClient(&http.Client{Timeout: httpTimeout(cfg)}),
		openai.WithRetry(resilience.FromRetryConfig(cfg.MaxRetries, 0, 0)),
	)
	return &chatBackend{client: client, modelName: m, maxTokens: maxTokens(cfg)}, nil
}

func newGroq(cfg config.LLMConfig) (backend, error) {
	return newChatBackend(cfg, cfg.GroqBaseURL, openai.GroqBaseURL, "llama-3.3-70b-versatile")
}

func newOpenAI(cfg config.LLMConfig) (backend, error) {
	return newChatBackend(cfg, cfg.OpenAIBaseURL, openai.OpenAIBaseURL, "gpt-4o")
}

func (b *chatBackend) model() string { return b.modelName }

func (b *chatBackend) complete(ctx context.Context, system, user string) (string, Usage, error) {
	mt := b.maxTokens
	resp, err := b.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.modelName,
		Messages: []openai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: &mt,
	})
	if err != nil {
		return "", Usage{}, err
	}
	return resp.Text(), Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// messagesBackend serves anthropic through the SDK.
type messagesBackend struct {
	client    anthropic.Client
	modelName string
	maxTokens int
}

func newAnthropic(cfg config.LLMConfig) (backend, error) {
	m := cfg.AnthropicModel
	if m == "" {
		m = "claude-sonnet-4-20250514"
	}
	opts := []anthropic.Option{
		anthropic.WithHTTPClient(&http.Client{Timeout: httpTimeout(cfg)}),
	}
	if cfg.AnthropicBaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.AnthropicBaseURL))
	}
	if cfg.MaxRetries > 0 {
		// The SDK counts retries after the first attempt.
		opts = append(opts, anthropic.WithMaxRetries(cfg.MaxRetries-1))
	}
	return &messagesBackend{
		client:    anthropic.NewClient(cfg.AnthropicKey, opts...),
		modelName: m,
		maxTokens: maxTokens(cfg),
	}, nil
}

func (b *messagesBackend) model() string { return b.modelName }

func (b *messagesBackend) complete(ctx context.Context, system, user string) (string, Usage, error) {
	resp, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     b.modelName,
		MaxTokens: int64(b.maxTokens),
		// The schema summary is identical across every call for one question.
		System:   []anthropic.SystemBlock{{Text: system, Cache: true}},
		Messages: []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", Usage{}, err
	}
	return resp.Text(), Usage{
		InputTokens:     int(resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens),
		OutputTokens:    int(resp.Usage.OutputTokens),
		CacheReadTokens: int(resp.Usage.CacheReadInputTokens),
	}, nil
}
