// Package config loads warehouse-agent configuration from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Providers is the closed set of completion providers.
var Providers = []string{"groq", "openai", "anthropic"}

// WarehouseDrivers is the set of supported warehouse engines.
var WarehouseDrivers = []string{"duckdb", "postgres", "sqlite", "sqlserver"}

// StoreDrivers is the set of supported run-history backends.
var StoreDrivers = []string{"none", "sqlite", "postgres"}

// Config holds the full application configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Agent     AgentConfig     `yaml:"agent" mapstructure:"agent"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"`
	GroqKey           string `yaml:"groq_api_key" mapstructure:"groq_api_key"`
	OpenAIKey         string `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	AnthropicKey      string `yaml:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	GroqModel         string `yaml:"groq_model" mapstructure:"groq_model"`
	OpenAIModel       string `yaml:"openai_model" mapstructure:"openai_model"`
	AnthropicModel    string `yaml:"anthropic_model" mapstructure:"anthropic_model"`
	GroqBaseURL       string `yaml:"groq_base_url" mapstructure:"groq_base_url"`
	OpenAIBaseURL     string `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	AnthropicBaseURL  string `yaml:"anthropic_base_url" mapstructure:"anthropic_base_url"`
	MaxTokens         int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// APIKey returns the key configured for the selected provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "groq":
		return c.GroqKey
	case "openai":
		return c.OpenAIKey
	case "anthropic":
		return c.AnthropicKey
	}
	return ""
}

// SetAPIKey stores key for provider. Unknown providers are ignored.
func (c *LLMConfig) SetAPIKey(provider, key string) {
	switch provider {
	case "groq":
		c.GroqKey = key
	case "openai":
		c.OpenAIKey = key
	case "anthropic":
		c.AnthropicKey = key
	}
}

// Model returns the model configured for the selected provider.
func (c LLMConfig) Model() string {
	switch c.Provider {
	case "groq":
		return c.GroqModel
	case "openai":
		return c.OpenAIModel
	case "anthropic":
		return c.AnthropicModel
	}
	return ""
}

// WarehouseConfig configures the analytical database connection.
type WarehouseConfig struct {
	Driver   string   `yaml:"driver" mapstructure:"driver"`
	DSN      string   `yaml:"dsn" mapstructure:"dsn"`
	Schemas  []string `yaml:"schemas" mapstructure:"schemas"`
	ReadOnly bool     `yaml:"read_only" mapstructure:"read_only"`
}

// AgentConfig tunes the question-answering loop.
type AgentConfig struct {
	MaxRetries     int  `yaml:"max_retries" mapstructure:"max_retries"`
	MaxSummaryRows int  `yaml:"max_summary_rows" mapstructure:"max_summary_rows"`
	SkipSummary    bool `yaml:"skip_summary" mapstructure:"skip_summary"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MetricsConfig configures the prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names, prefixed form first.
	bindings := map[string][]string{
		"llm.provider":          {"AGENT_LLM_PROVIDER", "LLM_PROVIDER"},
		"llm.groq_api_key":      {"AGENT_LLM_GROQ_API_KEY", "GROQ_API_KEY"},
		"llm.openai_api_key":    {"AGENT_LLM_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"llm.anthropic_api_key": {"AGENT_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"warehouse.dsn":         {"AGENT_WAREHOUSE_DSN", "WAREHOUSE_DSN"},
		"warehouse.driver":      {"AGENT_WAREHOUSE_DRIVER", "WAREHOUSE_DRIVER"},
		"agent.max_retries":     {"AGENT_AGENT_MAX_RETRIES", "AGENT_MAX_RETRIES"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.groq_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.openai_model", "gpt-4o")
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.groq_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic_base_url", "")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.requests_per_minute", 30)
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("warehouse.driver", "duckdb")
	v.SetDefault("warehouse.schemas", []string{})
	v.SetDefault("warehouse.read_only", true)
	v.SetDefault("agent.max_retries", 2)
	v.SetDefault("agent.max_summary_rows", 20)
	v.SetDefault("agent.skip_summary", false)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Warehouse.Driver = strings.ToLower(strings.TrimSpace(cfg.Warehouse.Driver))

	return &cfg, nil
}

// KeyLookup returns a stored API key for a provider, or "" when none exists.
type KeyLookup func(provider string) (string, error)

// ResolveAPIKey fills in the selected provider's key from lookup when the
// environment and config file left it empty.
func (c *Config) ResolveAPIKey(lookup KeyLookup) error {
	if c.LLM.APIKey() != "" || lookup == nil || !slices.Contains(Providers, c.LLM.Provider) {
		return nil
	}
	key, err := lookup(c.LLM.Provider)
	if err != nil {
		return eris.Wrapf(err, "config: lookup %s api key", c.LLM.Provider)
	}
	c.LLM.SetAPIKey(c.LLM.Provider, key)
	return nil
}

// Validate reports every fatal configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !slices.Contains(Providers, c.LLM.Provider) {
		errs = append(errs, "llm.provider must be one of "+strings.Join(Providers, ", ")+", got "+c.LLM.Provider)
	} else if c.LLM.APIKey() == "" {
		errs = append(errs, "llm."+c.LLM.Provider+"_api_key is required (set "+strings.ToUpper(c.LLM.Provider)+"_API_KEY or run `warehouse-agent auth set "+c.LLM.Provider+"`)")
	}
	if !slices.Contains(WarehouseDrivers, c.Warehouse.Driver) {
		errs = append(errs, "warehouse.driver must be one of "+strings.Join(WarehouseDrivers, ", "))
	}
	if strings.TrimSpace(c.Warehouse.DSN) == "" {
		errs = append(errs, "warehouse.dsn is required (set WAREHOUSE_DSN)")
	}
	if c.Agent.MaxRetries < 0 {
		errs = append(errs, "agent.max_retries must be >= 0")
	}
	if c.Agent.MaxSummaryRows < 1 {
		errs = append(errs, "agent.max_summary_rows must be >= 1")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "llm.max_tokens must be >= 1")
	}
	if !slices.Contains(StoreDrivers, c.Store.Driver) {
		errs = append(errs, "store.driver must be one of "+strings.Join(StoreDrivers, ", "))
	} else if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the postgres store")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

const redacted = "********"

// Redacted returns a copy of the configuration with secrets masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}
	c.LLM.GroqKey = mask(c.LLM.GroqKey)
	c.LLM.OpenAIKey = mask(c.LLM.OpenAIKey)
	c.LLM.AnthropicKey = mask(c.LLM.AnthropicKey)
	c.Warehouse.DSN = redactDSN(c.Warehouse.DSN)
	c.Store.DatabaseURL = redactDSN(c.Store.DatabaseURL)
	c.Warehouse.Schemas = slices.Clone(c.Warehouse.Schemas)
	return c
}

// redactDSN masks the password of URL-style DSNs and key=value password
// fields. File paths pass through unchanged.
func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		rest := dsn[i+3:]
		at := strings.LastIndex(rest, "@")
		if at < 0 {
			return dsn
		}
		userinfo := rest[:at]
		if colon := strings.IndexByte(userinfo, ':'); colon >= 0 {
			return dsn[:i+3] + userinfo[:colon+1] + redacted + rest[at:]
		}
		return dsn
	}

	parts := strings.Split(dsn, ";")
	if len(parts) == 1 {
		parts = strings.Fields(dsn)
		for j, p := range parts {
			if k, _, ok := strings.Cut(p, "="); ok && strings.EqualFold(k, "password") {
				parts[j] = k + "=" + redacted
			}
		}
		return strings.Join(parts, " ")
	}
	for j, p := range parts {
		if k, _, ok := strings.Cut(p, "="); ok && strings.EqualFold(strings.TrimSpace(k), "password") {
			parts[j] = k + "=" + redacted
		}
	}
	return strings.Join(parts, ";")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
