package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for dbchat-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (SQL Server, read-only credential)
	Database DatabaseConfig `yaml:"database"`

	// Language model configuration
	LLM LLMConfig `yaml:"llm"`

	// Chat pipeline limits
	Chat ChatConfig `yaml:"chat"`

	// Paths to the table-mapping, follow-up phrase, and user files.
	// Compiled-in defaults are used when a path is empty.
	MappingsPath string `yaml:"mappings_path" env:"MAPPINGS_PATH" env-default:""`
	PatternsPath string `yaml:"patterns_path" env:"PATTERNS_PATH" env-default:""`
	UsersPath    string `yaml:"users_path" env:"USERS_PATH" env-default:""`
}

// DatabaseConfig holds SQL Server connection configuration.
// The credential is expected to be read-only; SQL validation is
// defense-in-depth, not the sole safeguard.
type DatabaseConfig struct {
	Host                   string `yaml:"host" env:"DB_SERVER" env-default:"localhost"`
	Port                   int    `yaml:"port" env:"DB_PORT" env-default:"1433"`
	User                   string `yaml:"user" env:"DB_USER" env-default:"sa"`
	Password               string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Database               string `yaml:"database" env:"DB_DATABASE" env-default:""`
	Encrypt                bool   `yaml:"encrypt" env:"DB_ENCRYPT" env-default:"false"`
	TrustServerCertificate bool   `yaml:"trust_server_certificate" env:"DB_TRUST_CERT" env-default:"true"`
	ConnectionTimeout      int    `yaml:"connection_timeout" env:"DB_CONNECTION_TIMEOUT" env-default:"15"`
	MaxOpenConns           int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns           int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"2"`
}

// LLMConfig holds language model endpoint configuration.
// Provider selects between OpenAI-compatible endpoints and Anthropic.
type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.2"`
}

// ChatConfig holds pipeline limits and session settings.
type ChatConfig struct {
	// HistoryLimit is the per-session message cap; oldest messages are
	// evicted first once over the cap.
	HistoryLimit int `yaml:"history_limit" env:"CHAT_HISTORY_LIMIT" env-default:"20"`
	// RateLimitRequests per RateLimitWindowSeconds per session id.
	RateLimitRequests      int `yaml:"rate_limit_requests" env:"CHAT_RATE_LIMIT_REQUESTS" env-default:"30"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds" env:"CHAT_RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
	// SessionIdleTTLMinutes is how long an idle session is kept before the
	// sweeper evicts it.
	SessionIdleTTLMinutes int `yaml:"session_idle_ttl_minutes" env:"CHAT_SESSION_IDLE_TTL_MINUTES" env-default:"120"`
	// SampleRows is how many sample rows the schema cache loads per table.
	SampleRows int `yaml:"sample_rows" env:"CHAT_SAMPLE_ROWS" env-default:"2"`
	// TranscriptExchanges is how many recent exchanges the answer prompt
	// renders as conversation context.
	TranscriptExchanges int `yaml:"transcript_exchanges" env:"CHAT_TRANSCRIPT_EXCHANGES" env-default:"5"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml is absent the environment alone is used.
// The version parameter is injected at build time and set on the returned
// Config. Secrets (DB_PASSWORD, LLM_API_KEY) must come from environment
// variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("invalid llm provider %q (want openai or anthropic)", c.LLM.Provider)
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat history_limit must be positive, got %d", c.Chat.HistoryLimit)
	}
	return nil
}

// ConnectionString returns a sqlserver:// connection URL for go-mssqldb.
func (c *DatabaseConfig) ConnectionString() string {
	query := url.Values{}
	query.Add("database", c.Database)
	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
