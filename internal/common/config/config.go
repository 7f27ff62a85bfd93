// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // seconds
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Reasoning Service Config ---

// LLMConfig holds settings for the external reasoning service.
type LLMConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	BaseURL       string  `mapstructure:"base_url"`
	APIKey        string  `mapstructure:"api_key"`
	Model         string  `mapstructure:"model"`
	AdvancedModel string  `mapstructure:"advanced_model"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Timeout       int     `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int     `mapstructure:"max_retries"` // for transient failures
}

// --- Pipeline Config ---

// AssistantConfig holds pipeline tuning knobs.
type AssistantConfig struct {
	// ContextTokenBudget bounds the conversation history forwarded to the
	// reasoning service, estimated as len(content)/4 per turn.
	ContextTokenBudget int `mapstructure:"context_token_budget"`
	// SystemPromptHeadroom is reserved out of the budget for the system prompt.
	SystemPromptHeadroom int `mapstructure:"system_prompt_headroom"`
	// HistoryLimit caps how many recent turns are fetched per request.
	HistoryLimit int `mapstructure:"history_limit"`
	// ConversationActiveWindow is how long (hours) a conversation counts as
	// active for implicit reuse.
	ConversationActiveWindow int `mapstructure:"conversation_active_window"`
	// AdvancedModelRole is the principal role required to request the
	// higher-capability model tier.
	AdvancedModelRole string `mapstructure:"advanced_model_role"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
