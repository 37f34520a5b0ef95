// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for raccoon-cli. It is populated from
// defaults, an optional YAML file, RACCOON_* environment variables, and
// command-line flags, in increasing order of precedence.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Recon   ReconConfig   `mapstructure:"recon" yaml:"recon"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Colors      bool   `mapstructure:"colors" yaml:"colors"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// NetworkConfig tunes the HTTP executor's transport behavior.
type NetworkConfig struct {
	RequestTimeout    time.Duration     `mapstructure:"request_timeout" yaml:"request_timeout"`
	Proxy             string            `mapstructure:"proxy" yaml:"proxy"`
	IgnoreTLSErrors   bool              `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ForceHTTP2        bool              `mapstructure:"force_http2" yaml:"force_http2"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	MaxIdleConns      int               `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	Headers           map[string]string `mapstructure:"headers" yaml:"headers"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini   LLMProvider = "gemini"
	ProviderOpenAI   LLMProvider = "openai"
	ProviderOllama   LLMProvider = "ollama"
	ProviderLMStudio LLMProvider = "lmstudio"
)

// LLMConfig configures the generation backend. GeneratorID selects provider
// and model with the syntax "provider/model[,key=value...]", e.g.
// "ollama/llama3.1,api_base=http://localhost:11434".
type LLMConfig struct {
	GeneratorID string        `mapstructure:"generator_id" yaml:"generator_id"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float64       `mapstructure:"top_p" yaml:"top_p"`
	TopK        int           `mapstructure:"top_k" yaml:"top_k"`
}

// ReconConfig holds the agent-loop settings for a single run.
type ReconConfig struct {
	Goal       string `mapstructure:"goal" yaml:"goal"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Iterations int    `mapstructure:"iterations" yaml:"iterations"`
	MaxActions int    `mapstructure:"max_actions" yaml:"max_actions"`
	Parallel   bool   `mapstructure:"parallel" yaml:"parallel"`
	Output     string `mapstructure:"output" yaml:"output"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "raccoon")
	v.SetDefault("logger.colors", true)
	v.SetDefault("logger.log_file", "raccoon.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Network --
	v.SetDefault("network.request_timeout", "30s")
	v.SetDefault("network.ignore_tls_errors", true)
	v.SetDefault("network.force_http2", false)
	v.SetDefault("network.requests_per_second", 0.0)
	v.SetDefault("network.max_idle_conns", 32)

	// -- LLM --
	v.SetDefault("llm.generator_id", "ollama/llama3.1,api_base=http://localhost:11434")
	v.SetDefault("llm.api_timeout", "120s")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 0.0)
	v.SetDefault("llm.top_k", 0)

	// -- Recon --
	v.SetDefault("recon.goal", "Explore all endpoints in the app.")
	v.SetDefault("recon.base_url", "http://localhost:3000")
	v.SetDefault("recon.iterations", 20)
	v.SetDefault("recon.max_actions", 2)
	v.SetDefault("recon.parallel", false)
	v.SetDefault("recon.output", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	_ = v.BindEnv("llm.api_key", "RACCOON_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Recon.Iterations <= 0 {
		return fmt.Errorf("recon.iterations must be a positive integer")
	}
	if c.Recon.MaxActions < 0 {
		return fmt.Errorf("recon.max_actions must not be negative")
	}
	u, err := url.Parse(c.Recon.BaseURL)
	if err != nil {
		return fmt.Errorf("recon.base_url is not a valid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("recon.base_url must include a scheme and host, got %q", c.Recon.BaseURL)
	}
	if c.LLM.GeneratorID == "" {
		return fmt.Errorf("llm.generator_id is a required configuration field")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be a positive integer")
	}
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("network.request_timeout must be a positive duration")
	}
	if c.Network.RequestsPerSecond < 0 {
		return fmt.Errorf("network.requests_per_second must not be negative")
	}
	if c.Network.Proxy != "" {
		if _, err := url.Parse(c.Network.Proxy); err != nil {
			return fmt.Errorf("network.proxy is not a valid URL: %w", err)
		}
	}
	return nil
}
