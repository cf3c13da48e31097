// =============================================================================
// Codeflow configuration
// =============================================================================
// Unified configuration with YAML file + environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("CODEFLOW").
//	    Load()
//
// Precedence: defaults -> YAML file -> environment variables.
// =============================================================================
package config

import (
	"fmt"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	// Server is the HTTP API configuration.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Agent is the CodeAct loop configuration.
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// Interp is the sandbox interpreter configuration.
	Interp InterpConfig `yaml:"interp" env:"INTERP"`

	// LLM is the model provider configuration.
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Database is the step-persistence store configuration.
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log is the logging configuration.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry is the OpenTelemetry export configuration.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics is the Prometheus endpoint configuration.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr" env:"ADDR"`
	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// RateLimitRPS is the per-IP request rate; zero disables limiting.
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// RateLimitBurst is the per-IP burst size.
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// AgentConfig configures the agent loop.
type AgentConfig struct {
	// Name identifies the agent in logs and metrics.
	Name string `yaml:"name" env:"NAME"`
	// SystemPrompt overrides the built-in system prompt when non-empty.
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	// MaxSteps bounds the reason/execute loop.
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// MaxObservationLen bounds observation text fed back to the model.
	MaxObservationLen int `yaml:"max_observation_len" env:"MAX_OBSERVATION_LEN"`
	// TokenBudget bounds the conversation history size in tokens.
	TokenBudget int `yaml:"token_budget" env:"TOKEN_BUDGET"`
	// Temperature is passed through to the provider.
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// MaxTokens caps each completion.
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// InterpConfig configures the code sandbox.
type InterpConfig struct {
	// Timeout is the wall-clock budget per execution call.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// MaxOutputLen bounds captured output before truncation.
	MaxOutputLen int `yaml:"max_output_len" env:"MAX_OUTPUT_LEN"`
	// AdditionalImports widens the module allow-list beyond the base set.
	AdditionalImports []string `yaml:"additional_imports" env:"ADDITIONAL_IMPORTS"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	// Provider selects the adapter ("openai" or an OpenAI-compatible host).
	Provider string `yaml:"provider" env:"PROVIDER"`
	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// BaseURL overrides the provider host.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Model is the default model name.
	Model string `yaml:"model" env:"MODEL"`
	// Timeout is the HTTP client timeout.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// RateLimitRPS is the client-side request rate; zero disables limiting.
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// RateLimitBurst is the limiter burst size.
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// DatabaseConfig configures step persistence.
type DatabaseConfig struct {
	// Path is the SQLite database file; ":memory:" keeps steps in memory.
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// Development enables stack traces and human-friendly output.
	Development bool `yaml:"development" env:"DEVELOPMENT"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	// Enabled turns the OTLP exporters on.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// ServiceName tags exported spans and metrics.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// OTLPEndpoint is the gRPC collector endpoint (host:port).
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	// Enabled serves /metrics when true.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// Addr is the listen address for the metrics server.
	Addr string `yaml:"addr" env:"ADDR"`
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}
	if c.Agent.MaxObservationLen <= 0 {
		return fmt.Errorf("agent.max_observation_len must be positive, got %d", c.Agent.MaxObservationLen)
	}
	if c.Interp.Timeout <= 0 {
		return fmt.Errorf("interp.timeout must be positive, got %v", c.Interp.Timeout)
	}
	if c.Interp.MaxOutputLen <= 0 {
		return fmt.Errorf("interp.max_output_len must be positive, got %d", c.Interp.MaxOutputLen)
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be in [0, 1], got %v", c.Telemetry.SampleRate)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level)
	}
	return nil
}
