package config

import "time"

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Agent:     DefaultAgentConfig(),
		Interp:    DefaultInterpConfig(),
		LLM:       DefaultLLMConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultServerConfig returns the default HTTP API settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute, // agent runs are slow
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    0,
		RateLimitBurst:  20,
	}
}

// DefaultAgentConfig returns the default agent loop settings.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Name:              "codeact",
		MaxSteps:          10,
		MaxObservationLen: 20000,
		TokenBudget:       64000,
		Temperature:       0.2,
		MaxTokens:         4096,
	}
}

// DefaultInterpConfig returns the default sandbox settings.
func DefaultInterpConfig() InterpConfig {
	return InterpConfig{
		Timeout:      5 * time.Second,
		MaxOutputLen: 50000,
	}
}

// DefaultLLMConfig returns the default provider settings.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		Timeout:        60 * time.Second,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

// DefaultDatabaseConfig returns the default step store settings.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Path: "codeflow.db",
	}
}

// DefaultLogConfig returns the default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}

// DefaultTelemetryConfig returns the default telemetry settings.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		ServiceName:  "codeflow",
		OTLPEndpoint: "localhost:4317",
		SampleRate:   1.0,
	}
}

// DefaultMetricsConfig returns the default metrics settings.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "codeflow",
		Addr:      ":9091",
	}
}
