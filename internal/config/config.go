package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main concierge configuration
type Config struct {
	// Agent behavior
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// AI provider profiles
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Input guardrails
	Guardrails GuardrailsConfig `json:"guardrails" mapstructure:"guardrails"`

	// HTTP gateway
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Transcript archiving
	Transcript TranscriptConfig `json:"transcript" mapstructure:"transcript"`

	// Cron spec for the periodic global metrics summary log line
	MetricsSummarySchedule string `json:"metrics_summary_schedule" mapstructure:"metrics_summary_schedule"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AgentConfig configures the understanding loop
type AgentConfig struct {
	Model          string  `json:"model" mapstructure:"model"`
	Temperature    float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens      int     `json:"max_tokens" mapstructure:"max_tokens"`
	SystemPrompt   string  `json:"system_prompt" mapstructure:"system_prompt"`
	MaxTurns       int     `json:"max_turns" mapstructure:"max_turns"`
	MaxRetries     int     `json:"max_retries" mapstructure:"max_retries"`
	LLMTimeoutSec  int     `json:"llm_timeout_sec" mapstructure:"llm_timeout_sec"`
	ToolTimeoutSec int     `json:"tool_timeout_sec" mapstructure:"tool_timeout_sec"`
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Profiles []AIProfile `json:"profiles" mapstructure:"profiles"`
}

// AIProfile represents an AI provider profile
type AIProfile struct {
	ID       string `json:"id" mapstructure:"id"`
	Provider string `json:"provider" mapstructure:"provider"` // openai, anthropic
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Priority int    `json:"priority" mapstructure:"priority"`
}

// GuardrailsConfig holds input guardrail configuration
type GuardrailsConfig struct {
	// DefaultPolicy decides ambiguous messages: "allow" or "block"
	DefaultPolicy   string   `json:"default_policy" mapstructure:"default_policy"`
	ExtraTopics     []string `json:"extra_topics" mapstructure:"extra_topics"`
	BlockedPatterns []string `json:"blocked_patterns" mapstructure:"blocked_patterns"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// TranscriptConfig holds conversation transcript archive settings
type TranscriptConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Dir     string `json:"dir" mapstructure:"dir"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:          "gpt-4o-mini",
			Temperature:    0.7,
			MaxTokens:      4096,
			MaxTurns:       10,
			MaxRetries:     3,
			LLMTimeoutSec:  60,
			ToolTimeoutSec: 30,
		},
		AI: AIConfig{
			Profiles: []AIProfile{},
		},
		Guardrails: GuardrailsConfig{
			DefaultPolicy: "allow",
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Redaction: true,
		},
		Transcript: TranscriptConfig{
			Enabled: true,
		},
		MetricsSummarySchedule: "@hourly",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.AI.Profiles) == 0 {
		return fmt.Errorf("no AI credentials configured: at least one AI profile is required")
	}

	for i, profile := range c.AI.Profiles {
		if profile.ID == "" {
			return fmt.Errorf("AI profile %d: ID is required", i)
		}
		if profile.Provider == "" {
			return fmt.Errorf("AI profile %s: provider is required", profile.ID)
		}
		if profile.APIKey == "" {
			return fmt.Errorf("AI profile %s: api_key is required", profile.ID)
		}
		if profile.Provider != "openai" && profile.Provider != "anthropic" {
			return fmt.Errorf("AI profile %s: invalid provider %s (must be: openai, anthropic)", profile.ID, profile.Provider)
		}
	}

	if c.Agent.Model == "" {
		return fmt.Errorf("agent model is required")
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 1 {
		return fmt.Errorf("agent temperature must be between 0 and 1")
	}
	if c.Agent.MaxTurns <= 0 {
		return fmt.Errorf("agent max_turns must be positive")
	}
	if c.Agent.MaxRetries < 0 {
		return fmt.Errorf("agent max_retries cannot be negative")
	}

	switch c.Guardrails.DefaultPolicy {
	case "allow", "block":
	default:
		return fmt.Errorf("invalid guardrails default policy: %s (must be: allow, block)", c.Guardrails.DefaultPolicy)
	}

	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("invalid gateway port: %d", c.Gateway.Port)
	}

	return nil
}
