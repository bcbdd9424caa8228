package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.AI.Profiles = []AIProfile{
		{ID: "primary", Provider: "openai", APIKey: "sk-test", Priority: 1},
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.Agent.MaxTurns)
	assert.Equal(t, 3, cfg.Agent.MaxRetries)
	assert.Equal(t, "allow", cfg.Guardrails.DefaultPolicy)
	assert.Equal(t, 8000, cfg.Gateway.Port)
	assert.True(t, cfg.Logging.Redaction)
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("requires AI profile", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AI profile")
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.AI.Profiles[0].Provider = "gemini"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid provider")
	})

	t.Run("rejects profile without api key", func(t *testing.T) {
		cfg := validConfig()
		cfg.AI.Profiles[0].APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects bad guardrail policy", func(t *testing.T) {
		cfg := validConfig()
		cfg.Guardrails.DefaultPolicy = "maybe"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default policy")
	})

	t.Run("rejects zero max turns", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.MaxTurns = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects out-of-range temperature", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Temperature = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gateway.Port = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestLoader(t *testing.T) {
	t.Run("returns defaults when file missing", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "config-test-*")
		require.NoError(t, err)
		defer os.RemoveAll(tmpDir)

		loader := NewLoader(filepath.Join(tmpDir, "missing.json"))
		cfg, err := loader.Load()
		require.NoError(t, err)

		assert.Equal(t, 10, cfg.Agent.MaxTurns)
		assert.NotEmpty(t, cfg.DataDir)
		assert.NotEmpty(t, cfg.Logging.File)
		assert.NotEmpty(t, cfg.Transcript.Dir)
	})

	t.Run("loads values from file", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "config-test-*")
		require.NoError(t, err)
		defer os.RemoveAll(tmpDir)

		configPath := filepath.Join(tmpDir, "concierge.json")
		content := `{
			"agent": {"model": "gpt-4o", "max_turns": 5},
			"guardrails": {"default_policy": "block"},
			"data_dir": "` + tmpDir + `"
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

		cfg, err := Load(configPath)
		require.NoError(t, err)

		assert.Equal(t, "gpt-4o", cfg.Agent.Model)
		assert.Equal(t, 5, cfg.Agent.MaxTurns)
		assert.Equal(t, "block", cfg.Guardrails.DefaultPolicy)
		// Defaults survive partial config
		assert.Equal(t, 3, cfg.Agent.MaxRetries)
	})

	t.Run("save then load round trip", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "config-test-*")
		require.NoError(t, err)
		defer os.RemoveAll(tmpDir)

		configPath := filepath.Join(tmpDir, "concierge.json")
		loader := NewLoader(configPath)

		cfg := validConfig()
		cfg.DataDir = tmpDir
		cfg.Agent.Model = "gpt-4o"
		require.NoError(t, loader.Save(cfg))

		loaded, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", loaded.Agent.Model)
	})
}
