package daemon

import (
	"testing"

	"github.com/maisonlane/concierge/internal/config"
	"github.com/maisonlane/concierge/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AI.Profiles = []config.AIProfile{
		{ID: "primary", Provider: "openai", APIKey: "test-key", Priority: 1},
	}
	cfg.Gateway.Port = 18099
	cfg.Transcript.Enabled = false
	return cfg
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestNewWiresComponents(t *testing.T) {
	d, err := New(testConfig(), testLogger(t), nil)
	require.NoError(t, err)

	assert.NotNil(t, d.Orchestrator())
	assert.Equal(t, 24, d.registry.Count())
	assert.Equal(t, "openai", d.provider.Provider())

	require.NoError(t, d.Stop())
}

func TestNewRequiresUsableProfile(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Profiles = []config.AIProfile{
		{ID: "bad", Provider: "mystery", APIKey: "key", Priority: 1},
	}

	_, err := New(cfg, testLogger(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable AI profile")
}

func TestSelectProviderHonorsPriority(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Profiles = []config.AIProfile{
		{ID: "fallback", Provider: "openai", APIKey: "key-b", Priority: 2},
		{ID: "preferred", Provider: "anthropic", APIKey: "key-a", Priority: 1},
	}

	d, err := New(cfg, testLogger(t), nil)
	require.NoError(t, err)
	defer func() { _ = d.Stop() }()

	assert.Equal(t, "anthropic", d.provider.Provider())
}

func TestStartAndStop(t *testing.T) {
	d, err := New(testConfig(), testLogger(t), nil)
	require.NoError(t, err)

	require.NoError(t, d.Start())
	require.NoError(t, d.Stop())
}
