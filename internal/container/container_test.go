package container

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotejo/internal/config"
	"cotejo/internal/infrastructure/ai"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestContainer_MockArbiterWithStore(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.DatabasePath = ":memory:"
	cfg.Arbiter.Provider = ai.ProviderMock

	c, err := NewContainer(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.Initialize())
	defer c.Shutdown()

	require.NotNil(t, c.Store)
	require.NotNil(t, c.Arbiter)
	assert.IsType(t, &ai.CachedClient{}, c.Arbiter)
	assert.NoError(t, c.RequireArbiter(true))
	assert.True(t, c.ReconciliationUseCase.HasArbiter())

	require.NoError(t, ai.Ping(context.Background(), c.Arbiter))
	count, err := c.Store.CountVerdicts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	runs, err := c.ReconciliationUseCase.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestContainer_MissingKeyKeepsRunning(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Arbiter.APIKey = ""

	c, err := NewContainer(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.Initialize())
	defer c.Shutdown()

	assert.Nil(t, c.Store)
	assert.Nil(t, c.Arbiter)
	assert.Error(t, c.ArbiterErr)
	assert.NoError(t, c.RequireArbiter(false))
	assert.ErrorContains(t, c.RequireArbiter(true), "requires an API key")
	assert.False(t, c.ReconciliationUseCase.HasArbiter())
}

func TestContainer_FallbackArbiter(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Arbiter.APIKey = ""
	cfg.Arbiter.Cache = false
	cfg.Arbiter.Fallbacks = []config.ArbiterEndpoint{{Provider: ai.ProviderMock}}

	c, err := NewContainer(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.Initialize())
	defer c.Shutdown()

	// openrouter без ключа пропущен, остается только резервный арбитр
	assert.NoError(t, c.RequireArbiter(true))
	assert.IsType(t, &ai.MockClient{}, c.Arbiter)
}

func TestContainer_ArbiterOrchestrator(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Arbiter.Provider = ai.ProviderMock
	cfg.Arbiter.Strategy = string(ai.HighestConfidence)
	cfg.Arbiter.Fallbacks = []config.ArbiterEndpoint{{Provider: ai.ProviderMock}}

	c, err := NewContainer(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.Initialize())
	defer c.Shutdown()

	require.NotNil(t, c.Arbiter)
	assert.Equal(t, "mock+mock", c.Arbiter.Provider())
	assert.Equal(t, "jaccard+jaccard@highest_confidence", c.Arbiter.Model())
	require.NoError(t, ai.Ping(context.Background(), c.Arbiter))
}

func TestContainer_NoCache(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.Arbiter.Provider = ai.ProviderMock
	cfg.Arbiter.Cache = false

	c, err := NewContainer(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.Initialize())
	defer c.Shutdown()

	assert.IsType(t, &ai.MockClient{}, c.Arbiter)
}

func TestContainer_InitializeTwice(t *testing.T) {
	c, err := NewContainer(config.GetDefaults(), testLogger())
	require.NoError(t, err)
	require.NoError(t, c.Initialize())
	assert.Error(t, c.Initialize())
	assert.NoError(t, c.Shutdown())
	assert.NoError(t, c.Shutdown())
}

func TestNewContainer_NilConfig(t *testing.T) {
	_, err := NewContainer(nil, nil)
	assert.Error(t, err)
}
