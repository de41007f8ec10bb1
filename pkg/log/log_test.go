package log

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	ctx := context.Background()

	Setup("debug")
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))

	Setup("error")
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelError))

	// Unknown levels fall back to info
	Setup("verbose")
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelDebug))
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelInfo))
}

func TestSetupLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	Setup("")
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}

func TestWithModule(t *testing.T) {
	Setup("info")

	logger := WithModule("dispatcher")
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
