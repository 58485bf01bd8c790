package logging

import (
	"testing"

	"gridguardian-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zap.DebugLevel,
		"info":  zap.InfoLevel,
		"warn":  zap.WarnLevel,
		"error": zap.ErrorLevel,
		"":      zap.InfoLevel,
		"loud":  zap.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_LevelIsAdjustable(t *testing.T) {
	logger, level, err := New(config.Production, "warn")
	require.NoError(t, err)
	defer logger.Sync()

	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	level.SetLevel(zap.DebugLevel)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
