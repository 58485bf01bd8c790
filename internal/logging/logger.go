// Package logging builds the process logger.
package logging

import (
	"gridguardian-backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger for the environment. The returned level can be
// changed while the process runs.
func New(env config.Environment, level string) (*zap.Logger, zap.AtomicLevel, error) {
	var zapConfig zap.Config
	if env == config.Production || env == config.Staging {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	atom := zap.NewAtomicLevelAt(ParseLevel(level))
	zapConfig.Level = atom
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, atom, err
	}
	return logger.With(zap.String("environment", string(env))), atom, nil
}

// ParseLevel maps a configured level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
