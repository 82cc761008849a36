package ecs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a *zap.SugaredLogger to the Logger interface; With
// returns a new zapLogger carrying the additional key, matching the
// immutable-builder shape the rest of the package expects from Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a Logger backed by zap at the given level, JSON
// encoded to match the rest of the observability stack's structured sinks.
func NewZapLogger(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseZapLevel(level))
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: base.Sugar()}, nil
}

func parseZapLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func (l *zapLogger) With(key string, value any) Logger {
	return &zapLogger{sugar: l.sugar.With(key, value)}
}

func (l *zapLogger) Info(msg string, args ...any) { l.sugar.Infow(msg, args...) }

func (l *zapLogger) Warn(msg string, args ...any) { l.sugar.Warnw(msg, args...) }

func (l *zapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

var _ Logger = (*zapLogger)(nil)
