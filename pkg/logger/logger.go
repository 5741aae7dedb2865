// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger carries a zap logger through context.Context so every stage
// of a crawl logs with the run and query fields attached by its caller.
package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DevelopmentEnvironment selects a human-readable console logger.
	DevelopmentEnvironment = "development"

	// ProductionEnvironment selects a JSON logger at info level.
	ProductionEnvironment = "production"
)

// defaultLogger is used when no logger is attached to the context. It starts
// as a no-op so packages and tests can log before Setup runs.
var defaultLogger = zap.NewNop() //nolint: gochecknoglobals

// Setup replaces the default logger for the given environment. A non-empty
// level ("debug", "info", "warn", "error") overrides the environment default.
func Setup(environment, level string) error {
	var cfg zap.Config
	if environment == ProductionEnvironment {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	defaultLogger = l
	return nil
}

type key struct{}

// Get returns the logger stored in ctx, or the default logger.
func Get(ctx context.Context) *zap.Logger {
	if l, _ := ctx.Value(key{}).(*zap.Logger); l != nil {
		return l
	}
	return defaultLogger
}

// WithLogger returns a context carrying l.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, key{}, l)
}

// WithFields returns a context whose logger includes fields on every entry.
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	return WithLogger(ctx, Get(ctx).With(fields...))
}

// Sync flushes the default logger.
func Sync() {
	_ = defaultLogger.Sync()
}

func Debug(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Debug(msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Info(msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Warn(msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Error(msg, fields...)
}
