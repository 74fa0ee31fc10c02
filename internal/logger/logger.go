// Package logger builds the zap logger shared by the topix binaries and
// carries it through contexts into the engine.
package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger output. Env is "prod" for JSON lines or
// "dev" (also "" and "local") for colored console output. Level, when set,
// is one of debug, info, warn, error.
type Options struct {
	Env   string
	Level string
}

func (o Options) zapConfig() (zap.Config, error) {
	var cfg zap.Config
	switch o.Env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "", "local", "dev":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", o.Env)
	}
	if o.Level != "" {
		level, err := zapcore.ParseLevel(o.Level)
		if err != nil {
			return zap.Config{}, fmt.Errorf("invalid log level %q: %w", o.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	return cfg, nil
}

// New builds a logger tagged with the application name.
func New(opts Options) (*zap.Logger, error) {
	cfg, err := opts.zapConfig()
	if err != nil {
		return nil, err
	}
	l, err := cfg.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("app", "topix")),
	)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by NewContext, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	l, _ := ctx.Value(ctxKey{}).(*zap.Logger)
	return OrNop(l)
}
