package logger

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/regassist/internal/version"
)

// excerptRunes bounds user text copied into log lines.
const excerptRunes = 120

// NewLogger builds the process logger: JSON for prod, console elsewhere.
// An optional level (debug, info, warn, error) replaces the environment default.
// Every line carries the service name and build version.
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	cfg, err := configFor(env)
	if err != nil {
		return nil, err
	}

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		level, err := zapcore.ParseLevel(levelOverride[0])
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelOverride[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	l, err := cfg.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", "regassist"), zap.String("version", version.Version)),
	)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func configFor(env string) (zap.Config, error) {
	switch env {
	case "prod":
		cfg := zap.NewProductionConfig()
		// The wide event line must never be dropped by sampling.
		cfg.Sampling = nil
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg, nil
	case "local", "dev", "docker", "test":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, nil
	}
	return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
}

// Excerpt logs the head of a user-supplied text. Questions can hold personal data,
// so only the first runes and the full length are recorded.
func Excerpt(key, text string) zap.Field {
	n := utf8.RuneCountInString(text)
	if n <= excerptRunes {
		return zap.String(key, text)
	}
	return zap.String(key, fmt.Sprintf("%s… (%d chars)", string([]rune(text)[:excerptRunes]), n))
}
