// Package logging wraps zap with the key-value call sites the rest of the
// codebase already expects from the teacher's log.Printf-style logging.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	z *zap.SugaredLogger
}

// New builds a Logger from the LOG_LEVEL/LOG_FORMAT environment conventions
// (see config.Config.LogLevel / LogFormat).
func New(level, format string) *Logger {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zc.Encoding = "json"
	}

	lvl := zap.InfoLevel
	_ = lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level))))
	zc.Level = zap.NewAtomicLevelAt(lvl)

	z, err := zc.Build()
	if err != nil {
		// Not fatal: report on stderr and continue with a no-op logger.
		os.Stderr.WriteString("logging: failed to build zap logger: " + err.Error() + "\n")
		z = zap.NewNop()
	}
	return &Logger{z: z.Sugar()}
}

func (l *Logger) With(kv ...any) *Logger {
	return &Logger{z: l.z.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.z.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)   { l.z.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)   { l.z.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any)  { l.z.Errorw(msg, kv...) }

func (l *Logger) Sync() error { return l.z.Sync() }
