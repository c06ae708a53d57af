package ui

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	Debug bool

	s *zap.SugaredLogger
}

// NewLogger logs to stderr in console form; debug enables the debug level and
// caller annotations.
func NewLogger(debug bool) *Logger {
	z, err := buildZap(debug)
	if err != nil {
		z = zap.NewNop()
	}

	return &Logger{Debug: debug, s: z.Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger, debug bool) *Logger {
	return &Logger{Debug: debug, s: z.Sugar()}
}

func NopLogger() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func buildZap(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.DisableCaller = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// With returns a logger that adds the given key/value pairs to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Debug: l.Debug, s: l.s.With(args...)}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.s.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.s.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.s.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.s.Errorf(format, args...)
}

func (l *Logger) Sync() {
	_ = l.s.Sync()
}
