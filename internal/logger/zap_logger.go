package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type requestIDKey struct{}

// RequestIDKey is the context key the HTTP layer stores the request id under
var RequestIDKey = requestIDKey{}

// Options configures NewZapLogger
type Options struct {
	Level string
	// Development switches to the console encoder with caller and stack traces on warn
	Development bool
}

// ZapLogger implements Logger on zap
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger builds a JSON production logger, or a console logger when
// opts.Development is set. An empty level means info.
func NewZapLogger(opts Options) (Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = lvl
	}

	var config zap.Config
	if opts.Development {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.OutputPaths = []string{"stdout"}
	}
	config.Level = zap.NewAtomicLevelAt(level)

	log, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &ZapLogger{logger: log}, nil
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	return &ZapLogger{logger: zap.NewNop()}
}

func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Fatal(msg string, fields ...Field) {
	l.logger.Fatal(msg, toZapFields(fields)...)
}

func (l *ZapLogger) With(fields ...Field) Logger {
	return &ZapLogger{logger: l.logger.With(toZapFields(fields)...)}
}

// WithContext attaches the request id carried by ctx, if any
func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		return &ZapLogger{logger: l.logger.With(zap.String("request_id", reqID))}
	}
	return l
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// Logger exposes the underlying zap logger for libraries that take one (fx)
func (l *ZapLogger) Logger() *zap.Logger {
	return l.logger
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = toZapField(f)
	}
	return out
}

func toZapField(f Field) zap.Field {
	switch v := f.Value.(type) {
	case nil:
		return zap.Skip()
	case string:
		return zap.String(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	case time.Time:
		return zap.Time(f.Key, v)
	default:
		return zap.Any(f.Key, v)
	}
}
