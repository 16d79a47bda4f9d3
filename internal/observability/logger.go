package observability

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop().Sugar()
)

// Setup installs the global logger. JSON to stdout unless development is set.
func Setup(level string, development bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	SetLogger(l.Sugar())
	return l.Sugar(), nil
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func Logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithFields returns the context logger with additional fields.
func WithFields(ctx context.Context, kv ...any) *zap.SugaredLogger {
	return LoggerFromContext(ctx).With(kv...)
}

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestID returns the request_id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(ctxKeyRequestID).(string)
	return reqID
}

// LoggerFromContext adds request_id if present.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	reqID := RequestID(ctx)
	if reqID == "" {
		return Logger()
	}
	return Logger().With("request_id", reqID)
}
