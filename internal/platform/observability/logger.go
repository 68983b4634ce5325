package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/requestctx"
)

const (
	defaultLogLevel = "info"
	serviceName     = "storefront-api"
)

// NewLogger builds the JSON logger used by every binary. LOG_LEVEL selects the level.
func NewLogger() (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))))); err != nil {
		_ = level.UnmarshalText([]byte(defaultLogLevel))
	}

	cfg := zap.Config{
		Level:    level,
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			TimeKey:       "timestamp",
			LevelKey:      "severity",
			NameKey:       "logger",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			EncodeTime:    zapcore.RFC3339NanoTimeEncoder,
			EncodeCaller:  zapcore.ShortCallerEncoder,
			EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
				enc.AppendString(strings.ToUpper(level.String()))
			},
		},
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
		InitialFields:     map[string]any{"service": serviceName},
	}
	return cfg.Build()
}

// WithLogger stores the logger on the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return requestctx.WithLogger(ctx, logger)
}

// FromContext returns the request logger or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	return requestctx.Logger(ctx)
}

// EventLogger adapts zap to the func(ctx, event, fields) hook that services take
// in their dependency structs. Events carrying one of warnSuffixes are logged at
// warn level, everything else at debug.
func EventLogger(base *zap.Logger) func(context.Context, string, map[string]any) {
	if base == nil {
		base = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() {
			logger = base
		}
		zapFields := make([]zap.Field, 0, len(fields)+1)
		zapFields = append(zapFields, zap.String("event", event))
		for key, value := range fields {
			if err, ok := value.(error); ok {
				zapFields = append(zapFields, zap.NamedError(key, err))
				continue
			}
			zapFields = append(zapFields, zap.Any(key, value))
		}
		if isWarnEvent(event) {
			logger.Warn(event, zapFields...)
			return
		}
		logger.Debug(event, zapFields...)
	}
}

var warnSuffixes = []string{"failed", "override", "shortfall", "mismatch", "rejected", "unmatched"}

func isWarnEvent(event string) bool {
	for _, suffix := range warnSuffixes {
		if strings.HasSuffix(event, suffix) {
			return true
		}
	}
	return false
}

// PrintfAdapter adapts zap to printf-style logger interfaces.
type PrintfAdapter struct {
	logger *zap.SugaredLogger
}

// NewPrintfAdapter wraps the logger.
func NewPrintfAdapter(logger *zap.Logger) PrintfAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return PrintfAdapter{logger: logger.Sugar()}
}

// Printf logs at info level.
func (a PrintfAdapter) Printf(format string, args ...any) {
	a.logger.Infof(format, args...)
}
