package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{ name string }

var (
	loggerKey = contextKey{name: "logger"}
	traceKey  = contextKey{name: "trace"}
	actorKey  = contextKey{name: "actor"}
)

var noopLogger = zap.NewNop()

// TraceInfo is the subset of span context surfaced in logs and error payloads.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// WithLogger stores a request scoped logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request scoped logger or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared no-op logger.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores trace metadata for downstream handlers.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceKey, info)
}

// Trace returns the trace metadata when present.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceKey).(TraceInfo)
	return info, ok
}

// TraceID is a shortcut for Trace(ctx).TraceID.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// actorSlot is allocated by the outermost middleware so that handlers deeper in
// the chain can publish the authenticated user id back to it.
type actorSlot struct{ id string }

// WithActorSlot prepares the context to carry the authenticated user id.
func WithActorSlot(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, &actorSlot{})
}

// SetActor records the authenticated user id when a slot is present.
func SetActor(ctx context.Context, userID string) {
	if ctx == nil {
		return
	}
	if slot, ok := ctx.Value(actorKey).(*actorSlot); ok && slot != nil {
		slot.id = userID
	}
}

// Actor returns the user id recorded by SetActor.
func Actor(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if slot, ok := ctx.Value(actorKey).(*actorSlot); ok && slot != nil {
		return slot.id
	}
	return ""
}
