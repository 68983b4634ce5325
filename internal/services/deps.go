package services

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventLogger is the structured logging hook every service accepts.
type EventLogger func(ctx context.Context, event string, fields map[string]any)

func loggerOrNop(logger func(context.Context, string, map[string]any)) EventLogger {
	if logger == nil {
		return func(context.Context, string, map[string]any) {}
	}
	return logger
}

func utcClock(clock func() time.Time) func() time.Time {
	if clock == nil {
		clock = time.Now
	}
	return func() time.Time { return clock().UTC() }
}

func idGenerator(gen func() string) func() string {
	if gen == nil {
		return func() string { return ulid.Make().String() }
	}
	return gen
}
