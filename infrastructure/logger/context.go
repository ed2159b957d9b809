package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
)

type ctxKey struct{}

// WithContext attaches a request-scoped logger. The API's request-ID
// middleware stores one carrying request_id.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or the shared stderr logger
// when ctx did not come through the API middleware.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return stderrLogger()
}

var (
	stderrLog  Logger
	stderrOnce sync.Once
)

// stderrLogger is warn level so a missing request logger never floods output.
func stderrLogger() Logger {
	stderrOnce.Do(func() {
		l, err := New(Config{Level: "warn", OutputPaths: []string{"stderr"}})
		if err != nil {
			fmt.Fprintf(os.Stderr, "affiliate-engine: stderr logger unavailable, discarding: %v\n", err)
			l = NewNop()
		}
		stderrLog = l.With(String("logger", "context-default"))
	})
	return stderrLog
}
