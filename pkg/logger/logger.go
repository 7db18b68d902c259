package logger

import (
	"context"

	"go.uber.org/zap"

	"mailnight/pkg/trace"
)

// NewLogger builds the production zap logger. Development mode switches to
// the console encoder with debug level.
func NewLogger(development bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace returns logger annotated with the trace_id carried by ctx.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if traceID := trace.FromContext(ctx); traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
