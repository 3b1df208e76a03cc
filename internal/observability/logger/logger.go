// Package logger provides the process logger and trace-aware helpers.
package logger

import (
	"context"

	"github.com/sponsorbase/sponsord/internal/config"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// New builds the root logger for the configured environment and installs it
// as the zap global so FromContext works everywhere.
func New(cfg config.Config) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// FromContext returns the global logger, annotated with the active span's
// trace_id and span_id when one is recording.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		log = log.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return log
}
