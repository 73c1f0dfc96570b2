// Package retryzap logs retry lifecycle events with zap.
//
//	policy.Do(ctx, fn, retryzap.Hooks(logger, zap.String("op", "checkout")))
//
// Retries log at Warn, recoveries at Info, exhaustion at Error, stops at
// Warn and cancellations at Info. When the context carries an OpenTelemetry
// span, trace_id and span_id are attached so logs correlate with traces.
package retryzap

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bjaus/retry/v2"
)

// Hooks returns an option that logs every lifecycle event to logger.
// fields are attached to every entry. A nil logger disables logging.
func Hooks(logger *zap.Logger, fields ...zap.Field) retry.Option {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &hookLogger{logger: logger.With(fields...)}

	return retry.Options(
		retry.OnRetry(l.retry),
		retry.OnSuccess(l.success),
		retry.OnExhausted(l.exhausted),
		retry.OnStop(l.stop),
		retry.OnCancelled(l.cancelled),
	)
}

type hookLogger struct {
	logger *zap.Logger
}

func (l *hookLogger) retry(ctx context.Context, attempt int, err error, delay time.Duration) {
	l.logger.Warn("retrying after failed attempt", l.fields(ctx,
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(err),
	)...)
}

func (l *hookLogger) success(ctx context.Context, attempts int) {
	if attempts == 1 {
		l.logger.Debug("succeeded on first attempt", l.fields(ctx)...)
		return
	}
	l.logger.Info("recovered after retries", l.fields(ctx, zap.Int("attempts", attempts))...)
}

func (l *hookLogger) exhausted(ctx context.Context, attempts int, err error) {
	fields := []zap.Field{zap.Int("attempts", attempts), zap.Error(err)}
	var e *retry.RetriesExhaustedError
	if errors.As(err, &e) {
		fields = append(fields,
			zap.String("reason", string(e.Reason)),
			zap.Duration("elapsed", e.Elapsed),
		)
	}
	l.logger.Error("retries exhausted", l.fields(ctx, fields...)...)
}

func (l *hookLogger) stop(ctx context.Context, attempts int, err error) {
	l.logger.Warn("giving up on non-retryable error", l.fields(ctx,
		zap.Int("attempts", attempts),
		zap.Error(err),
	)...)
}

func (l *hookLogger) cancelled(ctx context.Context, attempts int, err error) {
	l.logger.Info("retry cancelled", l.fields(ctx,
		zap.Int("attempts", attempts),
		zap.Error(err),
	)...)
}

// fields appends trace correlation from ctx.
func (l *hookLogger) fields(ctx context.Context, fields ...zap.Field) []zap.Field {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return fields
}
