// Package retryotel connects retry sequences to OpenTelemetry tracing.
//
// Hooks annotates the caller's span with one event per attempt and retry;
// Trace wraps every attempt of an operation in its own child span.
package retryotel

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/retry/v2"
)

// Event and attribute names.
const (
	EventAttempt = "retry.attempt"
	EventRetry   = "retry.retry"

	AttrAttempt  = attribute.Key("retry.attempt")
	AttrAttempts = attribute.Key("retry.attempts")
	AttrDelay    = attribute.Key("retry.delay_ms")
	AttrSuccess  = attribute.Key("retry.success")
	AttrOutcome  = attribute.Key("retry.outcome")
	AttrReason   = attribute.Key("retry.reason")
)

// Hooks returns an option that records the sequence on the span found in
// the context passed to the policy. Without a recording span it is a no-op.
func Hooks() retry.Option {
	return retry.Options(
		retry.OnAttempt(func(ctx context.Context, a retry.Attempt) {
			attrs := []attribute.KeyValue{
				AttrAttempt.Int(a.Number),
				AttrSuccess.Bool(a.Succeeded()),
			}
			if a.Err != nil {
				attrs = append(attrs, attribute.String("error.message", a.Err.Error()))
			}
			trace.SpanFromContext(ctx).AddEvent(EventAttempt, trace.WithAttributes(attrs...))
		}),
		retry.OnRetry(func(ctx context.Context, attempt int, _ error, delay time.Duration) {
			trace.SpanFromContext(ctx).AddEvent(EventRetry, trace.WithAttributes(
				AttrAttempt.Int(attempt),
				AttrDelay.Int64(delay.Milliseconds()),
			))
		}),
		retry.OnSuccess(func(ctx context.Context, attempts int) {
			trace.SpanFromContext(ctx).SetAttributes(
				AttrAttempts.Int(attempts),
				AttrOutcome.String("success"),
			)
		}),
		retry.OnExhausted(func(ctx context.Context, attempts int, err error) {
			span := trace.SpanFromContext(ctx)
			attrs := []attribute.KeyValue{AttrAttempts.Int(attempts), AttrOutcome.String("exhausted")}
			var exhausted *retry.RetriesExhaustedError
			if errors.As(err, &exhausted) {
				attrs = append(attrs, AttrReason.String(string(exhausted.Reason)))
			}
			span.SetAttributes(attrs...)
			span.RecordError(err)
			span.SetStatus(codes.Error, "retries exhausted")
		}),
		retry.OnStop(func(ctx context.Context, attempts int, err error) {
			span := trace.SpanFromContext(ctx)
			span.SetAttributes(AttrAttempts.Int(attempts), AttrOutcome.String("stopped"))
			span.RecordError(err)
			span.SetStatus(codes.Error, "non-retryable error")
		}),
		retry.OnCancelled(func(ctx context.Context, attempts int, _ error) {
			trace.SpanFromContext(ctx).SetAttributes(
				AttrAttempts.Int(attempts),
				AttrOutcome.String("cancelled"),
			)
		}),
	)
}

// Trace wraps op so that each attempt runs in a child span named name,
// tagged with its attempt number. Failed attempts record their error.
func Trace[T any](tracer trace.Tracer, name string, op retry.Operation[T]) retry.Operation[T] {
	return func(ctx context.Context) (T, error) {
		ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
			AttrAttempt.Int(retry.AttemptFromContext(ctx)),
		))
		defer span.End()

		value, err := op(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return value, err
	}
}
