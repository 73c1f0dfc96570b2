// Package retryprom records retry activity as Prometheus metrics.
package retryprom

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/retry/v2"
)

// Outcome label values for calls_total.
const (
	OutcomeSuccess   = "success"
	OutcomeExhausted = "exhausted"
	OutcomeStopped   = "stopped"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the Prometheus collectors shared by every policy that
// reports through it. Series are labelled by policy name.
type Metrics struct {
	calls           *prometheus.CounterVec   // By policy and outcome
	attempts        *prometheus.CounterVec   // By policy and result (success/failure)
	retries         *prometheus.CounterVec   // By policy
	delay           *prometheus.HistogramVec // By policy
	attemptDuration *prometheus.HistogramVec // By policy
}

// NewMetrics creates the collectors under namespace. They still need to be
// registered with Register.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "calls_total",
			Help:      "Total number of retried calls by final outcome",
		}, []string{"policy", "outcome"}),

		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Total number of operation attempts by result",
		}, []string{"policy", "result"}),

		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "retries_total",
			Help:      "Total number of retries scheduled after a failed attempt",
		}, []string{"policy"}),

		delay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "delay_seconds",
			Help:      "Backoff delay scheduled before a retry in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4m
		}, []string{"policy"}),

		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempt_duration_seconds",
			Help:      "Time spent inside a single operation attempt in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"policy"}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes every collector from reg.
func (m *Metrics) Unregister(reg prometheus.Registerer) {
	for _, c := range m.collectors() {
		reg.Unregister(c)
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.calls, m.attempts, m.retries, m.delay, m.attemptDuration}
}

// Hooks returns an option that records the call under policy.
// A nil Metrics records nothing.
func (m *Metrics) Hooks(policy string) retry.Option {
	if m == nil {
		return retry.Options()
	}
	return retry.Options(
		retry.OnAttempt(func(_ context.Context, a retry.Attempt) {
			m.recordAttempt(policy, a)
		}),
		retry.OnRetry(func(_ context.Context, _ int, _ error, delay time.Duration) {
			m.recordRetry(policy, delay)
		}),
		retry.OnSuccess(func(context.Context, int) {
			m.recordOutcome(policy, OutcomeSuccess)
		}),
		retry.OnExhausted(func(context.Context, int, error) {
			m.recordOutcome(policy, OutcomeExhausted)
		}),
		retry.OnStop(func(context.Context, int, error) {
			m.recordOutcome(policy, OutcomeStopped)
		}),
		retry.OnCancelled(func(context.Context, int, error) {
			m.recordOutcome(policy, OutcomeCancelled)
		}),
	)
}

func (m *Metrics) recordAttempt(policy string, a retry.Attempt) {
	result := "success"
	if !a.Succeeded() {
		result = "failure"
	}
	m.attempts.WithLabelValues(policy, result).Inc()
	m.attemptDuration.WithLabelValues(policy).Observe(a.Duration.Seconds())
}

func (m *Metrics) recordRetry(policy string, delay time.Duration) {
	m.retries.WithLabelValues(policy).Inc()
	m.delay.WithLabelValues(policy).Observe(delay.Seconds())
}

func (m *Metrics) recordOutcome(policy, outcome string) {
	m.calls.WithLabelValues(policy, outcome).Inc()
}

// IsAlreadyRegistered reports whether err came from registering the same
// collectors twice, which callers sharing a registry usually ignore.
func IsAlreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}
