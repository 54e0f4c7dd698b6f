// Package circuitbreaker makes calls to a failing dependency fail fast.
// It wraps github.com/sony/gobreaker and exports the breaker state as a
// Prometheus gauge.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	// ErrOpenState is returned while the circuit is open.
	ErrOpenState = gobreaker.ErrOpenState
	// ErrTooManyRequests is returned in half-open state once MaxRequests
	// probes are in flight.
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// stateGauge is 0 closed, 1 half-open, 2 open.
var stateGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	},
	[]string{"circuit"},
)

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name labels logs and the state gauge.
	Name string

	// MaxRequests is the number of probes allowed in half-open state.
	MaxRequests uint32

	// Interval clears the failure count while closed; 0 never clears it.
	Interval time.Duration

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// ConsecutiveFailures trips the circuit.
	ConsecutiveFailures uint32

	// IsSuccessful decides whether an error counts against the circuit.
	// Nil counts every non-nil error as a failure.
	IsSuccessful func(err error) bool
}

// TimetableConfig returns the configuration for the timetable source.
// A tick walks every schedule back to back, so three failures in a row
// open the circuit for longer than one tick usually takes.
func TimetableConfig() Config {
	return Config{
		Name:                "timetable-source",
		MaxRequests:         1,
		Interval:            5 * time.Minute,
		Timeout:             2 * time.Minute,
		ConsecutiveFailures: 3,
	}
}

// CircuitBreaker guards calls to one dependency.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a closed circuit breaker.
func New(cfg Config) *CircuitBreaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 1
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			stateGauge.WithLabelValues(name).Set(stateValue(to))
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		IsSuccessful: cfg.IsSuccessful,
	}

	stateGauge.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))
	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Do runs fn through cb and returns its typed result. While the circuit is
// open it returns ErrOpenState without calling fn.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// State returns the current state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether calls are currently rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
