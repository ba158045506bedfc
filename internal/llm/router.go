package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/babar-raza/tbcv/internal/metrics"
	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Router wraps one or more contracts.LLMDriver instances with a circuit
// breaker and exponential backoff, and fails over to the next configured
// driver when the current one's breaker is open or its call errors out.
// Mirrors the teacher's ModelRouter failover idea, simplified from its
// cost/latency/round-robin strategy table to a flat priority list — TBCV
// has no multi-tenant cost tracking to optimize against.
type Router struct {
	drivers  []contracts.LLMDriver
	breakers map[string]*gobreaker.CircuitBreaker
	timeout  time.Duration
}

// NewRouter builds a Router trying drivers in order, first to last.
func NewRouter(breakerName string, timeout time.Duration, drivers ...contracts.LLMDriver) *Router {
	r := &Router{
		drivers:  drivers,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		timeout:  timeout,
	}
	for _, d := range drivers {
		name := breakerName + "-" + d.Name()
		r.breakers[d.Name()] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("llm circuit breaker state change")
			},
		})
	}
	return r
}

var ErrNoDriversAvailable = errors.New("llm: no drivers available")

// Complete tries each configured driver in order, through its circuit
// breaker with exponential backoff on transient failures, moving to the
// next driver only once the current one's retries are exhausted.
func (r *Router) Complete(ctx context.Context, req contracts.CompletionRequest) (contracts.CompletionResult, error) {
	if len(r.drivers) == 0 {
		return contracts.CompletionResult{}, ErrNoDriversAvailable
	}

	var lastErr error
	for _, d := range r.drivers {
		result, err := r.callWithResilience(ctx, d, req)
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(d.Name(), "ok").Inc()
			return result, nil
		}
		metrics.LLMRequestsTotal.WithLabelValues(d.Name(), "error").Inc()
		log.Warn().Err(err).Str("driver", d.Name()).Msg("llm: driver failed, trying next")
		lastErr = err
	}
	return contracts.CompletionResult{}, fmt.Errorf("llm: all drivers failed: %w", lastErr)
}

func (r *Router) callWithResilience(ctx context.Context, d contracts.LLMDriver, req contracts.CompletionRequest) (contracts.CompletionResult, error) {
	breaker := r.breakers[d.Name()]
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), callCtx)

	var result contracts.CompletionResult
	op := func() error {
		v, err := breaker.Execute(func() (any, error) {
			return d.Complete(callCtx, req)
		})
		if err != nil {
			return err
		}
		result = v.(contracts.CompletionResult)
		return nil
	}

	if err := backoff.Retry(op, bo); err != nil {
		return contracts.CompletionResult{}, err
	}
	return result, nil
}

func (r *Router) Name() string { return "router" }

var _ contracts.LLMDriver = (*Router)(nil)
