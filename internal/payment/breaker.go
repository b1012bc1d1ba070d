// Package payment holds the HTTP clients for the payment providers and the
// WhatsApp checkout link builder.
package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nicoirigoyen/e-commerce/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const defaultTimeout = 10 * time.Second

// BreakerSettings tunes the circuit breaker in front of a provider.
type BreakerSettings struct {
	MaxRequests uint32        // requests let through while half-open
	Interval    time.Duration // window for failure counts
	Timeout     time.Duration // open duration before half-open
	MinRequests uint32
	FailureRate float64
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		MinRequests: 3,
		FailureRate: 0.6,
	}
}

type breaker = gobreaker.CircuitBreaker[*resty.Response]

func newBreaker(name string, s BreakerSettings, logger *logrus.Logger) *breaker {
	cb := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRate
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))
			logger.WithFields(logrus.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return cb
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// call runs req through cb. Transport errors and 5xx answers count as
// breaker failures; 4xx answers are returned as errors without tripping it.
func call(cb *breaker, provider string, req func() (*resty.Response, error)) (*resty.Response, error) {
	resp, err := cb.Execute(func() (*resty.Response, error) {
		resp, err := req()
		if err != nil {
			return nil, fmt.Errorf("http error: %w", err)
		}
		if resp.StatusCode() >= 500 {
			return nil, fmt.Errorf("%s returned status %d: %s", provider, resp.StatusCode(), resp.String())
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("circuit breaker %s is open: %w", cb.Name(), err)
	}
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s returned status %d: %s", provider, resp.StatusCode(), resp.String())
	}
	return resp, nil
}

func newRestyClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
}
