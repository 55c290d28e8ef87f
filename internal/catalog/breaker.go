package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cesargomez89/archivebackup/internal/domain"
	"github.com/cesargomez89/archivebackup/internal/logger"
	"github.com/cesargomez89/archivebackup/internal/metrics"
)

// statusError is a non-2xx answer. 5xx answers count against the breaker.
type statusError struct {
	URL  string
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

func newBreaker(name string, maxFailures uint32, openTimeout time.Duration, log *logger.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	if maxFailures == 0 {
		maxFailures = 1
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// The caller giving up, or a 4xx, says nothing about the archive's health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *statusError
			if errors.As(err, &se) {
				return se.Code < http.StatusInternalServerError
			}
			return false
		},
	})
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

// classifyRemote maps a failed call onto the remote error kinds.
func classifyRemote(err error) error {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return fmt.Errorf("%w: %v", domain.ErrRemoteNotFound, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: circuit open: %v", domain.ErrRemoteUnavailable, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
}
