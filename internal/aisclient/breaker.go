package aisclient

import (
	"context"
	"errors"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "ais-backend"

// newBreaker создает circuit breaker для AIS бэкенда.
// Открывается после FailureThreshold ошибок подряд. Ответы 4xx и отмена
// контекста клиентом ошибками бэкенда не считаются.
func newBreaker(name string, cfg *config.BreakerConfig, logger *utils.Logger) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logger.WithFields(map[string]interface{}{
					"breaker":              name,
					"consecutive_failures": counts.ConsecutiveFailures,
				}).Warn("Opening circuit")
			}
			return trip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    fromStr,
				"to":      toStr,
			}).Info("Circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		IsSuccessful: isSuccessful,
	})
}

func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code < 500
	}
	return false
}

// stateToFloat числовое значение состояния для метрик
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
