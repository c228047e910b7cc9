package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	ncmRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncm_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	ncmRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ncm_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	ncmRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncm_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic. The constants are
// deliberate design parameters, not hidden magic numbers; callers tune them
// through Config.Retry.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// sanitize fills zero fields with defaults so a partially populated config
// never disables retries by accident.
func (rc RetryConfig) sanitize() RetryConfig {
	def := DefaultRetryConfig()
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = def.MaxAttempts
	}
	if rc.InitialBackoff <= 0 {
		rc.InitialBackoff = def.InitialBackoff
	}
	if rc.MaxBackoff <= 0 {
		rc.MaxBackoff = def.MaxBackoff
	}
	if rc.BackoffMultiplier <= 0 {
		rc.BackoffMultiplier = def.BackoffMultiplier
	}
	return rc
}

// retryWithBackoff executes fn with exponential backoff retry logic.
// Fatal error classes return immediately; retryable classes are reattempted
// up to config.MaxAttempts with jittered exponential backoff. A 429's
// Retry-After extends the backoff when it is longer than the computed wait.
// Context cancellation is respected during backoff sleeps.
func retryWithBackoff(ctx context.Context, config RetryConfig, logger zerolog.Logger, fn func() error) error {
	config = config.sanitize()

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		class := classOf(err)

		if !shouldRetry(class) {
			// Fatal classes (config, auth, not_found, request) don't self-heal
			return lastErr
		}

		if attempt >= config.MaxAttempts {
			break
		}

		ncmRetriesTotal.WithLabelValues(string(class)).Inc()

		// Add jitter (±20% randomness)
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		// Honor a longer server-requested cooldown
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
			wait = apiErr.RetryAfter
		}

		ncmRetryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())

		logger.Warn().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Str("error_class", string(class)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(wait):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	class := classOf(lastErr)
	ncmRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
	logger.Warn().
		Str("error_class", string(class)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}

// classOf extracts the error class, defaulting to transport for errors the
// dispatcher did not build itself.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ErrorClassTransport
}
