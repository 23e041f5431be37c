// Package retry re-runs operations that can fail transiently, such as reading an index
// artifact while a concurrent build is still renaming it into place.
package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"scriptdex/internal/application/common/slogger"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	Jitter        bool          `json:"jitter"`
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Operation represents an operation that can be retried.
type Operation func(ctx context.Context) error

// Checker classifies errors as retryable.
type Checker interface {
	IsRetryable(err error) bool
}

// Executor handles retry logic with exponential backoff.
type Executor struct {
	config  *Config
	checker Checker
}

// NewExecutor creates a new executor with the default checker.
func NewExecutor(config *Config) *Executor {
	return NewExecutorWithChecker(config, nil)
}

// NewExecutorWithChecker creates a new executor with a custom checker.
func NewExecutorWithChecker(config *Config, checker Checker) *Executor {
	if config == nil {
		config = DefaultConfig()
	}
	if checker == nil {
		checker = &DefaultChecker{}
	}
	return &Executor{config: config, checker: checker}
}

// Execute executes an operation with retry logic.
func (r *Executor) Execute(ctx context.Context, operation Operation) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)
			slogger.Debug(ctx, "Retrying operation after delay", slogger.Fields3(
				"attempt", attempt,
				"max_retries", r.config.MaxRetries,
				"delay_ms", delay.Milliseconds(),
			))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				slogger.Info(ctx, "Operation succeeded after retries", slogger.Field("attempt", attempt+1))
			}
			return nil
		}
		lastErr = err

		if !r.checker.IsRetryable(err) {
			return err
		}

		slogger.Warn(ctx, "Operation failed, will retry", slogger.Fields3(
			"error", err.Error(),
			"attempt", attempt+1,
			"max_retries", r.config.MaxRetries,
		))
	}

	return fmt.Errorf("operation failed after %d retries: %w", r.config.MaxRetries, lastErr)
}

// calculateDelay calculates the delay for a given attempt using exponential backoff.
func (r *Executor) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	if r.config.Jitter {
		// up to 25% either way
		delay += (rand.Float64()*2 - 1) * delay * 0.25
	}
	return time.Duration(delay)
}

// DefaultChecker retries errors caused by a file that is mid-write or locked.
type DefaultChecker struct{}

// IsRetryable reports whether err looks transient.
func (d *DefaultChecker) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return containsAny(errStr, []string{
		"unexpected end of json input",
		"database is locked",
		"database table is locked",
		"resource temporarily unavailable",
		"text file busy",
		"try again",
	})
}

func containsAny(s string, substrings []string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// Do executes operation with the default configuration.
func Do(ctx context.Context, operation Operation) error {
	return NewExecutor(DefaultConfig()).Execute(ctx, operation)
}

// DoWithConfig executes operation with a custom configuration.
func DoWithConfig(ctx context.Context, config *Config, operation Operation) error {
	return NewExecutor(config).Execute(ctx, operation)
}
