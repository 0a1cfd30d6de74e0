package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrServiceUnavailable is surfaced when the breaker for an operation is
// open. The text is suitable for direct user display.
var ErrServiceUnavailable = errors.New("service temporarily unavailable, please try again later")

// StatusError carries the HTTP status of a failed upstream call so the
// classifier can decide by code before falling back to message matching.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.Code)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Code, e.Message)
}

// RetryOptions tune Retry. Zero-valued fields take the defaults.
type RetryOptions struct {
	MaxRetries           int
	InitialDelay         time.Duration
	MaxDelay             time.Duration
	BackoffMultiplier    float64
	OperationName        string
	RetryableStatusCodes []int
	RetryableErrors      []string
	Breaker              BreakerConfig
}

var defaultRetryableStatusCodes = []int{408, 429, 500, 502, 503, 504}

var defaultRetryableErrors = []string{
	"timeout",
	"network",
	"econnrefused",
	"econnreset",
	"etimedout",
	"enotfound",
	"request aborted",
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetries < 1 {
		o.MaxRetries = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.BackoffMultiplier <= 0 {
		o.BackoffMultiplier = 2
	}
	if o.OperationName == "" {
		o.OperationName = "operation"
	}
	if o.RetryableStatusCodes == nil {
		o.RetryableStatusCodes = defaultRetryableStatusCodes
	}
	if o.RetryableErrors == nil {
		o.RetryableErrors = defaultRetryableErrors
	}
	return o
}

// Retry runs op through the breaker named by opts.OperationName with
// exponential backoff, retrying only errors classified as transient.
// MaxRetries is the total attempt budget. Once the breaker opens, whether
// it rejected this call or this call's failure tripped it, the remaining
// budget is abandoned and ErrServiceUnavailable is returned.
func Retry(ctx context.Context, reg *BreakerRegistry, op Operation, opts RetryOptions) (any, error) {
	opts = opts.withDefaults()
	breaker := reg.Get(opts.OperationName, opts.Breaker)

	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		result, err := breaker.Execute(ctx, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsCircuitOpen(err) || breaker.State() == StateOpen {
			return nil, ErrServiceUnavailable
		}
		if !isRetryable(err, opts) {
			return nil, err
		}
		if attempt == opts.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoffDelay(attempt, opts)):
		}
	}
	return nil, lastErr
}

// isRetryable classifies err: a listed HTTP status is transient, an unlisted
// 4xx is not, anything else falls back to case-insensitive substring
// matching on the message.
func isRetryable(err error, opts RetryOptions) bool {
	var se *StatusError
	if errors.As(err, &se) {
		for _, code := range opts.RetryableStatusCodes {
			if se.Code == code {
				return true
			}
		}
		if se.Code >= 400 && se.Code < 500 {
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sub := range opts.RetryableErrors {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

func backoffDelay(attempt int, opts RetryOptions) time.Duration {
	delay := float64(opts.InitialDelay) * math.Pow(opts.BackoffMultiplier, float64(attempt-1))
	if delay > float64(opts.MaxDelay) {
		delay = float64(opts.MaxDelay)
	}
	return time.Duration(delay)
}
