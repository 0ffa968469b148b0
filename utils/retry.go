package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// FailureClass tells a retry loop whether an error is worth another attempt
type FailureClass int

const (
	Fatal FailureClass = iota
	Transient
)

func (c FailureClass) String() string {
	if c == Transient {
		return "transient"
	}
	return "fatal"
}

// Classifier maps an error onto a FailureClass.
type Classifier func(error) FailureClass

// ErrRetriesExhausted wraps the last transient failure once the attempt budget is spent.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy is a bounded attempt budget with linearly increasing backoff.
// Attempt n waits n*Backoff before attempt n+1.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Sleep    func(time.Duration)
}

// DefaultRetryPolicy is three attempts, 500ms apart and growing.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond}
}

func (p RetryPolicy) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Retry runs fn until it succeeds, fails fatally, or the budget runs out.
// Only failures classified Transient are retried.
func Retry(ctx context.Context, p RetryPolicy, classify Classifier, fn func(context.Context) error) error {
	_, err := RetryValue(ctx, p, classify, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryValue is Retry for operations that return a value.
func RetryValue[T any](ctx context.Context, p RetryPolicy, classify Classifier, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if classify(err) != Transient {
			return zero, err
		}
		if attempt >= attempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
		}
		p.sleep(time.Duration(attempt) * p.Backoff)
	}
}

// ClassifySMTPFailure treats network blips and 4xx SMTP replies as transient.
func ClassifySMTPFailure(err error) FailureClass {
	if err == nil {
		return Fatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}
	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{"try again", "temporary", "connection reset", "connection refused", "421", "450", "451", "452"} {
		if strings.Contains(errStr, marker) {
			return Transient
		}
	}
	return Fatal
}
