// Package retry implements the bounded retry policy for transient failures
// of the remote inference endpoint: a fixed attempt budget with exponential
// backoff and no jitter. It covers exactly one failure class; anything not
// marked transient is returned to the caller on the first attempt.
package retry

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied when a Policy field is left zero.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffUnit = time.Second
)

// ErrTransient marks a failure as retryable. Transport code wraps 503
// responses and network-level errors with it; everything else passes
// through Do untouched.
var ErrTransient = errors.New("transient service failure")

// Mark wraps err into the transient failure class.
func Mark(err error) error {
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// Policy is one bounded retry budget. Sleep is injectable so tests can
// observe backoff without waiting; nil means time.Sleep.
type Policy struct {
	MaxAttempts int
	BackoffUnit time.Duration
	Sleep       func(time.Duration)
}

// Do runs attempt up to the policy's budget, sleeping 2^n backoff units
// after the n-th transient failure. The attempt number passed in starts at
// 1. The final transient error is returned unchanged so the caller can map
// exhaustion to its own failure kind.
func Do(policy Policy, attempt func(n int) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	unit := policy.BackoffUnit
	if unit <= 0 {
		unit = DefaultBackoffUnit
	}

	sleep := policy.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error

	for n := 1; n <= maxAttempts; n++ {
		lastErr = attempt(n)
		if lastErr == nil {
			return nil
		}

		if !errors.Is(lastErr, ErrTransient) {
			return lastErr
		}

		if n < maxAttempts {
			sleep(time.Duration(1<<uint(n)) * unit)
		}
	}

	return lastErr
}
