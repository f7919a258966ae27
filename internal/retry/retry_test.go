package retry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/sesame-tts/internal/retry"
)

var errPermanent = errors.New("permanent failure")

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	policy := retry.Policy{
		MaxAttempts: 3,
		BackoffUnit: time.Millisecond,
		Sleep:       func(time.Duration) { t.Error("no sleep expected on success") },
	}

	err := retry.Do(policy, func(int) error {
		calls++

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsBudgetOnTransientFailure(t *testing.T) {
	t.Parallel()

	var slept []time.Duration

	calls := 0
	policy := retry.Policy{
		MaxAttempts: 3,
		BackoffUnit: time.Millisecond,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	err := retry.Do(policy, func(int) error {
		calls++

		return retry.Mark(errors.New("status 503"))
	})
	require.ErrorIs(t, err, retry.ErrTransient)
	assert.Equal(t, 3, calls)
	// Backoff doubles per attempt: 2^1, 2^2 units between the three attempts.
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond}, slept)
}

func TestDo_RecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	policy := retry.Policy{
		MaxAttempts: 3,
		BackoffUnit: time.Millisecond,
		Sleep:       func(time.Duration) {},
	}

	err := retry.Do(policy, func(int) error {
		calls++
		if calls == 1 {
			return retry.Mark(errors.New("connection reset"))
		}

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	policy := retry.Policy{
		MaxAttempts: 3,
		BackoffUnit: time.Millisecond,
		Sleep:       func(time.Duration) { t.Error("no sleep expected for permanent failure") },
	}

	err := retry.Do(policy, func(int) error {
		calls++

		return errPermanent
	})
	require.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptNumbersStartAtOne(t *testing.T) {
	t.Parallel()

	var seen []int

	policy := retry.Policy{MaxAttempts: 2, BackoffUnit: time.Millisecond, Sleep: func(time.Duration) {}}

	_ = retry.Do(policy, func(n int) error {
		seen = append(seen, n)

		return retry.Mark(errors.New("timeout"))
	})
	assert.Equal(t, []int{1, 2}, seen)
}
