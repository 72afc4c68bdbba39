package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func call(delay float64, retries int, oneShot bool) RecurringCall {
	return RecurringCall{
		NextCall:         base.Add(-time.Hour),
		CallDelay:        delay,
		RetriesRemaining: retries,
		Active:           true,
		OneShot:          oneShot,
	}
}

func TestSuccessReschedulesFromAttemptTime(t *testing.T) {
	c := call(2, 5, false)
	c.NextCall = base.Add(-30 * 24 * time.Hour)

	next := NextTransition(c, Attempt{StatusCode: 200, At: base})
	assert.True(t, next.Active)
	assert.Equal(t, 5, next.RetriesRemaining)
	assert.Equal(t, base.Add(48*time.Hour), next.NextCall)
	require.NotNil(t, next.LastStatus)
	assert.Equal(t, 200, *next.LastStatus)
	assert.Nil(t, next.LastError)
	assert.Equal(t, base, next.LastCalledAt)
}

func TestOneShotSuccessDeactivatesWithoutTouchingRetries(t *testing.T) {
	next := NextTransition(call(1, 3, true), Attempt{StatusCode: 200, At: base})
	assert.False(t, next.Active)
	assert.Equal(t, 3, next.RetriesRemaining)
	assert.False(t, next.Exhausted())
}

func TestZeroDelaySuccessActsAsOneShot(t *testing.T) {
	next := NextTransition(call(0, 3, false), Attempt{StatusCode: 204, At: base})
	assert.False(t, next.Active)
	assert.Equal(t, 3, next.RetriesRemaining)
}

func TestFailureDecrementsAndReschedules(t *testing.T) {
	next := NextTransition(call(0.5, 3, false), Attempt{StatusCode: 503, At: base})
	assert.True(t, next.Active)
	assert.Equal(t, 2, next.RetriesRemaining)
	assert.Equal(t, base.Add(12*time.Hour), next.NextCall)
}

func TestLastRetryExhaustsAndKeepsNextCall(t *testing.T) {
	c := call(1, 1, false)
	next := NextTransition(c, Attempt{StatusCode: 500, At: base})
	assert.False(t, next.Active)
	assert.Equal(t, 0, next.RetriesRemaining)
	assert.Equal(t, c.NextCall, next.NextCall)
	assert.True(t, next.Exhausted())
}

func TestTransportErrorCountsAsFailure(t *testing.T) {
	next := NextTransition(call(1, 2, false), Attempt{Err: errors.New("connection refused"), At: base})
	assert.Equal(t, 1, next.RetriesRemaining)
	assert.Nil(t, next.LastStatus)
	require.NotNil(t, next.LastError)
	assert.Equal(t, "connection refused", *next.LastError)
}

func TestRetriesAreMonotonicUntilZero(t *testing.T) {
	c := call(1, 4, false)
	at := base
	previous := c.RetriesRemaining
	for c.Active {
		next := NextTransition(c, Attempt{StatusCode: 500, At: at})
		assert.Equal(t, previous-1, next.RetriesRemaining)
		previous = next.RetriesRemaining
		c.RetriesRemaining = next.RetriesRemaining
		c.Active = next.Active
		c.NextCall = next.NextCall
		at = next.NextCall
	}
	assert.Equal(t, 0, c.RetriesRemaining)
}

func TestDelayDuration(t *testing.T) {
	assert.Equal(t, 24*time.Hour, DelayDuration(1))
	assert.Equal(t, 36*time.Hour, DelayDuration(1.5))
	assert.Equal(t, time.Duration(0), DelayDuration(0))
	assert.Equal(t, time.Duration(0), DelayDuration(-1))
	assert.Equal(t, time.Second, DelayDuration(0.000001))
	assert.Equal(t, MaxDelayDays*24*time.Hour, DelayDuration(200000))
	assert.Equal(t, MaxDelayDays*24*time.Hour, DelayDuration(math.Inf(1)))
}

func TestValidateDelay(t *testing.T) {
	cases := []struct {
		name string
		days float64
		want error
	}{
		{"zero", 0, nil},
		{"two seconds", 2.0 / (24 * 60 * 60), nil},
		{"fraction", 0.25, nil},
		{"upper bound", MaxDelayDays, nil},
		{"negative", -1, ErrNegativeDelay},
		{"nan", math.NaN(), ErrNegativeDelay},
		{"infinite", math.Inf(1), ErrNegativeDelay},
		{"sub-second", 0.000001, ErrInvalidDelay},
		{"too large", 200000, ErrInvalidDelay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.want == nil {
				assert.NoError(t, ValidateDelay(tc.days))
				return
			}
			assert.ErrorIs(t, ValidateDelay(tc.days), tc.want)
		})
	}
}

func TestRescheduleLandsAfterAttempt(t *testing.T) {
	for _, delay := range []float64{0.000001, 1.0 / (24 * 60 * 60), 0.1, 2, MaxDelayDays, 200000} {
		success := NextTransition(call(delay, 3, false), Attempt{StatusCode: 200, At: base})
		assert.True(t, success.NextCall.After(base), "success delay %v", delay)
		assert.True(t, success.Active, "success delay %v", delay)

		failure := NextTransition(call(delay, 3, false), Attempt{StatusCode: 500, At: base})
		assert.True(t, failure.NextCall.After(base), "failure delay %v", delay)
	}
}

func TestHasBody(t *testing.T) {
	assert.False(t, (&RecurringCall{Payload: []byte("null")}).HasBody())
	assert.False(t, (&RecurringCall{}).HasBody())
	assert.True(t, (&RecurringCall{Payload: []byte(`{"a":1}`)}).HasBody())
}
