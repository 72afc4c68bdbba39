package guard

import (
	"testing"
	"time"

	"github.com/smallbiznis/followup/internal/recurring/domain"
	"github.com/stretchr/testify/assert"
)

func TestEnsureCallDue(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	due := domain.RecurringCall{Active: true, RetriesRemaining: 1, NextCall: now}

	assert.NoError(t, EnsureCallDue(due, now))

	inactive := due
	inactive.Active = false
	assert.ErrorIs(t, EnsureCallDue(inactive, now), ErrCallInactive)

	future := due
	future.NextCall = now.Add(time.Second)
	assert.ErrorIs(t, EnsureCallDue(future, now), ErrCallNotDue)

	drained := due
	drained.RetriesRemaining = 0
	assert.ErrorIs(t, EnsureCallDue(drained, now), ErrNoRetries)
}
