package domain

import (
	"math"
	"time"
)

// Attempt is the outcome of one scheduled HTTP exchange. StatusCode is zero
// when no response arrived.
type Attempt struct {
	StatusCode int
	Err        error
	At         time.Time
}

func (a Attempt) Succeeded() bool {
	return a.Err == nil && a.StatusCode >= 200 && a.StatusCode < 300
}

// Transition is the state a call moves to after an attempt.
type Transition struct {
	NextCall         time.Time
	RetriesRemaining int
	Active           bool
	LastStatus       *int
	LastError        *string
	LastCalledAt     time.Time
}

// Exhausted reports whether the attempt consumed the final retry.
func (t Transition) Exhausted() bool {
	return !t.Active && t.RetriesRemaining == 0
}

// NextTransition computes the post-attempt state of call. It does not touch
// call. Rescheduling always starts from a.At, so overdue calls are not caught up.
func NextTransition(call RecurringCall, a Attempt) Transition {
	t := Transition{
		NextCall:         call.NextCall,
		RetriesRemaining: call.RetriesRemaining,
		Active:           call.Active,
		LastCalledAt:     a.At,
	}
	if a.StatusCode != 0 {
		status := a.StatusCode
		t.LastStatus = &status
	}
	if a.Err != nil {
		msg := truncate(a.Err.Error(), 1024)
		t.LastError = &msg
	}

	if a.Succeeded() {
		t.NextCall = a.At.Add(DelayDuration(call.CallDelay))
		if call.OneShot || call.CallDelay == 0 {
			t.Active = false
		}
		return t
	}

	if t.RetriesRemaining > 0 {
		t.RetriesRemaining--
	}
	if t.RetriesRemaining == 0 {
		t.Active = false
		return t
	}
	t.NextCall = a.At.Add(DelayDuration(call.CallDelay))
	return t
}

const (
	// MaxDelayDays bounds call_delay so that now + delay stays representable.
	MaxDelayDays  = 36500
	secondsPerDay = 24 * 60 * 60
)

// ValidateDelay reports whether days is usable as a call_delay. Zero is valid
// and means one-shot; a positive delay must be at least one second.
func ValidateDelay(days float64) error {
	if days < 0 || math.IsNaN(days) || math.IsInf(days, 0) {
		return ErrNegativeDelay
	}
	if days == 0 {
		return nil
	}
	if days > MaxDelayDays || days*secondsPerDay < 1 {
		return ErrInvalidDelay
	}
	return nil
}

// DelayDuration converts a delay in days to a duration rounded to the second.
// Positive delays yield at least one second and are capped at MaxDelayDays.
func DelayDuration(days float64) time.Duration {
	if days <= 0 || math.IsNaN(days) {
		return 0
	}
	if days > MaxDelayDays {
		days = MaxDelayDays
	}
	seconds := math.Max(1, math.Round(days*secondsPerDay))
	return time.Duration(seconds) * time.Second
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
