package guard

import (
	"errors"
	"time"

	"github.com/smallbiznis/followup/internal/recurring/domain"
)

var (
	ErrCallInactive = errors.New("recurring_call_inactive")
	ErrCallNotDue   = errors.New("recurring_call_not_due")
	ErrNoRetries    = errors.New("recurring_call_no_retries")
)

// EnsureCallDue reports whether call may be attempted in a tick that started
// at now.
func EnsureCallDue(call domain.RecurringCall, now time.Time) error {
	if !call.Active {
		return ErrCallInactive
	}
	if call.RetriesRemaining <= 0 {
		return ErrNoRetries
	}
	if call.NextCall.After(now) {
		return ErrCallNotDue
	}
	return nil
}
