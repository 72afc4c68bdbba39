package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownFacility   = errors.New("unknown_facility")
	ErrNotEditable       = errors.New("requests_not_editable")
	ErrFacilityCall      = errors.New("facility_call_failed")
	ErrDuplicateFacility = errors.New("duplicate_facility")
	ErrInvalidFacility   = errors.New("invalid_facility")
)

type UnknownFacilityError struct {
	Facility string
}

func (e *UnknownFacilityError) Error() string {
	return fmt.Sprintf("unknown facility %q", e.Facility)
}

func (e *UnknownFacilityError) Is(target error) bool { return target == ErrUnknownFacility }

// NotEditableError is returned before any network action when a facility
// does not accept changes to submitted requests.
type NotEditableError struct {
	Facility  string
	Operation string
}

func (e *NotEditableError) Error() string {
	return fmt.Sprintf("facility %q does not support %s of submitted requests", e.Facility, e.Operation)
}

func (e *NotEditableError) Is(target error) bool { return target == ErrNotEditable }

// FacilityCallError reports a failed outbound exchange. StatusCode is zero when
// no response was received.
type FacilityCallError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FacilityCallError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
}

func (e *FacilityCallError) Unwrap() error { return e.Err }

func (e *FacilityCallError) Is(target error) bool { return target == ErrFacilityCall }

// Retryable reports whether repeating the same call could succeed.
func (e *FacilityCallError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}
