package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	facilitydomain "github.com/smallbiznis/followup/internal/facility/domain"
	followupdomain "github.com/smallbiznis/followup/internal/followup/domain"
	recurringdomain "github.com/smallbiznis/followup/internal/recurring/domain"
	transactiondomain "github.com/smallbiznis/followup/internal/transaction/domain"
	"github.com/smallbiznis/followup/pkg/db"
	"github.com/smallbiznis/followup/pkg/db/pagination"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	var notEditable *facilitydomain.NotEditableError
	var callErr *facilitydomain.FacilityCallError

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, recurringdomain.ErrNotOwner):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.As(err, &notEditable):
		return http.StatusConflict, errorPayload{
			Type:    "not_editable",
			Message: notEditable.Error(),
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, followupdomain.ErrStatusConflict),
		errors.Is(err, recurringdomain.ErrAlreadyActive),
		errors.Is(err, recurringdomain.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case db.IsPersistenceErr(err):
		return http.StatusInternalServerError, errorPayload{
			Type:    "persistence_error",
			Message: "internal server error",
		}
	case errors.As(err, &callErr):
		return http.StatusBadGateway, errorPayload{
			Type:    "facility_error",
			Message: callErr.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, followupdomain.ErrInvalidPayload),
		errors.Is(err, followupdomain.ErrInvalidRequester),
		errors.Is(err, recurringdomain.ErrInvalidOwner),
		errors.Is(err, recurringdomain.ErrInvalidEndpoint),
		errors.Is(err, recurringdomain.ErrInvalidMethod),
		errors.Is(err, recurringdomain.ErrInvalidPayload),
		errors.Is(err, recurringdomain.ErrNegativeDelay),
		errors.Is(err, recurringdomain.ErrInvalidDelay),
		errors.Is(err, recurringdomain.ErrInvalidRetries),
		errors.Is(err, transactiondomain.ErrInvalidRequestID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, followupdomain.ErrNotFound),
		errors.Is(err, recurringdomain.ErrNotFound),
		errors.Is(err, facilitydomain.ErrUnknownFacility):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case recurringdomain.ErrNegativeDelay.Error(), recurringdomain.ErrInvalidDelay.Error():
		return "call_delay"
	case pagination.ErrInvalidPageToken.Error():
		return "page_token"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// classifyErrorForLog returns the error type and code used in request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, errorCode(err)
}

func errorCode(err error) string {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
	return ""
}
