package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Entry describes an exchange to record. Response is nil when the transport
// failed before a response arrived.
type Entry struct {
	FollowupRequestID *snowflake.ID
	RecurringCallID   *snowflake.ID
	InitiatorID       string
	Request           RequestRecord
	Response          *ResponseRecord
	Err               error
}

type Service interface {
	Record(ctx context.Context, entry Entry) (snowflake.ID, error)
	ListByRequest(ctx context.Context, requestID snowflake.ID) ([]FacilityTransaction, error)
	ListByRecurringCall(ctx context.Context, callID snowflake.ID) ([]FacilityTransaction, error)
}

// Repository is append-only: there is no update or delete.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *FacilityTransaction) error
	ListByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID) ([]*FacilityTransaction, error)
	ListByRecurringCall(ctx context.Context, db *gorm.DB, callID snowflake.ID) ([]*FacilityTransaction, error)
}

var (
	ErrInvalidRequestID = errors.New("invalid_request_id")
	ErrInvalidRecord    = errors.New("invalid_record")
)
