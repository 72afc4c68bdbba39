package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateRequest struct {
	OwnerID   string          `json:"owner_id"`
	Endpoint  string          `json:"endpoint"`
	Method    string          `json:"method"`
	Payload   json.RawMessage `json:"payload"`
	NextCall  *time.Time      `json:"next_call"`
	CallDelay *float64        `json:"call_delay"`
	Retries   *int            `json:"retries"`
	OneShot   bool            `json:"one_shot"`
}

type ListRequest struct {
	OwnerID string
	pagination.Pagination
}

type ListResponse struct {
	Calls    []RecurringCall      `json:"calls"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type ReactivateRequest struct {
	ID       snowflake.ID
	Retries  int
	NextCall *time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*RecurringCall, error)
	Get(ctx context.Context, id snowflake.ID) (*RecurringCall, error)
	ListByOwner(ctx context.Context, req ListRequest) (ListResponse, error)
	Cancel(ctx context.Context, id snowflake.ID, ownerID string) (*RecurringCall, error)
	Reactivate(ctx context.Context, req ReactivateRequest) (*RecurringCall, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, call *RecurringCall) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RecurringCall, error)
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID string, afterID snowflake.ID, limit int) ([]RecurringCall, error)
	// ListDue returns active calls with next_call <= now and id > afterID, by id.
	ListDue(ctx context.Context, db *gorm.DB, now time.Time, afterID snowflake.ID, limit int) ([]RecurringCall, error)
	// ApplyTransition writes t if the row is still active at version and
	// reports whether it did.
	ApplyTransition(ctx context.Context, db *gorm.DB, id snowflake.ID, version int64, t Transition, now time.Time) (bool, error)
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	Reactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, retries int, nextCall, now time.Time) (bool, error)
}

var (
	ErrNotFound        = errors.New("recurring_call_not_found")
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidEndpoint = errors.New("invalid_endpoint")
	ErrInvalidMethod   = errors.New("invalid_method")
	ErrInvalidPayload  = errors.New("invalid_payload")
	ErrNegativeDelay   = errors.New("negative_call_delay")
	ErrInvalidDelay    = errors.New("invalid_call_delay")
	ErrInvalidRetries  = errors.New("invalid_retries")
	ErrNotOwner        = errors.New("not_owner")
	ErrAlreadyActive   = errors.New("recurring_call_already_active")
	ErrConflict        = errors.New("recurring_call_conflict")
)
