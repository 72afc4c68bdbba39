package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Facility    string          `json:"facility"`
	RequesterID string          `json:"requester_id"`
	Payload     json.RawMessage `json:"payload"`
}

// Service is the follow-up dispatcher. Parameters is the facility parameter
// map, kept as map[string]any here to avoid depending on the facility package.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*FollowupRequest, error)
	Get(ctx context.Context, id snowflake.ID) (*FollowupRequest, error)

	Submit(ctx context.Context, req *FollowupRequest) error
	Update(ctx context.Context, req *FollowupRequest, params map[string]any) error
	Delete(ctx context.Context, req *FollowupRequest) error

	SubmitByID(ctx context.Context, id snowflake.ID) (*FollowupRequest, error)
	UpdateByID(ctx context.Context, id snowflake.ID, params map[string]any) (*FollowupRequest, error)
	DeleteByID(ctx context.Context, id snowflake.ID) (*FollowupRequest, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, req *FollowupRequest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FollowupRequest, error)
	// CompareAndSetStatus moves id from one status to another and reports
	// whether the row was still in the expected status.
	CompareAndSetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, externalID *string, now time.Time) (bool, error)
	UpdatePayload(ctx context.Context, db *gorm.DB, id snowflake.ID, payload datatypes.JSON, now time.Time) error
}

var (
	ErrNotFound         = errors.New("followup_request_not_found")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidRequester = errors.New("invalid_requester")
	ErrStatusConflict   = errors.New("status_conflict")
)
