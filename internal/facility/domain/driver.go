package domain

import (
	"context"

	followupdomain "github.com/smallbiznis/followup/internal/followup/domain"
)

//go:generate mockgen -source=driver.go -destination=../mocks/mock_driver.go -package=mocks

// Parameters are facility-specific request parameters supplied on update.
type Parameters map[string]any

// Driver talks to one facility API. Every outbound exchange a driver makes must go
// through the outbound client so that it lands in the transaction log.
type Driver interface {
	// Facility returns the identifier the registry keys this driver under.
	Facility() string
	RequestsEditable() bool

	// Submit sends req to the facility and sets its status to submitted on success.
	// On failure req.Status is left as it was.
	Submit(ctx context.Context, req *followupdomain.FollowupRequest) error
	Update(ctx context.Context, req *followupdomain.FollowupRequest, params Parameters) error
	Delete(ctx context.Context, req *followupdomain.FollowupRequest) error
}
