package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusDeleted   Status = "deleted"
)

// FollowupRequest is an observation request routed to one facility.
type FollowupRequest struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Facility    string         `gorm:"type:varchar(128);not null" json:"facility"`
	Status      Status         `gorm:"type:varchar(32);not null" json:"status"`
	Payload     datatypes.JSON `json:"payload"`
	RequesterID string         `gorm:"type:varchar(128);not null" json:"requester_id"`
	ExternalID  *string        `gorm:"type:varchar(255)" json:"external_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (FollowupRequest) TableName() string { return "followup_requests" }
