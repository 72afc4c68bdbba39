package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	DefaultRetries = 10
	DefaultDelay   = 1.0
)

// RecurringCall is an HTTP request the scheduler issues every CallDelay days
// until it runs out of retries, is cancelled, or completes as a one-shot.
type RecurringCall struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	OwnerID          string         `gorm:"type:text;not null" json:"owner_id"`
	Endpoint         string         `gorm:"type:text;not null" json:"endpoint"`
	Method           string         `gorm:"type:text;not null" json:"method"`
	Payload          datatypes.JSON `gorm:"type:json;not null" json:"payload"`
	NextCall         time.Time      `gorm:"not null;index:recurring_calls_due_idx,priority:2" json:"next_call"`
	CallDelay        float64        `gorm:"not null;default:1" json:"call_delay"`
	RetriesRemaining int            `gorm:"not null" json:"retries_remaining"`
	Active           bool           `gorm:"not null;default:true;index:recurring_calls_due_idx,priority:1" json:"active"`
	OneShot          bool           `gorm:"not null;default:false" json:"one_shot"`
	Version          int64          `gorm:"not null;default:0" json:"version"`
	LastStatus       *int           `json:"last_status,omitempty"`
	LastError        *string        `gorm:"type:text" json:"last_error,omitempty"`
	LastCalledAt     *time.Time     `json:"last_called_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (RecurringCall) TableName() string { return "recurring_calls" }

// HasBody reports whether the stored payload should be sent as a request body.
func (c *RecurringCall) HasBody() bool {
	switch string(c.Payload) {
	case "", "null":
		return false
	default:
		return true
	}
}
