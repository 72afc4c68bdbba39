package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// RequestRecord is the persisted shape of an outbound request.
type RequestRecord struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// ResponseRecord is the persisted shape of a facility response.
type ResponseRecord struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
}

// FacilityTransaction is one immutable request/response exchange.
type FacilityTransaction struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time       `json:"created_at"`
	Request           datatypes.JSON  `json:"request"`
	Response          *datatypes.JSON `json:"response,omitempty"`
	FollowupRequestID *snowflake.ID   `json:"followup_request_id,omitempty"`
	RecurringCallID   *snowflake.ID   `json:"recurring_call_id,omitempty"`
	InitiatorID       string          `gorm:"type:varchar(128);not null" json:"initiator_id"`
	Error             *string         `json:"error,omitempty"`
}

func (FacilityTransaction) TableName() string { return "facility_transactions" }
