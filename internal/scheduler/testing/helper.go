// Package testing holds helpers for driving recurring calls through the
// scheduler in tests and local environments.
package testing

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TimeAccelerator rewrites next_call so calls become due without waiting.
type TimeAccelerator struct {
	db *gorm.DB
}

func NewTimeAccelerator(db *gorm.DB) *TimeAccelerator {
	return &TimeAccelerator{db: db}
}

// MakeDue moves next_call of an active call to at.
func (ta *TimeAccelerator) MakeDue(ctx context.Context, callID snowflake.ID, at time.Time) error {
	return ta.db.WithContext(ctx).Exec(
		`UPDATE recurring_calls
		 SET next_call = ?, updated_at = ?
		 WHERE id = ? AND active = ?`,
		at,
		at,
		callID,
		true,
	).Error
}

// MakeAllDue moves every active call scheduled after at back to at.
func (ta *TimeAccelerator) MakeAllDue(ctx context.Context, at time.Time) (int64, error) {
	result := ta.db.WithContext(ctx).Exec(
		`UPDATE recurring_calls
		 SET next_call = ?, updated_at = ?
		 WHERE active = ? AND next_call > ?`,
		at,
		at,
		true,
		at,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
