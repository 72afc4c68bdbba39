package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/recurring/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, call *domain.RecurringCall) error {
	if call == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO recurring_calls (
			id, owner_id, endpoint, method, payload, next_call, call_delay,
			retries_remaining, active, one_shot, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		call.ID,
		call.OwnerID,
		call.Endpoint,
		call.Method,
		call.Payload,
		call.NextCall,
		call.CallDelay,
		call.RetriesRemaining,
		call.Active,
		call.OneShot,
		call.Version,
		call.CreatedAt,
		call.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.RecurringCall, error) {
	var call domain.RecurringCall
	err := db.WithContext(ctx).Where("id = ?", id).Take(&call).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID string, afterID snowflake.ID, limit int) ([]domain.RecurringCall, error) {
	var calls []domain.RecurringCall
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id > ?", ownerID, afterID).
		Order("id asc").
		Limit(limit).
		Find(&calls).Error
	if err != nil {
		return nil, err
	}
	return calls, nil
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, now time.Time, afterID snowflake.ID, limit int) ([]domain.RecurringCall, error) {
	var calls []domain.RecurringCall
	err := db.WithContext(ctx).
		Where("active = ? AND next_call <= ? AND id > ?", true, now, afterID).
		Order("id asc").
		Limit(limit).
		Find(&calls).Error
	if err != nil {
		return nil, err
	}
	return calls, nil
}

func (r *repo) ApplyTransition(ctx context.Context, db *gorm.DB, id snowflake.ID, version int64, t domain.Transition, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE recurring_calls
		 SET next_call = ?, retries_remaining = ?, active = ?,
		     last_status = ?, last_error = ?, last_called_at = ?,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND active = ?`,
		t.NextCall,
		t.RetriesRemaining,
		t.Active,
		t.LastStatus,
		t.LastError,
		t.LastCalledAt,
		now,
		id,
		version,
		true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE recurring_calls
		 SET active = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND active = ?`,
		false,
		now,
		id,
		true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Reactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, retries int, nextCall, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE recurring_calls
		 SET active = ?, retries_remaining = ?, next_call = ?, last_error = NULL,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND active = ?`,
		true,
		retries,
		nextCall,
		now,
		id,
		false,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
