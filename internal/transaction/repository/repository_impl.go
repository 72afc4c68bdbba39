package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/transaction/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.FacilityTransaction) error {
	if tx == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO facility_transactions (
			id, created_at, request, response, followup_request_id,
			recurring_call_id, initiator_id, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.CreatedAt,
		tx.Request,
		tx.Response,
		tx.FollowupRequestID,
		tx.RecurringCallID,
		tx.InitiatorID,
		tx.Error,
	).Error
}

func (r *repo) ListByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID) ([]*domain.FacilityTransaction, error) {
	var items []*domain.FacilityTransaction
	err := db.WithContext(ctx).
		Where("followup_request_id = ?", requestID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByRecurringCall(ctx context.Context, db *gorm.DB, callID snowflake.ID) ([]*domain.FacilityTransaction, error) {
	var items []*domain.FacilityTransaction
	err := db.WithContext(ctx).
		Where("recurring_call_id = ?", callID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
