package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/followup/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, req *domain.FollowupRequest) error {
	if req == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO followup_requests (
			id, facility, status, payload, requester_id, external_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.Facility,
		req.Status,
		req.Payload,
		req.RequesterID,
		req.ExternalID,
		req.CreatedAt,
		req.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FollowupRequest, error) {
	var req domain.FollowupRequest
	err := db.WithContext(ctx).Where("id = ?", id).Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repo) CompareAndSetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, externalID *string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE followup_requests
		 SET status = ?, external_id = COALESCE(?, external_id), updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		externalID,
		now,
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) UpdatePayload(ctx context.Context, db *gorm.DB, id snowflake.ID, payload datatypes.JSON, now time.Time) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE followup_requests SET payload = ?, updated_at = ? WHERE id = ?`,
		payload,
		now,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
