package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/clock"
	"github.com/smallbiznis/followup/internal/transaction/domain"
	"github.com/smallbiznis/followup/internal/transaction/masking"
	"github.com/smallbiznis/followup/pkg/db"
	"github.com/smallbiznis/followup/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const systemInitiator = "system"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("transaction.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Record appends one exchange. Any failure is a *db.PersistenceError.
func (s *Service) Record(ctx context.Context, entry domain.Entry) (snowflake.ID, error) {
	if strings.TrimSpace(entry.Request.Method) == "" || strings.TrimSpace(entry.Request.URL) == "" {
		return 0, db.Wrap("transaction.record", domain.ErrInvalidRecord)
	}

	request := entry.Request
	request.Headers = masking.MaskHeaders(request.Headers)
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return 0, db.Wrap("transaction.encode_request", err)
	}

	var responseJSON *datatypes.JSON
	if entry.Response != nil {
		response := *entry.Response
		response.Headers = masking.MaskHeaders(response.Headers)
		encoded, err := json.Marshal(response)
		if err != nil {
			return 0, db.Wrap("transaction.encode_response", err)
		}
		raw := datatypes.JSON(encoded)
		responseJSON = &raw
	}

	tx := domain.FacilityTransaction{
		ID:                s.genID.Generate(),
		CreatedAt:         s.now(),
		Request:           datatypes.JSON(requestJSON),
		Response:          responseJSON,
		FollowupRequestID: entry.FollowupRequestID,
		RecurringCallID:   entry.RecurringCallID,
		InitiatorID:       s.resolveInitiator(ctx, entry.InitiatorID),
	}
	if entry.Err != nil {
		msg := entry.Err.Error()
		tx.Error = &msg
	}

	if err := s.repo.Insert(ctx, s.db, &tx); err != nil {
		s.log.Error("failed to record facility transaction",
			zap.String("method", request.Method),
			zap.String("url", request.URL),
			zap.Error(err),
		)
		return 0, db.Wrap("transaction.insert", err)
	}
	return tx.ID, nil
}

func (s *Service) ListByRequest(ctx context.Context, requestID snowflake.ID) ([]domain.FacilityTransaction, error) {
	if requestID == 0 {
		return nil, domain.ErrInvalidRequestID
	}
	items, err := s.repo.ListByRequest(ctx, s.db, requestID)
	if err != nil {
		return nil, db.Wrap("transaction.list_by_request", err)
	}
	return flatten(items), nil
}

func (s *Service) ListByRecurringCall(ctx context.Context, callID snowflake.ID) ([]domain.FacilityTransaction, error) {
	if callID == 0 {
		return nil, domain.ErrInvalidRequestID
	}
	items, err := s.repo.ListByRecurringCall(ctx, s.db, callID)
	if err != nil {
		return nil, db.Wrap("transaction.list_by_recurring_call", err)
	}
	return flatten(items), nil
}

func (s *Service) resolveInitiator(ctx context.Context, initiator string) string {
	if trimmed := strings.TrimSpace(initiator); trimmed != "" {
		return trimmed
	}
	if actor := correlation.ActorFromContext(ctx); actor != "" {
		return actor
	}
	return systemInitiator
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func flatten(items []*domain.FacilityTransaction) []domain.FacilityTransaction {
	out := make([]domain.FacilityTransaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}
