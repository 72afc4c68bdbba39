package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/clock"
	"github.com/smallbiznis/followup/internal/observability/logger"
	"github.com/smallbiznis/followup/internal/outbound"
	"github.com/smallbiznis/followup/internal/recurring/domain"
	"github.com/smallbiznis/followup/pkg/db"
	"github.com/smallbiznis/followup/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

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
		log:   p.Log.Named("recurring.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.RecurringCall, error) {
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return nil, domain.ErrInvalidOwner
	}
	endpoint := strings.TrimSpace(req.Endpoint)
	if err := outbound.ValidateURL(endpoint); err != nil {
		return nil, domain.ErrInvalidEndpoint
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	if _, ok := allowedMethods[method]; !ok {
		return nil, domain.ErrInvalidMethod
	}
	payload, err := normalizePayload(req.Payload)
	if err != nil {
		return nil, err
	}

	delay := domain.DefaultDelay
	if req.CallDelay != nil {
		delay = *req.CallDelay
	}
	if err := domain.ValidateDelay(delay); err != nil {
		return nil, err
	}
	retries := domain.DefaultRetries
	if req.Retries != nil {
		retries = *req.Retries
	}
	if retries < 1 {
		return nil, domain.ErrInvalidRetries
	}

	now := s.clock.Now()
	nextCall := now
	if req.NextCall != nil && !req.NextCall.IsZero() {
		nextCall = req.NextCall.UTC()
	}

	call := &domain.RecurringCall{
		ID:               s.genID.Generate(),
		OwnerID:          owner,
		Endpoint:         endpoint,
		Method:           method,
		Payload:          payload,
		NextCall:         nextCall,
		CallDelay:        delay,
		RetriesRemaining: retries,
		Active:           true,
		OneShot:          req.OneShot || delay == 0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, s.db, call); err != nil {
		return nil, db.Wrap("recurring.insert", err)
	}

	logger.WithContext(ctx, s.log).Info("recurring.created",
		zap.String("call_id", call.ID.String()),
		zap.String("owner_id", owner),
		zap.String("method", method),
		zap.Time("next_call", nextCall),
		zap.Float64("call_delay", delay),
		zap.Int("retries", retries),
		zap.Bool("one_shot", call.OneShot),
	)
	return call, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.RecurringCall, error) {
	call, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, db.Wrap("recurring.find", err)
	}
	return call, nil
}

func (s *Service) ListByOwner(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return domain.ListResponse{}, domain.ErrInvalidOwner
	}

	var afterID snowflake.ID
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, err
		}
		parsed, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return domain.ListResponse{}, pagination.ErrInvalidPageToken
		}
		afterID = snowflake.ID(parsed)
	}

	limit := req.Limit()
	calls, err := s.repo.ListByOwner(ctx, s.db, owner, afterID, limit+1)
	if err != nil {
		return domain.ListResponse{}, db.Wrap("recurring.list", err)
	}

	page, info, err := pagination.BuildCursorPageInfo(calls, limit, func(c domain.RecurringCall) string {
		return c.ID.String()
	})
	if err != nil {
		return domain.ListResponse{}, err
	}
	if page == nil {
		page = []domain.RecurringCall{}
	}
	return domain.ListResponse{Calls: page, PageInfo: info}, nil
}

// Cancel deactivates a call on behalf of its owner. Cancelling an inactive
// call is a no-op.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID, ownerID string) (*domain.RecurringCall, error) {
	call, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if call.OwnerID != strings.TrimSpace(ownerID) {
		return nil, domain.ErrNotOwner
	}
	if !call.Active {
		return call, nil
	}

	now := s.clock.Now()
	if _, err := s.repo.Deactivate(ctx, s.db, id, now); err != nil {
		return nil, db.Wrap("recurring.deactivate", err)
	}

	logger.WithContext(ctx, s.log).Info("recurring.cancelled",
		zap.String("call_id", id.String()),
		zap.String("owner_id", call.OwnerID),
	)
	return s.Get(ctx, id)
}

// Reactivate re-arms an inactive call. It is an operator action and skips the
// owner check.
func (s *Service) Reactivate(ctx context.Context, req domain.ReactivateRequest) (*domain.RecurringCall, error) {
	if req.Retries < 1 {
		return nil, domain.ErrInvalidRetries
	}
	now := s.clock.Now()
	nextCall := now
	if req.NextCall != nil && !req.NextCall.IsZero() {
		nextCall = req.NextCall.UTC()
	}

	ok, err := s.repo.Reactivate(ctx, s.db, req.ID, req.Retries, nextCall, now)
	if err != nil {
		return nil, db.Wrap("recurring.reactivate", err)
	}
	if !ok {
		if _, err := s.Get(ctx, req.ID); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyActive
	}

	logger.WithContext(ctx, s.log).Info("recurring.reactivated",
		zap.String("call_id", req.ID.String()),
		zap.Int("retries", req.Retries),
		zap.Time("next_call", nextCall),
	)
	return s.Get(ctx, req.ID)
}

func normalizePayload(raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return datatypes.JSON("null"), nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, domain.ErrInvalidPayload
	}
	return datatypes.JSON(trimmed), nil
}
