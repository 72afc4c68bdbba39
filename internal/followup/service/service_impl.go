package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/clock"
	facilitydomain "github.com/smallbiznis/followup/internal/facility/domain"
	"github.com/smallbiznis/followup/internal/facility/registry"
	"github.com/smallbiznis/followup/internal/followup/domain"
	"github.com/smallbiznis/followup/internal/observability/logger"
	"github.com/smallbiznis/followup/internal/observability/metrics"
	"github.com/smallbiznis/followup/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	opSubmit = "submit"
	opUpdate = "update"
	opDelete = "delete"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Registry *registry.Registry
	Clock    clock.Clock
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service routes follow-up requests to facility drivers and owns the request
// status. It never retries; callers that want retries use recurring calls.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	registry *registry.Registry
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("followup.dispatcher"),
		genID:    p.GenID,
		repo:     p.Repo,
		registry: p.Registry,
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.FollowupRequest, error) {
	driver, err := s.registry.Resolve(req.Facility)
	if err != nil {
		return nil, err
	}
	requester := strings.TrimSpace(req.RequesterID)
	if requester == "" {
		return nil, domain.ErrInvalidRequester
	}
	payload, err := normalizePayload(req.Payload)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entity := &domain.FollowupRequest{
		ID:          s.genID.Generate(),
		Facility:    registry.Normalize(driver.Facility()),
		Status:      domain.StatusPending,
		Payload:     payload,
		RequesterID: requester,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, db.Wrap("followup.insert", err)
	}
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.FollowupRequest, error) {
	req, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, db.Wrap("followup.find", err)
	}
	return req, nil
}

// Submit hands req to its facility driver. On failure req.Status is restored
// and nothing is persisted.
func (s *Service) Submit(ctx context.Context, req *domain.FollowupRequest) error {
	log := logger.WithContext(ctx, s.log).With(zap.String("request_id", req.ID.String()), zap.String("facility", req.Facility))

	driver, err := s.registry.Resolve(req.Facility)
	if err != nil {
		s.finish(ctx, log, opSubmit, req.Facility, err)
		return err
	}
	if req.Status == domain.StatusDeleted {
		s.finish(ctx, log, opSubmit, req.Facility, domain.ErrStatusConflict)
		return domain.ErrStatusConflict
	}

	prior := req.Status
	if err := driver.Submit(ctx, req); err != nil {
		req.Status = prior
		s.finish(ctx, log, opSubmit, req.Facility, err)
		return err
	}

	if err := s.persistStatus(ctx, req, prior); err != nil {
		s.finish(ctx, log, opSubmit, req.Facility, err)
		return err
	}
	s.finish(ctx, log, opSubmit, req.Facility, nil)
	return nil
}

// Update changes a submitted request at the facility and replaces the stored
// payload with params. Status does not change.
func (s *Service) Update(ctx context.Context, req *domain.FollowupRequest, params map[string]any) error {
	log := logger.WithContext(ctx, s.log).With(zap.String("request_id", req.ID.String()), zap.String("facility", req.Facility))

	driver, err := s.editableDriver(req, opUpdate)
	if err != nil {
		s.finish(ctx, log, opUpdate, req.Facility, err)
		return err
	}

	payload, err := json.Marshal(params)
	if err != nil {
		err = errors.Join(domain.ErrInvalidPayload, err)
		s.finish(ctx, log, opUpdate, req.Facility, err)
		return err
	}

	prior := req.Status
	if err := driver.Update(ctx, req, params); err != nil {
		req.Status = prior
		s.finish(ctx, log, opUpdate, req.Facility, err)
		return err
	}
	req.Status = prior

	now := s.clock.Now()
	if err := s.repo.UpdatePayload(ctx, s.db, req.ID, datatypes.JSON(payload), now); err != nil {
		err = db.Wrap("followup.update_payload", err)
		s.finish(ctx, log, opUpdate, req.Facility, err)
		return err
	}
	req.Payload = datatypes.JSON(payload)
	req.UpdatedAt = now
	s.finish(ctx, log, opUpdate, req.Facility, nil)
	return nil
}

// Delete cancels req at the facility and marks it deleted.
func (s *Service) Delete(ctx context.Context, req *domain.FollowupRequest) error {
	log := logger.WithContext(ctx, s.log).With(zap.String("request_id", req.ID.String()), zap.String("facility", req.Facility))

	driver, err := s.editableDriver(req, opDelete)
	if err != nil {
		s.finish(ctx, log, opDelete, req.Facility, err)
		return err
	}

	prior := req.Status
	if err := driver.Delete(ctx, req); err != nil {
		req.Status = prior
		s.finish(ctx, log, opDelete, req.Facility, err)
		return err
	}

	req.Status = domain.StatusDeleted
	if err := s.persistStatus(ctx, req, prior); err != nil {
		s.finish(ctx, log, opDelete, req.Facility, err)
		return err
	}
	s.finish(ctx, log, opDelete, req.Facility, nil)
	return nil
}

func (s *Service) SubmitByID(ctx context.Context, id snowflake.ID) (*domain.FollowupRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, s.Submit(ctx, req)
}

func (s *Service) UpdateByID(ctx context.Context, id snowflake.ID, params map[string]any) (*domain.FollowupRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, s.Update(ctx, req, params)
}

func (s *Service) DeleteByID(ctx context.Context, id snowflake.ID) (*domain.FollowupRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, s.Delete(ctx, req)
}

// editableDriver applies the guards that must pass before any network action.
func (s *Service) editableDriver(req *domain.FollowupRequest, op string) (facilitydomain.Driver, error) {
	driver, err := s.registry.Resolve(req.Facility)
	if err != nil {
		return nil, err
	}
	if !driver.RequestsEditable() {
		return nil, &facilitydomain.NotEditableError{Facility: req.Facility, Operation: op}
	}
	// Only submitted requests exist at the facility.
	if req.Status != domain.StatusSubmitted {
		return nil, domain.ErrStatusConflict
	}
	return driver, nil
}

// persistStatus writes req.Status if the driver changed it, guarded by the
// status the row had before the operation.
func (s *Service) persistStatus(ctx context.Context, req *domain.FollowupRequest, prior domain.Status) error {
	if req.Status == prior {
		return nil
	}
	now := s.clock.Now()
	ok, err := s.repo.CompareAndSetStatus(ctx, s.db, req.ID, prior, req.Status, req.ExternalID, now)
	if err != nil {
		return db.Wrap("followup.set_status", err)
	}
	if !ok {
		return domain.ErrStatusConflict
	}
	req.UpdatedAt = now
	return nil
}

func (s *Service) finish(ctx context.Context, log *zap.Logger, op, facility string, err error) {
	outcome := outcomeOf(err)
	s.metrics.RecordDispatch(ctx, op, registry.Normalize(facility), outcome)
	if err == nil {
		log.Info("dispatch."+op, zap.String("outcome", outcome))
		return
	}
	if outcome == "persistence" {
		log.Error("dispatch."+op, zap.String("outcome", outcome), zap.Error(err))
		return
	}
	log.Warn("dispatch."+op, zap.String("outcome", outcome), zap.Error(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, facilitydomain.ErrUnknownFacility):
		return "unknown_facility"
	case errors.Is(err, facilitydomain.ErrNotEditable):
		return "not_editable"
	case db.IsPersistenceErr(err):
		return "persistence"
	case errors.Is(err, facilitydomain.ErrFacilityCall):
		return "facility_error"
	case errors.Is(err, domain.ErrStatusConflict):
		return "conflict"
	default:
		return "error"
	}
}

func normalizePayload(raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return datatypes.JSON("{}"), nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, domain.ErrInvalidPayload
	}
	return datatypes.JSON(trimmed), nil
}

