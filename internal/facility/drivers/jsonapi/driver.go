package jsonapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/smallbiznis/followup/internal/facility/domain"
	followupdomain "github.com/smallbiznis/followup/internal/followup/domain"
	"github.com/smallbiznis/followup/internal/outbound"
)

var (
	ErrMissingExternalID = errors.New("missing_external_id")
)

// Doer is the outbound client surface the driver needs.
type Doer interface {
	Do(ctx context.Context, req outbound.Request) (*outbound.Response, error)
}

type Driver struct {
	cfg    Config
	client Doer
}

var _ domain.Driver = (*Driver)(nil)

func New(cfg Config, client Doer) (*Driver, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("jsonapi: outbound client is required")
	}
	return &Driver{cfg: cfg, client: client}, nil
}

func (d *Driver) Facility() string { return d.cfg.Name }

func (d *Driver) RequestsEditable() bool { return d.cfg.Editable }

func (d *Driver) Submit(ctx context.Context, req *followupdomain.FollowupRequest) error {
	resp, err := d.client.Do(ctx, d.request(req, http.MethodPost, d.cfg.BaseURL+d.cfg.SubmitPath, json.RawMessage(req.Payload)))
	if err != nil {
		return err
	}

	if externalID := d.externalID(resp); externalID != "" {
		req.ExternalID = &externalID
	}
	req.Status = followupdomain.StatusSubmitted
	return nil
}

func (d *Driver) Update(ctx context.Context, req *followupdomain.FollowupRequest, params domain.Parameters) error {
	target, err := d.itemURL(req)
	if err != nil {
		return err
	}
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	_, err = d.client.Do(ctx, d.request(req, http.MethodPatch, target, body))
	return err
}

func (d *Driver) Delete(ctx context.Context, req *followupdomain.FollowupRequest) error {
	target, err := d.itemURL(req)
	if err != nil {
		return err
	}
	_, err = d.client.Do(ctx, d.request(req, http.MethodDelete, target, nil))
	return err
}

func (d *Driver) request(req *followupdomain.FollowupRequest, method, target string, body json.RawMessage) outbound.Request {
	headers := http.Header{}
	for name, value := range d.cfg.Headers {
		headers.Set(name, value)
	}
	id := req.ID
	return outbound.Request{
		Method:            method,
		URL:               target,
		Headers:           headers,
		Body:              body,
		Timeout:           d.cfg.Timeout,
		FollowupRequestID: &id,
		InitiatorID:       req.RequesterID,
	}
}

func (d *Driver) itemURL(req *followupdomain.FollowupRequest) (string, error) {
	if req.ExternalID == nil || strings.TrimSpace(*req.ExternalID) == "" {
		return "", fmt.Errorf("%w: request %s", ErrMissingExternalID, req.ID)
	}
	return d.cfg.BaseURL + strings.ReplaceAll(d.cfg.ItemPath, "{id}", *req.ExternalID), nil
}

func (d *Driver) externalID(resp *outbound.Response) string {
	var body map[string]any
	if err := resp.Decode(&body); err != nil {
		return ""
	}
	switch value := body[d.cfg.ExternalIDField].(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return fmt.Sprintf("%.0f", value)
	default:
		return ""
	}
}
