package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	facilitydomain "github.com/smallbiznis/followup/internal/facility/domain"
	"github.com/smallbiznis/followup/internal/observability/metrics"
	"github.com/smallbiznis/followup/internal/observability/tracing"
	transactiondomain "github.com/smallbiznis/followup/internal/transaction/domain"
	"github.com/smallbiznis/followup/internal/transaction/masking"
	"github.com/smallbiznis/followup/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 30 * time.Second
	recordTimeout    = 5 * time.Second
	maxResponseBytes = 1 << 20
)

var (
	ErrInvalidRequest = errors.New("invalid_outbound_request")
)

// Recorder persists one exchange. The transaction service satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry transactiondomain.Entry) (snowflake.ID, error)
}

// Request is one outbound call. Body is sent as JSON when non-empty and not null.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    json.RawMessage
	Timeout time.Duration

	FollowupRequestID *snowflake.ID
	RecurringCallID   *snowflake.ID
	InitiatorID       string
}

type Response struct {
	StatusCode    int
	Header        http.Header
	Body          []byte
	TransactionID snowflake.ID
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return io.EOF
	}
	return json.Unmarshal(r.Body, v)
}

// Client issues outbound HTTP calls and records every exchange before returning.
type Client struct {
	http     *http.Client
	recorder Recorder
	log      *zap.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Params struct {
	fx.In

	HTTPClient *http.Client `optional:"true"`
	Recorder   transactiondomain.Service
	Log        *zap.Logger
	Metrics    *metrics.Metrics `optional:"true"`
}

func Provide(p Params) *Client {
	return NewClient(p.HTTPClient, p.Recorder, p.Log, p.Metrics)
}

func NewClient(httpClient *http.Client, recorder Recorder, log *zap.Logger, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:     httpClient,
		recorder: recorder,
		log:      log.Named("outbound"),
		metrics:  m,
		tracer:   otel.Tracer("followup/outbound"),
	}
}

// Do performs req once. A transport failure or a non-2xx status yields a
// *FacilityCallError; a failure to record the exchange yields a
// *db.PersistenceError, even when the call itself succeeded. The returned
// Response is non-nil whenever the facility answered.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}
	if c.recorder == nil {
		return nil, fmt.Errorf("%w: no recorder configured", ErrInvalidRequest)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	callCtx, cid := correlation.EnsureCorrelationID(callCtx)
	callCtx, span := c.tracer.Start(callCtx, "outbound "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body := requestBody(req.Body)
	httpReq, err := http.NewRequestWithContext(callCtx, method, req.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for name, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}
	if len(body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set(correlation.HeaderCorrelationID, cid)
	tracing.InjectContext(callCtx, propagation.HeaderCarrier(httpReq.Header))

	entry := transactiondomain.Entry{
		FollowupRequestID: req.FollowupRequestID,
		RecurringCallID:   req.RecurringCallID,
		InitiatorID:       req.InitiatorID,
		Request: transactiondomain.RequestRecord{
			Method:  method,
			URL:     req.URL,
			Headers: masking.FlattenHeaders(httpReq.Header),
			Body:    string(body),
		},
	}

	start := time.Now()
	httpResp, callErr := c.http.Do(httpReq)
	var resp *Response
	if callErr == nil {
		resp, callErr = readResponse(httpResp)
	}
	elapsed := time.Since(start)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
		entry.Response = &transactiondomain.ResponseRecord{
			StatusCode: resp.StatusCode,
			Headers:    masking.FlattenHeaders(resp.Header),
			Body:       string(resp.Body),
		}
	}
	if callErr != nil {
		entry.Err = callErr
	}

	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("http.method", method),
		attribute.Int("http.status_code", statusCode),
		attribute.String("correlation_id", cid),
	)...)
	c.metrics.RecordOutbound(ctx, method, statusCode, elapsed)

	// The exchange is recorded even when ctx is already done.
	recordCtx, cancelRecord := context.WithTimeout(context.WithoutCancel(callCtx), recordTimeout)
	defer cancelRecord()
	txID, recordErr := c.recorder.Record(recordCtx, entry)
	if resp != nil {
		resp.TransactionID = txID
	}

	log := c.log.With(
		zap.String("method", method),
		zap.String("url", req.URL),
		zap.Int("status", statusCode),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.String("correlation_id", cid),
	)

	if recordErr != nil {
		span.RecordError(tracing.SafeError(recordErr))
		span.SetStatus(codes.Error, "record failed")
		log.Error("outbound.record.failed", zap.Error(recordErr))
		return resp, recordErr
	}

	if callErr != nil {
		span.RecordError(tracing.SafeError(callErr))
		span.SetStatus(codes.Error, "transport error")
		log.Warn("outbound.call.failed", zap.Error(callErr))
		return nil, &facilitydomain.FacilityCallError{Method: method, URL: req.URL, Err: callErr}
	}

	if statusCode < 200 || statusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
		log.Warn("outbound.call.rejected")
		return resp, &facilitydomain.FacilityCallError{Method: method, URL: req.URL, StatusCode: statusCode}
	}

	log.Debug("outbound.call.ok")
	return resp, nil
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRequest, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidRequest)
	}
	return nil
}

func requestBody(raw json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}

func readResponse(httpResp *http.Response) (*Response, error) {
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       body,
	}
	if err != nil {
		return resp, fmt.Errorf("read response body: %w", err)
	}
	return resp, nil
}
