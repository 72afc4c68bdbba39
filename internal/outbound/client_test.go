package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	facilitydomain "github.com/smallbiznis/followup/internal/facility/domain"
	"github.com/smallbiznis/followup/internal/observability/tracing"
	transactiondomain "github.com/smallbiznis/followup/internal/transaction/domain"
	"github.com/smallbiznis/followup/pkg/db"
	"github.com/smallbiznis/followup/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	if _, err := tracing.NewProvider(nil, tracing.Config{}, nil); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []transactiondomain.Entry
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, entry transactiondomain.Entry) (snowflake.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.entries = append(f.entries, entry)
	return snowflake.ID(len(f.entries)), nil
}

func TestDoRecordsSuccessfulExchange(t *testing.T) {
	var gotBody map[string]any
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"remote-1"}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := NewClient(srv.Client(), rec, zaptest.NewLogger(t), nil)

	requestID := snowflake.ID(11)
	ctx := correlation.ContextWithCorrelationID(context.Background(), "01HCORRELATION")
	resp, err := client.Do(ctx, Request{
		Method:            "post",
		URL:               srv.URL + "/requests",
		Headers:           http.Header{"Authorization": []string{"Token 0123456789abcdef"}},
		Body:              json.RawMessage(`{"target":"SN2025abc"}`),
		FollowupRequestID: &requestID,
		InitiatorID:       "observer-1",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, snowflake.ID(1), resp.TransactionID)

	var decoded map[string]string
	require.NoError(t, resp.Decode(&decoded))
	assert.Equal(t, "remote-1", decoded["id"])

	assert.Equal(t, "SN2025abc", gotBody["target"])
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "01HCORRELATION", gotHeaders.Get(correlation.HeaderCorrelationID))
	assert.NotEmpty(t, gotHeaders.Get("traceparent"))

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, "POST", entry.Request.Method)
	assert.Equal(t, &requestID, entry.FollowupRequestID)
	assert.Equal(t, "observer-1", entry.InitiatorID)
	assert.Equal(t, "Token ****cdef", entry.Request.Headers["Authorization"])
	require.NotNil(t, entry.Response)
	assert.Equal(t, http.StatusCreated, entry.Response.StatusCode)
	assert.Nil(t, entry.Err)
}

func TestDoNon2xxIsFacilityCallError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := NewClient(srv.Client(), rec, zaptest.NewLogger(t), nil)

	resp, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)

	var callErr *facilitydomain.FacilityCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusServiceUnavailable, callErr.StatusCode)
	assert.True(t, callErr.Retryable())
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Len(t, rec.entries, 1)
}

func TestDoTransportFailureIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	client := NewClient(srv.Client(), rec, zaptest.NewLogger(t), nil)

	resp, err := client.Do(context.Background(), Request{URL: srv.URL, Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, facilitydomain.ErrFacilityCall)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.Len(t, rec.entries, 1)
	assert.Nil(t, rec.entries[0].Response)
	assert.Error(t, rec.entries[0].Err)
}

func TestDoRecordFailureWinsOverSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &fakeRecorder{err: db.Wrap("transaction.insert", errors.New("disk full"))}
	client := NewClient(srv.Client(), rec, zaptest.NewLogger(t), nil)

	_, err := client.Do(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.True(t, db.IsPersistenceErr(err))
}

func TestDoRejectsInvalidURLWithoutCalling(t *testing.T) {
	rec := &fakeRecorder{}
	client := NewClient(nil, rec, zaptest.NewLogger(t), nil)

	for _, raw := range []string{"", "ftp://facility", "/relative/path", "http://"} {
		_, err := client.Do(context.Background(), Request{URL: raw})
		assert.ErrorIs(t, err, ErrInvalidRequest, raw)
	}
	assert.Empty(t, rec.entries)
}

func TestNullBodyIsNotSent(t *testing.T) {
	var contentLength int64 = -2
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentLength = r.ContentLength
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), &fakeRecorder{}, zaptest.NewLogger(t), nil)
	_, err := client.Do(context.Background(), Request{URL: srv.URL, Body: json.RawMessage("null")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), contentLength)
}
