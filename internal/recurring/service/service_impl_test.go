package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/smallbiznis/followup/internal/clock"
	"github.com/smallbiznis/followup/internal/recurring/domain"
	"github.com/smallbiznis/followup/internal/recurring/repository"
	"github.com/smallbiznis/followup/internal/recurring/service"
	"github.com/smallbiznis/followup/internal/testutil"
	"github.com/smallbiznis/followup/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var start = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(start)
	svc := service.NewService(service.Params{
		DB:    testutil.NewSQLiteDB(t),
		Log:   zaptest.NewLogger(t),
		GenID: testutil.NewNode(t),
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, clk
}

func ptr[T any](v T) *T { return &v }

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newService(t)

	call, err := svc.Create(context.Background(), domain.CreateRequest{
		OwnerID:  "owner-1",
		Endpoint: "https://example.org/hook",
		Method:   "post",
		Payload:  json.RawMessage(`{"ping":true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", call.Method)
	assert.Equal(t, domain.DefaultRetries, call.RetriesRemaining)
	assert.Equal(t, domain.DefaultDelay, call.CallDelay)
	assert.True(t, call.Active)
	assert.False(t, call.OneShot)
	assert.True(t, call.NextCall.Equal(start))

	stored, err := svc.Get(context.Background(), call.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ping":true}`, string(stored.Payload))
	assert.Equal(t, int64(0), stored.Version)
}

func TestCreateZeroDelayIsOneShot(t *testing.T) {
	svc, _ := newService(t)
	call, err := svc.Create(context.Background(), domain.CreateRequest{
		OwnerID:   "owner-1",
		Endpoint:  "https://example.org/hook",
		CallDelay: ptr(0.0),
	})
	require.NoError(t, err)
	assert.True(t, call.OneShot)
	assert.False(t, call.HasBody())
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newService(t)
	valid := func() domain.CreateRequest {
		return domain.CreateRequest{OwnerID: "o", Endpoint: "https://example.org", Method: "GET"}
	}

	cases := []struct {
		name   string
		mutate func(*domain.CreateRequest)
		want   error
	}{
		{"owner", func(r *domain.CreateRequest) { r.OwnerID = "" }, domain.ErrInvalidOwner},
		{"relative endpoint", func(r *domain.CreateRequest) { r.Endpoint = "/hook" }, domain.ErrInvalidEndpoint},
		{"ftp endpoint", func(r *domain.CreateRequest) { r.Endpoint = "ftp://example.org" }, domain.ErrInvalidEndpoint},
		{"method", func(r *domain.CreateRequest) { r.Method = "TRACE" }, domain.ErrInvalidMethod},
		{"payload", func(r *domain.CreateRequest) { r.Payload = json.RawMessage(`{`) }, domain.ErrInvalidPayload},
		{"negative delay", func(r *domain.CreateRequest) { r.CallDelay = ptr(-0.5) }, domain.ErrNegativeDelay},
		{"sub-second delay", func(r *domain.CreateRequest) { r.CallDelay = ptr(0.000001) }, domain.ErrInvalidDelay},
		{"delay past cap", func(r *domain.CreateRequest) { r.CallDelay = ptr(200000.0) }, domain.ErrInvalidDelay},
		{"zero retries", func(r *domain.CreateRequest) { r.Retries = ptr(0) }, domain.ErrInvalidRetries},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCancelRequiresOwner(t *testing.T) {
	svc, _ := newService(t)
	call, err := svc.Create(context.Background(), domain.CreateRequest{OwnerID: "alice", Endpoint: "https://example.org"})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), call.ID, "bob")
	require.ErrorIs(t, err, domain.ErrNotOwner)

	cancelled, err := svc.Cancel(context.Background(), call.ID, "alice")
	require.NoError(t, err)
	assert.False(t, cancelled.Active)
	assert.Equal(t, int64(1), cancelled.Version)

	again, err := svc.Cancel(context.Background(), call.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Version)
}

func TestReactivateRearmsInactiveCall(t *testing.T) {
	svc, clk := newService(t)
	call, err := svc.Create(context.Background(), domain.CreateRequest{OwnerID: "alice", Endpoint: "https://example.org"})
	require.NoError(t, err)

	_, err = svc.Reactivate(context.Background(), domain.ReactivateRequest{ID: call.ID, Retries: 3})
	require.ErrorIs(t, err, domain.ErrAlreadyActive)

	_, err = svc.Cancel(context.Background(), call.ID, "alice")
	require.NoError(t, err)

	clk.Advance(time.Hour)
	revived, err := svc.Reactivate(context.Background(), domain.ReactivateRequest{ID: call.ID, Retries: 3})
	require.NoError(t, err)
	assert.True(t, revived.Active)
	assert.Equal(t, 3, revived.RetriesRemaining)
	assert.True(t, revived.NextCall.Equal(start.Add(time.Hour)))

	_, err = svc.Reactivate(context.Background(), domain.ReactivateRequest{ID: 12345, Retries: 3})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Reactivate(context.Background(), domain.ReactivateRequest{ID: call.ID, Retries: 0})
	require.ErrorIs(t, err, domain.ErrInvalidRetries)
}

func TestListByOwnerPaginates(t *testing.T) {
	svc, _ := newService(t)
	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), domain.CreateRequest{OwnerID: "alice", Endpoint: "https://example.org"})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), domain.CreateRequest{OwnerID: "bob", Endpoint: "https://example.org"})
	require.NoError(t, err)

	first, err := svc.ListByOwner(context.Background(), domain.ListRequest{
		OwnerID:    "alice",
		Pagination: pagination.Pagination{PageSize: 3},
	})
	require.NoError(t, err)
	require.Len(t, first.Calls, 3)
	require.True(t, first.PageInfo.HasMore)

	second, err := svc.ListByOwner(context.Background(), domain.ListRequest{
		OwnerID:    "alice",
		Pagination: pagination.Pagination{PageSize: 3, PageToken: first.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Calls, 2)
	assert.False(t, second.PageInfo.HasMore)
	assert.Greater(t, int64(second.Calls[0].ID), int64(first.Calls[2].ID))

	_, err = svc.ListByOwner(context.Background(), domain.ListRequest{
		OwnerID:    "alice",
		Pagination: pagination.Pagination{PageToken: "%%%"},
	})
	require.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}
