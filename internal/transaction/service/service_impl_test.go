package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/clock"
	"github.com/smallbiznis/followup/internal/testutil"
	"github.com/smallbiznis/followup/internal/transaction/domain"
	"github.com/smallbiznis/followup/internal/transaction/repository"
	"github.com/smallbiznis/followup/internal/transaction/service"
	"github.com/smallbiznis/followup/pkg/db"
	"github.com/smallbiznis/followup/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newService(t *testing.T, conn *gorm.DB, clk clock.Clock) domain.Service {
	t.Helper()
	return service.NewService(service.Params{
		DB:    conn,
		Log:   zaptest.NewLogger(t),
		GenID: testutil.NewNode(t),
		Repo:  repository.Provide(),
		Clock: clk,
	})
}

func seedRequest(t *testing.T, conn *gorm.DB, id snowflake.ID) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, conn.Exec(
		`INSERT INTO followup_requests (id, facility, status, requester_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, "las-cumbres", "pending", "observer-1", now, now,
	).Error)
}

func TestRecordMasksHeadersAndLinksRequest(t *testing.T) {
	conn := testutil.NewSQLiteDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC))
	svc := newService(t, conn, clk)

	requestID := snowflake.ID(42)
	seedRequest(t, conn, requestID)

	id, err := svc.Record(context.Background(), domain.Entry{
		FollowupRequestID: &requestID,
		InitiatorID:       "observer-1",
		Request: domain.RequestRecord{
			Method:  "POST",
			URL:     "https://facility.example/api/requests",
			Headers: map[string]string{"Authorization": "Token abcdefghijklmnop", "Content-Type": "application/json"},
			Body:    `{"target":"ZTF21aaaaaaa"}`,
		},
		Response: &domain.ResponseRecord{StatusCode: 201, Body: `{"id":"remote-7"}`},
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	items, err := svc.ListByRequest(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	tx := items[0]
	assert.Equal(t, id, tx.ID)
	assert.Equal(t, "observer-1", tx.InitiatorID)
	assert.True(t, tx.CreatedAt.Equal(clk.Now()))
	assert.Nil(t, tx.Error)

	var req domain.RequestRecord
	require.NoError(t, json.Unmarshal(tx.Request, &req))
	assert.Equal(t, "Token ****mnop", req.Headers["Authorization"])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])

	var resp domain.ResponseRecord
	require.NotNil(t, tx.Response)
	require.NoError(t, json.Unmarshal(*tx.Response, &resp))
	assert.Equal(t, 201, resp.StatusCode)
}

func TestRecordTransportFailureHasNoResponse(t *testing.T) {
	conn := testutil.NewSQLiteDB(t)
	svc := newService(t, conn, clock.SystemClock{})

	callID := snowflake.ID(9)
	now := time.Now().UTC()
	require.NoError(t, conn.Exec(
		`INSERT INTO recurring_calls (id, owner_id, endpoint, method, next_call, call_delay, retries_remaining, active, one_shot, version, created_at, updated_at)
		 VALUES (?, 'owner', 'http://x', 'GET', ?, 1, 3, 1, 0, 0, ?, ?)`,
		callID, now, now, now,
	).Error)

	ctx := correlation.ContextWithActor(context.Background(), "scheduler-test")
	_, err := svc.Record(ctx, domain.Entry{
		RecurringCallID: &callID,
		Request:         domain.RequestRecord{Method: "GET", URL: "http://x"},
		Err:             errors.New("dial tcp: connection refused"),
	})
	require.NoError(t, err)

	items, err := svc.ListByRecurringCall(context.Background(), callID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Response)
	require.NotNil(t, items[0].Error)
	assert.Contains(t, *items[0].Error, "connection refused")
	assert.Equal(t, "scheduler-test", items[0].InitiatorID)
}

func TestRecordPersistenceFailureIsTyped(t *testing.T) {
	conn := testutil.NewSQLiteDB(t)
	svc := newService(t, conn, clock.SystemClock{})
	require.NoError(t, conn.Exec(`DROP TABLE facility_transactions`).Error)

	_, err := svc.Record(context.Background(), domain.Entry{
		Request: domain.RequestRecord{Method: "GET", URL: "http://x"},
	})
	require.Error(t, err)
	assert.True(t, db.IsPersistenceErr(err))
}

func TestRecordRejectsEmptyRequest(t *testing.T) {
	svc := newService(t, testutil.NewSQLiteDB(t), clock.SystemClock{})

	_, err := svc.Record(context.Background(), domain.Entry{})
	require.ErrorIs(t, err, domain.ErrInvalidRecord)
	assert.True(t, db.IsPersistenceErr(err))
}

func TestListByRequestOrdersByCreation(t *testing.T) {
	conn := testutil.NewSQLiteDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC))
	svc := newService(t, conn, clk)

	requestID := snowflake.ID(77)
	seedRequest(t, conn, requestID)

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		id, err := svc.Record(context.Background(), domain.Entry{
			FollowupRequestID: &requestID,
			Request:           domain.RequestRecord{Method: "GET", URL: "http://facility/status"},
		})
		require.NoError(t, err)
		ids = append(ids, id)
		clk.Advance(time.Minute)
	}

	items, err := svc.ListByRequest(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, ids[i], item.ID)
	}

	_, err = svc.ListByRequest(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrInvalidRequestID)
}
