package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("facility", "las-cumbres"),
		attribute.String("request_id", "12345"),
		attribute.String("outcome", "success"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("facility"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestRecordDispatchCountsByOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "followup-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordDispatch(ctx, "submit", "las-cumbres", "success")
	m.RecordDispatch(ctx, "submit", "las-cumbres", "success")
	m.RecordDispatch(ctx, "update", "las-cumbres", "not_editable")
	m.RecordOutbound(ctx, "post", 503, 20*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name != "followup.dispatch.operations" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, point := range sum.DataPoints {
				total += point.Value
			}
		}
	}
	assert.Equal(t, int64(3), total)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordDispatch(context.Background(), "submit", "x", "success")
	m.RecordOutbound(context.Background(), "GET", 200, time.Second)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "none", statusClass(0))
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "5xx", statusClass(500))
}
