package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	dispatchOperations metric.Int64Counter
	outboundCalls      metric.Int64Counter
	outboundDuration   metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "followup"
	}
	meter := provider.Meter(name)

	dispatchOperations, err := meter.Int64Counter("followup.dispatch.operations",
		metric.WithDescription("Dispatcher operations by facility and outcome."))
	if err != nil {
		return nil, err
	}
	outboundCalls, err := meter.Int64Counter("followup.outbound.calls",
		metric.WithDescription("Outbound facility HTTP exchanges by status class."))
	if err != nil {
		return nil, err
	}
	outboundDuration, err := meter.Float64Histogram("followup.outbound.duration",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		dispatchOperations: dispatchOperations,
		outboundCalls:      outboundCalls,
		outboundDuration:   outboundDuration,
	}, nil
}

// RecordDispatch counts one dispatcher operation.
func (m *Metrics) RecordDispatch(ctx context.Context, operation, facility, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("facility", strings.TrimSpace(facility)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.dispatchOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOutbound counts one outbound exchange. statusCode 0 means no response.
func (m *Metrics) RecordOutbound(ctx context.Context, method string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("method", strings.ToUpper(strings.TrimSpace(method))),
		attribute.String("status_class", statusClass(statusCode)),
	)
	m.outboundCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.outboundDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func statusClass(code int) string {
	if code <= 0 {
		return "none"
	}
	return fmt.Sprintf("%dxx", code/100)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf", "":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":    {},
	"facility":     {},
	"outcome":      {},
	"method":       {},
	"status_class": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
