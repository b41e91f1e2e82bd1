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
	ordersPlaced    metric.Int64Counter
	stockRejections metric.Int64Counter
	auditEntries    metric.Int64Counter
	contention      metric.Int64Counter
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
		name = "toko"
	}
	meter := provider.Meter(name)

	ordersPlaced, err := meter.Int64Counter("toko_orders_placed_total")
	if err != nil {
		return nil, err
	}
	stockRejections, err := meter.Int64Counter("toko_stock_rejections_total")
	if err != nil {
		return nil, err
	}
	auditEntries, err := meter.Int64Counter("toko_audit_entries_total")
	if err != nil {
		return nil, err
	}
	contention, err := meter.Int64Counter("toko_lock_contention_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersPlaced:    ordersPlaced,
		stockRejections: stockRejections,
		auditEntries:    auditEntries,
		contention:      contention,
	}, nil
}

// RecordOrderPlaced increments placed order counts.
func (m *Metrics) RecordOrderPlaced(ctx context.Context, paymentStatus string) {
	if m == nil {
		return
	}
	m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_status", strings.TrimSpace(paymentStatus)),
	))
}

// RecordStockRejection counts placements refused for insufficient stock.
func (m *Metrics) RecordStockRejection(ctx context.Context) {
	if m == nil {
		return
	}
	m.stockRejections.Add(ctx, 1)
}

// RecordAuditEntry counts appended audit ledger entries.
func (m *Metrics) RecordAuditEntry(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.auditEntries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", strings.TrimSpace(action)),
	))
}

// RecordContention counts transactions aborted by lock contention.
func (m *Metrics) RecordContention(ctx context.Context) {
	if m == nil {
		return
	}
	m.contention.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
