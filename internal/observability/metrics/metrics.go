package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/novabiz/paydesk/internal/config"
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

// Metrics exposes application-level instruments for the reconciliation ledger.
type Metrics struct {
	paymentsRecorded  metric.Int64Counter
	paymentDecisions  metric.Int64Counter
	balanceRecomputes metric.Int64Counter
	dispatchFailures  metric.Int64Counter
	invoicesGenerated metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.OTLPEnabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.OTLPProtocol, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("protocol", cfg.OTLPProtocol),
	)

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg config.Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "paydesk"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	var err error

	if m.paymentsRecorded, err = meter.Int64Counter("payments_recorded_total",
		metric.WithDescription("Payments recorded into the ledger"),
	); err != nil {
		return nil, err
	}
	if m.paymentDecisions, err = meter.Int64Counter("payment_decisions_total",
		metric.WithDescription("Approval decisions applied to payments"),
	); err != nil {
		return nil, err
	}
	if m.balanceRecomputes, err = meter.Int64Counter("balance_recomputes_total",
		metric.WithDescription("Full balance recomputes per billable target"),
	); err != nil {
		return nil, err
	}
	if m.dispatchFailures, err = meter.Int64Counter("dispatch_failures_total",
		metric.WithDescription("Side-effect dispatch steps that failed"),
	); err != nil {
		return nil, err
	}
	if m.invoicesGenerated, err = meter.Int64Counter("invoices_generated_total",
		metric.WithDescription("Invoices generated"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) PaymentRecorded(ctx context.Context, targetType string) {
	if m == nil || m.paymentsRecorded == nil {
		return
	}
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("target_type", targetType)))
}

func (m *Metrics) PaymentDecision(ctx context.Context, action string) {
	if m == nil || m.paymentDecisions == nil {
		return
	}
	m.paymentDecisions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

func (m *Metrics) BalanceRecomputed(ctx context.Context, targetType string) {
	if m == nil || m.balanceRecomputes == nil {
		return
	}
	m.balanceRecomputes.Add(ctx, 1, metric.WithAttributes(attribute.String("target_type", targetType)))
}

func (m *Metrics) DispatchFailure(ctx context.Context, step string) {
	if m == nil || m.dispatchFailures == nil {
		return
	}
	m.dispatchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
}

func (m *Metrics) InvoiceGenerated(ctx context.Context, targetType string) {
	if m == nil || m.invoicesGenerated == nil {
		return
	}
	m.invoicesGenerated.Add(ctx, 1, metric.WithAttributes(attribute.String("target_type", targetType)))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch protocol {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "grpc", "":
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
