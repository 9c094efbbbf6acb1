package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// SetupPrometheusMetrics creates a meter provider exported through a
// dedicated Prometheus registry, and the handler serving that registry.
func SetupPrometheusMetrics() (*sdkmetric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()
	exp, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return mp, handler, nil
}

// Metrics holds the helpdesk's domain instruments. A nil *Metrics records nothing.
type Metrics struct {
	submissions  metric.Int64Counter
	searches     metric.Int64Counter
	escalations  metric.Int64Counter
	cacheLookups metric.Int64Counter
	pendingGauge metric.Int64Gauge
	importedFAQs metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.submissions, err = meter.Int64Counter("faqdesk.submissions",
		metric.WithDescription("Questions submitted, by outcome")); err != nil {
		return nil, err
	}
	if m.searches, err = meter.Int64Counter("faqdesk.faq.searches",
		metric.WithDescription("FAQ searches, by whether anything matched")); err != nil {
		return nil, err
	}
	if m.escalations, err = meter.Int64Counter("faqdesk.escalations.transitions",
		metric.WithDescription("Escalation status changes, by new status")); err != nil {
		return nil, err
	}
	if m.cacheLookups, err = meter.Int64Counter("faqdesk.cache.lookups",
		metric.WithDescription("Cache lookups, by result")); err != nil {
		return nil, err
	}
	if m.pendingGauge, err = meter.Int64Gauge("faqdesk.escalations.pending",
		metric.WithDescription("Escalations waiting for staff")); err != nil {
		return nil, err
	}
	if m.importedFAQs, err = meter.Int64Counter("faqdesk.faq.imported",
		metric.WithDescription("FAQs created by bulk import")); err != nil {
		return nil, err
	}
	return m, nil
}

// Submission counts a question by outcome: faq_answer or escalation.
func (m *Metrics) Submission(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Search counts a FAQ search.
func (m *Metrics) Search(ctx context.Context, matched bool) {
	if m == nil {
		return
	}
	m.searches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("matched", matched)))
}

// EscalationTransition counts an escalation moving to status.
func (m *Metrics) EscalationTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.escalations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// CacheLookup counts a cache hit or miss.
func (m *Metrics) CacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// PendingEscalations records the current backlog.
func (m *Metrics) PendingEscalations(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.pendingGauge.Record(ctx, n)
}

// Imported counts FAQs created by an import.
func (m *Metrics) Imported(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.importedFAQs.Add(ctx, int64(n))
}
