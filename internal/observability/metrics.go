package observability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/multierr"
)

const meterName = "github.com/upb/incident-ai-gateway"

// Instrument names
const (
	MetricRequests = "ai.requests"
	MetricLatency  = "ai.request.duration"
	MetricTokens   = "ai.tokens"
	MetricCost     = "ai.cost"
)

const (
	attrProvider = attribute.Key("provider")
	attrModel    = attribute.Key("model")
	attrStatus   = attribute.Key("status")
)

// Metrics collects request metrics
type Metrics interface {
	RecordRequest(ctx context.Context, labels RequestLabels)
	RecordLatency(ctx context.Context, duration time.Duration, labels RequestLabels)
	RecordTokens(ctx context.Context, tokens int, labels RequestLabels)
	RecordCost(ctx context.Context, cost float64, labels RequestLabels)
}

// RequestLabels contains metric dimensions
type RequestLabels struct {
	Provider string
	Model    string
	Status   string
}

func (l RequestLabels) option() metric.MeasurementOption {
	return metric.WithAttributes(
		attrProvider.String(l.Provider),
		attrModel.String(l.Model),
		attrStatus.String(l.Status),
	)
}

// SeriesSnapshot is the aggregate for one label set
type SeriesSnapshot struct {
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	Status         string  `json:"status"`
	Requests       int64   `json:"requests"`
	Tokens         int64   `json:"tokens"`
	Cost           float64 `json:"cost"`
	TotalLatencyMs int64   `json:"total_latency_ms"`
	MaxLatencyMs   int64   `json:"max_latency_ms"`
}

// MeterMetrics records request metrics on OpenTelemetry instruments. The
// provider is read back through a manual reader for the status endpoint.
type MeterMetrics struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader

	requests metric.Int64Counter
	tokens   metric.Int64Counter
	cost     metric.Float64Counter
	latency  metric.Float64Histogram
}

// NewMeterMetrics creates a meter provider backed by a manual reader and
// registers the request instruments
func NewMeterMetrics() (*MeterMetrics, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter(meterName)

	m := &MeterMetrics{provider: provider, reader: reader}

	var err, ierr error
	m.requests, ierr = meter.Int64Counter(MetricRequests,
		metric.WithDescription("Provider attempts"),
		metric.WithUnit("{request}"))
	err = multierr.Append(err, ierr)
	m.tokens, ierr = meter.Int64Counter(MetricTokens,
		metric.WithDescription("Tokens consumed by successful attempts"),
		metric.WithUnit("{token}"))
	err = multierr.Append(err, ierr)
	m.cost, ierr = meter.Float64Counter(MetricCost,
		metric.WithDescription("Estimated spend in USD"),
		metric.WithUnit("USD"))
	err = multierr.Append(err, ierr)
	m.latency, ierr = meter.Float64Histogram(MetricLatency,
		metric.WithDescription("Provider call duration"),
		metric.WithUnit("ms"))
	err = multierr.Append(err, ierr)

	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return m, nil
}

func (m *MeterMetrics) RecordRequest(ctx context.Context, labels RequestLabels) {
	m.requests.Add(ctx, 1, labels.option())
}

func (m *MeterMetrics) RecordLatency(ctx context.Context, duration time.Duration, labels RequestLabels) {
	m.latency.Record(ctx, float64(duration)/float64(time.Millisecond), labels.option())
}

func (m *MeterMetrics) RecordTokens(ctx context.Context, tokens int, labels RequestLabels) {
	m.tokens.Add(ctx, int64(tokens), labels.option())
}

func (m *MeterMetrics) RecordCost(ctx context.Context, cost float64, labels RequestLabels) {
	m.cost.Add(ctx, cost, labels.option())
}

// Snapshot collects the current aggregates, one entry per label set,
// ordered by provider, model, status
func (m *MeterMetrics) Snapshot(ctx context.Context) ([]SeriesSnapshot, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	series := make(map[RequestLabels]*SeriesSnapshot)
	entry := func(set attribute.Set) *SeriesSnapshot {
		labels := labelsOf(set)
		s, ok := series[labels]
		if !ok {
			s = &SeriesSnapshot{Provider: labels.Provider, Model: labels.Model, Status: labels.Status}
			series[labels] = s
		}
		return s
	}

	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != meterName {
			continue
		}
		for _, md := range scope.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					s := entry(dp.Attributes)
					switch md.Name {
					case MetricRequests:
						s.Requests = dp.Value
					case MetricTokens:
						s.Tokens = dp.Value
					}
				}
			case metricdata.Sum[float64]:
				if md.Name != MetricCost {
					continue
				}
				for _, dp := range data.DataPoints {
					entry(dp.Attributes).Cost = dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					s := entry(dp.Attributes)
					s.TotalLatencyMs = int64(dp.Sum)
					if peak, ok := dp.Max.Value(); ok {
						s.MaxLatencyMs = int64(peak)
					}
				}
			}
		}
	}

	out := make([]SeriesSnapshot, 0, len(series))
	for _, s := range series {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// Shutdown flushes and stops the meter provider
func (m *MeterMetrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func labelsOf(set attribute.Set) RequestLabels {
	var labels RequestLabels
	if v, ok := set.Value(attrProvider); ok {
		labels.Provider = v.AsString()
	}
	if v, ok := set.Value(attrModel); ok {
		labels.Model = v.AsString()
	}
	if v, ok := set.Value(attrStatus); ok {
		labels.Status = v.AsString()
	}
	return labels
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) RecordRequest(context.Context, RequestLabels)                {}
func (NopMetrics) RecordLatency(context.Context, time.Duration, RequestLabels) {}
func (NopMetrics) RecordTokens(context.Context, int, RequestLabels)            {}
func (NopMetrics) RecordCost(context.Context, float64, RequestLabels)          {}
