// Package observe holds the OpenTelemetry metric instruments for the decode
// pipeline. A package-level default instance ([DefaultMetrics]) uses the
// global meter provider; tests should call [NewMetrics] with their own
// provider.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/bastiangx/swipeserve"

// Metrics holds all metric instruments. The OTel types handle their own
// synchronisation.
type Metrics struct {
	// DecodeDuration tracks recognize latency. Use with attribute:
	//   attribute.String("kind", "full"|"partial")
	DecodeDuration metric.Float64Histogram

	// DecodeRequests counts decode runs by kind and status.
	DecodeRequests metric.Int64Counter

	// DecodeCancelled counts partial or full decodes superseded before completion.
	DecodeCancelled metric.Int64Counter

	// Candidates tracks how many candidates a full decode returned.
	Candidates metric.Int64Histogram

	// Commits counts words committed to the personalization store.
	Commits metric.Int64Counter
}

// latencyBuckets are in seconds, sized for sub-frame decode work.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DecodeDuration, err = m.Float64Histogram("swipeserve.decode.duration",
		metric.WithDescription("Latency of swipe decoding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DecodeRequests, err = m.Int64Counter("swipeserve.decode.requests",
		metric.WithDescription("Total decode runs by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.DecodeCancelled, err = m.Int64Counter("swipeserve.decode.cancelled",
		metric.WithDescription("Decode runs superseded before completion."),
	); err != nil {
		return nil, err
	}
	if met.Candidates, err = m.Int64Histogram("swipeserve.decode.candidates",
		metric.WithDescription("Number of candidates returned per full decode."),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 10, 20),
	); err != nil {
		return nil, err
	}
	if met.Commits, err = m.Int64Counter("swipeserve.personal.commits",
		metric.WithDescription("Words committed to the personalization store."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on
// [otel.GetMeterProvider]. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordDecode records one finished decode run.
func (m *Metrics) RecordDecode(ctx context.Context, kind, status string, seconds float64) {
	m.DecodeDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("kind", kind)))
	m.DecodeRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

func (m *Metrics) RecordCancelled(ctx context.Context, kind string) {
	m.DecodeCancelled.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
