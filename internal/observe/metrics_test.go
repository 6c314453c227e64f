package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordDecode(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDecode(ctx, "full", "ok", 0.002)
	m.RecordDecode(ctx, "full", "ok", 0.004)
	m.RecordDecode(ctx, "partial", "ok", 0.001)

	rm := collect(t, reader)
	met := findMetric(rm, "swipeserve.decode.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("duration is not a histogram")
	}
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("sample count = %d, want 3", total)
	}

	req := findMetric(rm, "swipeserve.decode.requests")
	if req == nil {
		t.Fatal("requests metric not found")
	}
	sum, ok := req.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("requests is not a sum")
	}
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "kind" && kv.Value.AsString() == "full" {
				if dp.Value != 2 {
					t.Errorf("full requests = %d, want 2", dp.Value)
				}
				return
			}
		}
	}
	t.Error("data point with kind=full not found")
}

func TestCancelledAndCommits(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCancelled(ctx, "partial")
	m.RecordCancelled(ctx, "partial")
	m.Commits.Add(ctx, 1)

	rm := collect(t, reader)
	for name, want := range map[string]int64{
		"swipeserve.decode.cancelled": 2,
		"swipeserve.personal.commits": 1,
	} {
		met := findMetric(rm, name)
		if met == nil {
			t.Fatalf("metric %q not found", name)
		}
		sum, ok := met.Data.(metricdata.Sum[int64])
		if !ok || len(sum.DataPoints) == 0 {
			t.Fatalf("metric %q is not a populated sum", name)
		}
		if got := sum.DataPoints[0].Value; got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
