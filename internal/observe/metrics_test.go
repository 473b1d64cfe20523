package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics возвращает Metrics поверх ManualReader для программной
// проверки значений.
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

func TestCountersRecord(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCacheHit(ctx, "result")
	m.RecordCacheHit(ctx, "result")
	m.RecordCacheMiss(ctx, "context")
	m.RecordActionExecuted(ctx, "attack", "ok")
	m.RecordRound(ctx)
	m.AddParticipants(ctx, 3)
	m.AddParticipants(ctx, -1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	hits := findMetric(rm, "rules.discovery.cache_hits")
	if hits == nil {
		t.Fatal("cache_hits metric not found")
	}
	sum, ok := hits.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 2 {
		t.Errorf("cache_hits: unexpected data %+v", hits.Data)
	}

	participants := findMetric(rm, "rules.combat.participants")
	if participants == nil {
		t.Fatal("participants metric not found")
	}
	psum := participants.Data.(metricdata.Sum[int64])
	if psum.DataPoints[0].Value != 2 {
		t.Errorf("participants: got %d, want 2", psum.DataPoints[0].Value)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// Не должно паниковать
	m.RecordDiscovery(ctx, 0.001)
	m.RecordCacheHit(ctx, "result")
	m.RecordCacheMiss(ctx, "context")
	m.RecordActionExecuted(ctx, "attack", "ok")
	m.RecordRound(ctx)
	m.AddParticipants(ctx, 1)
}
