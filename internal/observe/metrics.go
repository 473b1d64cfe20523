// Package observe содержит метрики движка правил поверх OpenTelemetry
// Metrics API. Инструменты создаются один раз через NewMetrics; тесты
// передают собственный metric.MeterProvider (sdk/metric с manual reader),
// чтобы не зависеть от глобального состояния.
package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName - имя instrumentation scope для всех метрик движка.
const meterName = "github.com/smaran-m/roguelike-agent-sub001"

// Metrics - все метрические инструменты движка правил.
type Metrics struct {
	// DiscoveryDuration - длительность одного discovery-вызова, секунды.
	DiscoveryDuration metric.Float64Histogram

	// CacheHits / CacheMisses - попадания в кэши discovery.
	// Атрибут: attribute.String("cache", "context"|"result").
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// ActionsExecuted - исполненные действия.
	// Атрибуты: attribute.String("category", ...), attribute.String("status", "ok"|"rejected").
	ActionsExecuted metric.Int64Counter

	// CombatRounds - завершенные раунды боя.
	CombatRounds metric.Int64Counter

	// ActiveParticipants - число участников текущего боя.
	ActiveParticipants metric.Int64UpDownCounter
}

// NewMetrics создает инструменты на переданном провайдере.
// nil означает глобальный провайдер otel.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var errs []error
	m := &Metrics{}

	var err error
	m.DiscoveryDuration, err = meter.Float64Histogram("rules.discovery.duration",
		metric.WithDescription("Action discovery latency"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	m.CacheHits, err = meter.Int64Counter("rules.discovery.cache_hits",
		metric.WithDescription("Discovery cache hits"))
	errs = append(errs, err)

	m.CacheMisses, err = meter.Int64Counter("rules.discovery.cache_misses",
		metric.WithDescription("Discovery cache misses"))
	errs = append(errs, err)

	m.ActionsExecuted, err = meter.Int64Counter("rules.actions.executed",
		metric.WithDescription("Actions processed by the execution engine"))
	errs = append(errs, err)

	m.CombatRounds, err = meter.Int64Counter("rules.combat.rounds",
		metric.WithDescription("Completed combat rounds"))
	errs = append(errs, err)

	m.ActiveParticipants, err = meter.Int64UpDownCounter("rules.combat.participants",
		metric.WithDescription("Participants in the active encounter"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// Все Record*-методы nil-безопасны: подсистемы могут работать без метрик
// (тесты, песочница), не проверяя указатель на каждом вызове.

// RecordDiscovery фиксирует длительность discovery и итог кэша.
func (m *Metrics) RecordDiscovery(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.DiscoveryDuration.Record(ctx, seconds)
}

// RecordCacheHit фиксирует попадание в кэш ("context" или "result").
func (m *Metrics) RecordCacheHit(ctx context.Context, cache string) {
	if m == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cache)))
}

// RecordCacheMiss фиксирует промах кэша.
func (m *Metrics) RecordCacheMiss(ctx context.Context, cache string) {
	if m == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cache)))
}

// RecordActionExecuted фиксирует исполненное (или отклоненное) действие.
func (m *Metrics) RecordActionExecuted(ctx context.Context, category, status string) {
	if m == nil {
		return
	}
	m.ActionsExecuted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("status", status),
	))
}

// RecordRound фиксирует завершенный раунд боя.
func (m *Metrics) RecordRound(ctx context.Context) {
	if m == nil {
		return
	}
	m.CombatRounds.Add(ctx, 1)
}

// AddParticipants сдвигает счетчик участников боя (отрицательное - уход).
func (m *Metrics) AddParticipants(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActiveParticipants.Add(ctx, delta)
}
