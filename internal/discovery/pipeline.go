package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/internal/observe"
	"github.com/smaran-m/roguelike-agent-sub001/internal/resources"
	"github.com/smaran-m/roguelike-agent-sub001/internal/world"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Options - необязательные фильтры discovery-вызова.
type Options struct {
	Category          domain.ActionCategory `json:"category"`
	HasCategory       bool                  `json:"hasCategory"`
	SourcePrefix      string                `json:"sourcePrefix"`
	StrictSourcesOnly bool                  `json:"strictSourcesOnly"`
}

// Result - итог discovery: действия, контекст и наблюдаемость
// (время и вклад каждого источника).
type Result struct {
	Actions       []domain.Action
	Context       *domain.ActionContext
	DiscoveryTime time.Duration
	SourceResults map[string]int
}

// EconomyProvider отдает боевой снапшот экономики хода для контекста.
// Реализуется менеджером очередности ходов.
type EconomyProvider interface {
	EconomySnapshot(id domain.EntityID) (*domain.CombatSnapshot, bool)
}

// PipelineConfig - настройки кэшей и зрения.
type PipelineConfig struct {
	ContextTTL   time.Duration // кэш контекста, по умолчанию 1s
	ResultTTL    time.Duration // кэш результатов, по умолчанию 500ms
	VisionRadius float64       // радиус видимых сущностей, по умолчанию 8
	TileRadius   int           // радиус снапшота клеток, по умолчанию 1
}

func (c *PipelineConfig) fillDefaults() {
	if c.ContextTTL == 0 {
		c.ContextTTL = time.Second
	}
	if c.ResultTTL == 0 {
		c.ResultTTL = 500 * time.Millisecond
	}
	if c.VisionRadius == 0 {
		c.VisionRadius = 8
	}
	if c.TileRadius == 0 {
		c.TileRadius = 1
	}
}

type cachedContext struct {
	ctx     *domain.ActionContext
	expires time.Time
}

type cachedResult struct {
	result  Result
	expires time.Time
}

// Pipeline - оркестратор discovery. Два независимых кэша со строковыми
// составными ключами; оба сбрасываются ЦЕЛИКОМ по событиям EntityMoved,
// GameModeChanged, EntityDied и TurnStarted. Частичной инвалидации нет
// намеренно: корректность важнее хитрейта, см. DESIGN.md.
type Pipeline struct {
	registry *Registry
	res      *resources.Manager
	metrics  *observe.Metrics
	cfg      PipelineConfig

	// Economy, если задан, наполняет боевые поля контекста.
	Economy EconomyProvider

	ctxCache map[string]cachedContext
	resCache map[string]cachedResult

	// now подменяется в тестах, чтобы не спать ради TTL.
	now func() time.Time
}

// NewPipeline создает пайплайн discovery.
func NewPipeline(registry *Registry, res *resources.Manager, metrics *observe.Metrics, cfg PipelineConfig) *Pipeline {
	cfg.fillDefaults()
	return &Pipeline{
		registry: registry,
		res:      res,
		metrics:  metrics,
		cfg:      cfg,
		ctxCache: make(map[string]cachedContext),
		resCache: make(map[string]cachedResult),
		now:      time.Now,
	}
}

// BindBus подписывает пайплайн на события, инвалидирующие кэши.
// Возвращает функцию полной отписки.
func (p *Pipeline) BindBus(bus *events.Bus) func() {
	invalidate := func(evt events.Event) {
		logger.Log.WithFields(logrus.Fields{
			"component":  "discovery",
			"event_type": evt.Type,
		}).Debug("Invalidating discovery caches.")
		p.ClearCaches()
	}

	unsubs := []func(){
		bus.Subscribe(events.EntityMoved, invalidate),
		bus.Subscribe(events.GameModeChanged, invalidate),
		bus.Subscribe(events.EntityDied, invalidate),
		bus.Subscribe(events.TurnStarted, invalidate),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// ClearCaches сбрасывает оба кэша целиком.
func (p *Pipeline) ClearCaches() {
	p.ctxCache = make(map[string]cachedContext)
	p.resCache = make(map[string]cachedResult)
}

// DiscoverActions - главный вход: полный двухфазный прогон с кэшированием.
func (p *Pipeline) DiscoverActions(entity *domain.Entity, mode domain.GameMode, allEntities []*domain.Entity, tileMap *world.TileMap, opts *Options) Result {
	start := p.now()
	if opts == nil {
		opts = &Options{}
	}

	// 1-2. Кэш результатов: попадание возвращается немедленно,
	// списки бит-идентичны в пределах TTL.
	resultKey := p.resultKey(entity.ID, mode, opts)
	if entry, ok := p.resCache[resultKey]; ok && p.now().Before(entry.expires) {
		p.metrics.RecordCacheHit(context.Background(), "result")
		return entry.result
	}
	p.metrics.RecordCacheMiss(context.Background(), "result")

	ctx := p.contextFor(entity, mode, allEntities, tileMap)

	actions, sourceResults := p.collect(ctx, domain.ActionQuery{
		Context:           ctx,
		Category:          opts.Category,
		HasCategory:       opts.HasCategory,
		SourcePrefix:      opts.SourcePrefix,
		StrictSourcesOnly: opts.StrictSourcesOnly,
	})

	result := Result{
		Actions:       actions,
		Context:       ctx,
		DiscoveryTime: p.now().Sub(start),
		SourceResults: sourceResults,
	}

	p.resCache[resultKey] = cachedResult{result: result, expires: p.now().Add(p.cfg.ResultTTL)}
	p.metrics.RecordDiscovery(context.Background(), result.DiscoveryTime.Seconds())

	logger.Log.WithFields(logrus.Fields{
		"component":   "discovery",
		"entity_id":   entity.ID,
		"mode":        mode.String(),
		"num_actions": len(actions),
		"sources":     sourceResults,
	}).Debug("Action discovery completed.")

	return result
}

// QueryActions - облегченный вариант для точечных запросов ("только атаки").
// Обходит кэш результатов и применяет явный фильтр источника и лимит.
func (p *Pipeline) QueryActions(entity *domain.Entity, mode domain.GameMode, allEntities []*domain.Entity, tileMap *world.TileMap, q domain.ActionQuery) []domain.Action {
	q.Context = p.contextFor(entity, mode, allEntities, tileMap)

	actions, _ := p.collect(q.Context, q)
	if q.MaxResults > 0 && len(actions) > q.MaxResults {
		actions = actions[:q.MaxResults]
	}
	return actions
}

// collect - две фазы сбора, дедупликация, фильтры и детерминированная
// сортировка. Общая механика DiscoverActions и QueryActions.
func (p *Pipeline) collect(ctx *domain.ActionContext, q domain.ActionQuery) ([]domain.Action, map[string]int) {
	sourceResults := make(map[string]int)
	var collected []domain.Action

	// Фаза 1: источники по убыванию приоритета.
	for _, rs := range p.registry.sourcesByPriority() {
		actions := p.collectFromSource(rs.ID, rs.Source, ctx)
		sourceResults[rs.ID] = len(actions)
		collected = append(collected, actions...)
	}

	// Фаза 2: провайдеры (пропускается при StrictSourcesOnly).
	if !q.StrictSourcesOnly {
		for _, rp := range p.registry.orderedProviders() {
			actions := p.collectFromProvider(rp.ID, rp.Provider, q)
			sourceResults[rp.ID] = len(actions)
			collected = append(collected, actions...)
		}
	}

	// Дедупликация по id: побеждает собранное позже.
	byID := make(map[string]domain.Action, len(collected))
	for _, a := range collected {
		byID[a.ID] = a
	}

	merged := make([]domain.Action, 0, len(byID))
	for _, a := range byID {
		if q.HasCategory && a.Category != q.Category {
			continue
		}
		if q.SourcePrefix != "" && !strings.HasPrefix(a.Source, q.SourcePrefix) {
			continue
		}
		merged = append(merged, a)
	}

	// Полностью детерминированный порядок: приоритет по убыванию,
	// затем категория, имя и id по возрастанию.
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	return merged, sourceResults
}

// collectFromSource изолирует сбой источника: паника гасится, логируется
// и источник считается не давшим ни одного действия. Discovery не падает
// из-за одного плохого плагина.
func (p *Pipeline) collectFromSource(id string, s Source, ctx *domain.ActionContext) (actions []domain.Action) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(logrus.Fields{
				"component": "discovery",
				"source_id": id,
				"panic":     r,
			}).Error("Action source panicked, contributing zero actions.")
			actions = nil
		}
	}()

	if !s.CanActivate(ctx) {
		return nil
	}
	return s.AvailableActions(ctx)
}

// collectFromProvider - та же изоляция для провайдеров.
func (p *Pipeline) collectFromProvider(id string, prov Provider, q domain.ActionQuery) (actions []domain.Action) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(logrus.Fields{
				"component":   "discovery",
				"provider_id": id,
				"panic":       r,
			}).Error("Action provider panicked, contributing zero actions.")
			actions = nil
		}
	}()

	if !prov.CanProvideActions(q) {
		return nil
	}
	return prov.ProvideActions(q)
}

// contextFor возвращает кэшированный или свежесобранный ActionContext.
func (p *Pipeline) contextFor(entity *domain.Entity, mode domain.GameMode, allEntities []*domain.Entity, tileMap *world.TileMap) *domain.ActionContext {
	key := fmt.Sprintf("%s|%d,%d|%s", entity.ID, entity.Pos.X, entity.Pos.Y, mode)
	if entry, ok := p.ctxCache[key]; ok && p.now().Before(entry.expires) {
		p.metrics.RecordCacheHit(context.Background(), "context")
		return entry.ctx
	}
	p.metrics.RecordCacheMiss(context.Background(), "context")

	ctx := p.buildContext(entity, mode, allEntities, tileMap)
	p.ctxCache[key] = cachedContext{ctx: ctx, expires: p.now().Add(p.cfg.ContextTTL)}
	return ctx
}

// buildContext собирает снапшот мира вокруг исполнителя.
func (p *Pipeline) buildContext(entity *domain.Entity, mode domain.GameMode, allEntities []*domain.Entity, tileMap *world.TileMap) *domain.ActionContext {
	ctx := &domain.ActionContext{
		Performer: entity,
		Mode:      mode,
		Resources: p.res.Snapshot(entity.ID),
	}

	if entity.Equipment != nil {
		ctx.EquippedItems = entity.Equipment.Slots
	}

	if tileMap != nil {
		ctx.NearbyTiles = tileMap.NearbyTiles(entity.Pos, p.cfg.TileRadius)
	}

	// Видимые сущности: в радиусе зрения и с прямой видимостью.
	// Порядок по id - детерминизм выдачи не должен зависеть от порядка
	// слайса вызывающего.
	for _, other := range allEntities {
		if other == nil || other.ID == entity.ID {
			continue
		}
		if entity.Pos.DistanceTo(other.Pos) > p.cfg.VisionRadius {
			continue
		}
		if tileMap != nil && !world.HasLineOfSight(tileMap, entity.Pos, other.Pos) {
			continue
		}
		ctx.VisibleEntities = append(ctx.VisibleEntities, other)
	}
	sort.Slice(ctx.VisibleEntities, func(i, j int) bool {
		return ctx.VisibleEntities[i].ID < ctx.VisibleEntities[j].ID
	})

	if mode == domain.ModeCombat && p.Economy != nil {
		if snap, ok := p.Economy.EconomySnapshot(entity.ID); ok {
			ctx.Combat = snap
		}
	}

	return ctx
}

func (p *Pipeline) resultKey(id domain.EntityID, mode domain.GameMode, opts *Options) string {
	serialized, err := json.Marshal(opts)
	if err != nil {
		serialized = []byte("{}")
	}
	return fmt.Sprintf("%s|%s|%s", id, mode, serialized)
}
