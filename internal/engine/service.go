package engine

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/catalog"
	"github.com/smaran-m/roguelike-agent-sub001/internal/combat"
	"github.com/smaran-m/roguelike-agent-sub001/internal/discovery"
	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/internal/execution"
	"github.com/smaran-m/roguelike-agent-sub001/internal/observe"
	"github.com/smaran-m/roguelike-agent-sub001/internal/resources"
	"github.com/smaran-m/roguelike-agent-sub001/internal/world"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/dice"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// roller - объединенный срез дайс-механики, который нужен сервису.
// *dice.Roller реализует его целиком, тесты подставляют скрипт.
type roller interface {
	execution.Roller
	combat.InitiativeRoller
}

// Service - фасад движка правил. Владеет шиной событий, реестром
// сущностей и всеми подсистемами; внешние слои (UI, AI, сеть) говорят
// только с ним.
type Service struct {
	cfg     *Config
	bus     *events.Bus
	roller  roller
	metrics *observe.Metrics

	res      *resources.Manager
	catalog  *catalog.Catalog
	registry *discovery.Registry
	pipeline *discovery.Pipeline
	executor *execution.Engine
	turns    *combat.TurnOrderManager
	modes    *combat.GameModeManager

	tileMap *world.TileMap

	entities map[domain.EntityID]*domain.Entity
	roster   []domain.EntityID // порядок регистрации, для стабильных обходов
}

// NewService собирает движок по конфигурации.
func NewService(cfg *Config) (*Service, error) {
	return newService(cfg, dice.NewRoller(cfg.Seed))
}

func newService(cfg *Config, r roller) (*Service, error) {
	metrics, err := observe.NewMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	worldCfg := world.DefaultConfig()
	if cfg.WorldConfigPath != "" {
		worldCfg, err = world.LoadConfig(cfg.WorldConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load world config: %w", err)
		}
	}

	cat := catalog.New()
	if cfg.ActionsPath != "" {
		cat.LoadActionsFile(cfg.ActionsPath)
	}
	if cfg.ItemsPath != "" {
		if err := cat.LoadItemsFile(cfg.ItemsPath); err != nil {
			return nil, fmt.Errorf("load items: %w", err)
		}
	}

	bus := events.NewBus()
	res := resources.NewManager()

	registry := discovery.NewRegistry()
	registry.RegisterSource("intrinsic", discovery.NewIntrinsicSource(cat))
	registry.RegisterSource("equipment", discovery.NewEquipmentSource())
	registry.RegisterProvider("status", discovery.NewStatusEffectProvider())

	pipeline := discovery.NewPipeline(registry, res, metrics, discovery.PipelineConfig{
		ContextTTL:   cfg.ContextTTL,
		ResultTTL:    cfg.ResultTTL,
		VisionRadius: float64(cfg.VisionRadius),
	})
	pipeline.BindBus(bus)

	executor := execution.NewEngine(r, bus, res, worldCfg, metrics, dice.ParseCritPolicy(cfg.CritPolicy))
	turns := combat.NewTurnOrderManager(bus, r, metrics)

	s := &Service{
		cfg:      cfg,
		bus:      bus,
		roller:   r,
		metrics:  metrics,
		res:      res,
		catalog:  cat,
		registry: registry,
		pipeline: pipeline,
		executor: executor,
		turns:    turns,
		tileMap:  world.NewArena(24, 16),
		entities: make(map[domain.EntityID]*domain.Entity),
	}
	pipeline.Economy = turns
	s.modes = combat.NewGameModeManager(bus, turns, s.tileMap, s.Entities, res, combat.ModeConfig{
		DetectionRadius: cfg.DetectionRadius,
		TriggerRadius:   cfg.TriggerRadius,
		RequireLOS:      cfg.RequireLOS,
	})
	return s, nil
}

// Bus возвращает шину событий для подписки внешних слоев.
func (s *Service) Bus() *events.Bus { return s.bus }

// Catalog возвращает каталог действий и предметов.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Registry возвращает реестр источников discovery: внешние плагины
// регистрируются через него.
func (s *Service) Registry() *discovery.Registry { return s.registry }

// Mode возвращает текущий режим игры.
func (s *Service) Mode() domain.GameMode { return s.modes.Mode() }

// Round возвращает номер раунда активного боя, 0 вне боя.
func (s *Service) Round() int { return s.turns.Round() }

// CurrentTurn возвращает участника, чей сейчас ход.
func (s *Service) CurrentTurn() (domain.EntityID, bool) { return s.turns.CurrentEntity() }

// SetTileMap подменяет карту (загрузка уровня). Кэши discovery сбрасываются.
func (s *Service) SetTileMap(m *world.TileMap) {
	s.tileMap = m
	s.pipeline.ClearCaches()
}

// TileMap возвращает активную карту.
func (s *Service) TileMap() *world.TileMap { return s.tileMap }

// AddEntity регистрирует сущность в мире.
func (s *Service) AddEntity(e *domain.Entity) {
	if _, exists := s.entities[e.ID]; exists {
		logger.Log.WithFields(logrus.Fields{
			"component": "engine", "entity_id": e.ID,
		}).Warn("Duplicate entity id, overwriting.")
	} else {
		s.roster = append(s.roster, e.ID)
	}
	s.entities[e.ID] = e
}

// RemoveEntity убирает сущность из мира, ее ресурсов и порядка ходов.
func (s *Service) RemoveEntity(id domain.EntityID) {
	if _, ok := s.entities[id]; !ok {
		return
	}
	delete(s.entities, id)
	for i, rid := range s.roster {
		if rid == id {
			s.roster = append(s.roster[:i], s.roster[i+1:]...)
			break
		}
	}
	s.res.Drop(id)
	s.turns.RemoveParticipant(id)
	s.pipeline.ClearCaches()
}

// GetEntity ищет сущность по идентификатору.
func (s *Service) GetEntity(id domain.EntityID) (*domain.Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Entities возвращает все сущности в порядке регистрации.
func (s *Service) Entities() []*domain.Entity {
	out := make([]*domain.Entity, 0, len(s.roster))
	for _, id := range s.roster {
		out = append(out, s.entities[id])
	}
	return out
}

// Player возвращает сущность игрока.
func (s *Service) Player() (*domain.Entity, bool) {
	for _, id := range s.roster {
		if e := s.entities[id]; e.IsPlayer() {
			return e, true
		}
	}
	return nil, false
}

// DefineResource задает пул ресурса сущности (hp, mana...).
func (s *Service) DefineResource(id domain.EntityID, resource string, current, minimum, maximum int) {
	s.res.Define(id, resource, current, minimum, maximum)
}

// ResourceValue возвращает текущее значение ресурса.
func (s *Service) ResourceValue(id domain.EntityID, resource string) int {
	return s.res.GetCurrentValue(id, resource)
}

// AvailableActions возвращает действия, доступные сущности прямо сейчас.
func (s *Service) AvailableActions(id domain.EntityID, opts *discovery.Options) (discovery.Result, error) {
	e, ok := s.GetEntity(id)
	if !ok {
		return discovery.Result{}, fmt.Errorf("entity %q not found", id)
	}
	return s.pipeline.DiscoverActions(e, s.modes.Mode(), s.Entities(), s.tileMap, opts), nil
}

// QueryActions - разовый фильтрованный запрос без кэширования результата.
func (s *Service) QueryActions(id domain.EntityID, q domain.ActionQuery) ([]domain.Action, error) {
	e, ok := s.GetEntity(id)
	if !ok {
		return nil, fmt.Errorf("entity %q not found", id)
	}
	return s.pipeline.QueryActions(e, s.modes.Mode(), s.Entities(), s.tileMap, q), nil
}

// PerformAction исполняет действие из текущей выдачи discovery.
// Действие, которого нет в выдаче, исполнить нельзя: выдача и есть
// контракт того, что сущности доступно.
func (s *Service) PerformAction(performerID domain.EntityID, actionID string, targetID domain.EntityID) (execution.Result, error) {
	performer, ok := s.GetEntity(performerID)
	if !ok {
		return execution.Result{}, fmt.Errorf("entity %q not found", performerID)
	}

	var target *domain.Entity
	if targetID != "" {
		target, ok = s.GetEntity(targetID)
		if !ok {
			return execution.Result{}, fmt.Errorf("target %q not found", targetID)
		}
	}

	discovered := s.pipeline.DiscoverActions(performer, s.modes.Mode(), s.Entities(), s.tileMap, nil)
	var action *domain.Action
	for i := range discovered.Actions {
		if discovered.Actions[i].ID == actionID {
			action = &discovered.Actions[i]
			break
		}
	}
	if action == nil {
		return execution.Result{
			Success: false,
			Message: fmt.Sprintf("Действие %s сейчас недоступно.", actionID),
		}, nil
	}

	// В бою экономика хода гейтит действие до исполнения
	inCombat := s.modes.Mode() == domain.ModeCombat
	if inCombat {
		if current, ok := s.turns.CurrentEntity(); !ok || current != performerID {
			return execution.Result{Success: false, Message: "Сейчас не ваш ход."}, nil
		}
		if msg := s.checkEconomy(performerID, *action); msg != "" {
			return execution.Result{Success: false, Message: msg}, nil
		}
	}

	result := s.executor.ExecuteAction(*action, performer, target, discovered.Context, s.tileMap)

	if result.Success && inCombat {
		s.consumeEconomy(performerID, *action)
		if reason, ended := s.modes.CheckCombatEndConditions(); ended {
			s.modes.EndCombat(reason)
		}
	}
	return result, nil
}

// MoveEntity перемещает сущность на соседнюю клетку. После хода игрока
// проверяются триггеры боя.
func (s *Service) MoveEntity(id domain.EntityID, dx, dy int) error {
	e, ok := s.GetEntity(id)
	if !ok {
		return fmt.Errorf("entity %q not found", id)
	}
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 || (dx == 0 && dy == 0) {
		return fmt.Errorf("move must be a single step, got (%d,%d)", dx, dy)
	}

	dest := e.Pos.Shift(dx, dy)
	if !s.tileMap.GetTile(dest.X, dest.Y).Walkable {
		return fmt.Errorf("tile (%d,%d) is not walkable", dest.X, dest.Y)
	}
	for _, other := range s.Entities() {
		if other.ID != id && other.Pos == dest && (other.Stats == nil || !other.Stats.IsDead) {
			return fmt.Errorf("tile (%d,%d) is occupied by %q", dest.X, dest.Y, other.ID)
		}
	}

	if s.modes.Mode() == domain.ModeCombat {
		if current, ok := s.turns.CurrentEntity(); !ok || current != id {
			return fmt.Errorf("not %q's turn", id)
		}
		if !s.turns.ConsumeMovement(id, 1) {
			return fmt.Errorf("no movement left for %q", id)
		}
	}

	from := e.Pos
	e.Pos = dest
	s.bus.Emit(events.EntityMoved, map[string]any{
		"entityId": string(id),
		"fromX":    from.X, "fromY": from.Y,
		"toX": dest.X, "toY": dest.Y,
	})

	if s.modes.Mode() != domain.ModeCombat {
		if player, ok := s.Player(); ok {
			s.modes.CheckForCombatTriggers(player)
		}
	}
	return nil
}

// EndTurn закрывает ход участника. Чужой ход закрыть нельзя.
func (s *Service) EndTurn(id domain.EntityID) error {
	if s.modes.Mode() != domain.ModeCombat {
		return fmt.Errorf("not in combat")
	}
	if current, ok := s.turns.CurrentEntity(); !ok || current != id {
		return fmt.Errorf("not %q's turn", id)
	}
	s.turns.EndCurrentTurn()
	return nil
}

// ForceMode жестко переключает режим (отладка, скриптованные сцены).
func (s *Service) ForceMode(mode domain.GameMode) {
	s.modes.ForceMode(mode)
}

// checkEconomy проверяет, хватает ли экономики хода на стоимости действия.
func (s *Service) checkEconomy(id domain.EntityID, action domain.Action) string {
	snap, ok := s.turns.EconomySnapshot(id)
	if !ok {
		return "Вы не участвуете в бою."
	}
	for _, cost := range action.Costs {
		switch cost.Type {
		case domain.CostActionPoint:
			if snap.ActionsRemaining <= 0 {
				return "Не осталось действий в этом ходу."
			}
		case domain.CostMovement:
			if snap.MovementRemaining < costAmount(cost) {
				return "Не осталось перемещения в этом ходу."
			}
		}
	}
	return ""
}

// consumeEconomy списывает экономику хода после успешного исполнения.
func (s *Service) consumeEconomy(id domain.EntityID, action domain.Action) {
	for _, cost := range action.Costs {
		switch cost.Type {
		case domain.CostActionPoint:
			s.turns.ConsumeAction(id, combat.ActionKindAction)
		case domain.CostMovement:
			s.turns.ConsumeMovement(id, costAmount(cost))
		}
	}
}

func costAmount(cost domain.Cost) int {
	if n, err := strconv.Atoi(cost.Amount); err == nil {
		return n
	}
	return 1
}
