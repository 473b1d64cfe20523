package combat

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/internal/resources"
	"github.com/smaran-m/roguelike-agent-sub001/internal/world"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Первичный ресурс жизни: его пол означает смерть участника.
const primaryResource = "hp"

// Причины завершения боя.
const (
	EndAllParticipantsDead = "all_participants_dead"
	EndAllEnemiesDefeated  = "all_enemies_defeated"
)

// ModeConfig - параметры обнаружения боя.
type ModeConfig struct {
	// DetectionRadius - радиус набора участников при старте боя.
	DetectionRadius float64
	// TriggerRadius - дистанция, на которой враг провоцирует бой.
	TriggerRadius float64
	// RequireLOS - требовать ли прямую видимость для провокации.
	RequireLOS bool
}

func (c *ModeConfig) fillDefaults() {
	if c.DetectionRadius <= 0 {
		c.DetectionRadius = 10
	}
	if c.TriggerRadius <= 0 {
		c.TriggerRadius = 6
	}
}

// EntityLister отдает текущий список живых сущностей мира.
// Реестр сущностей принадлежит внешнему слою, менеджер только читает.
type EntityLister func() []*domain.Entity

// GameModeManager переключает режимы игры (исследование <-> бой),
// обнаруживает провокацию боя и следит за условиями его окончания.
type GameModeManager struct {
	bus      *events.Bus
	turn     *TurnOrderManager
	tileMap  *world.TileMap
	entities EntityLister
	res      *resources.Manager
	cfg      ModeConfig

	mode          domain.GameMode
	previousMode  domain.GameMode
	modeStartTime time.Time

	// now подменяется в тестах.
	now func() time.Time
}

// NewGameModeManager создает менеджер в режиме исследования.
func NewGameModeManager(bus *events.Bus, turn *TurnOrderManager, tileMap *world.TileMap, entities EntityLister, res *resources.Manager, cfg ModeConfig) *GameModeManager {
	cfg.fillDefaults()
	return &GameModeManager{
		bus:           bus,
		turn:          turn,
		tileMap:       tileMap,
		entities:      entities,
		res:           res,
		cfg:           cfg,
		mode:          domain.ModeExploration,
		previousMode:  domain.ModeExploration,
		modeStartTime: time.Now(),
		now:           time.Now,
	}
}

// Mode возвращает текущий режим игры.
func (g *GameModeManager) Mode() domain.GameMode { return g.mode }

// PreviousMode возвращает режим, действовавший до текущего.
func (g *GameModeManager) PreviousMode() domain.GameMode { return g.previousMode }

// ModeStartTime возвращает момент входа в текущий режим.
func (g *GameModeManager) ModeStartTime() time.Time { return g.modeStartTime }

// CheckForCombatTriggers ищет врага, провоцирующего бой: живой, враждебный,
// в пределах TriggerRadius от игрока, с прямой видимостью (если требуется).
// Первый найденный запускает бой. Вызывается после каждого перемещения.
func (g *GameModeManager) CheckForCombatTriggers(player *domain.Entity) bool {
	if g.mode == domain.ModeCombat || player == nil {
		return false
	}

	for _, e := range g.entities() {
		if !isLivingHostile(e) {
			continue
		}
		dist := player.Pos.DistanceTo(e.Pos)
		if dist > g.cfg.DetectionRadius || dist > g.cfg.TriggerRadius {
			continue
		}
		if g.cfg.RequireLOS && !world.HasLineOfSight(g.tileMap, player.Pos, e.Pos) {
			continue
		}
		g.TriggerCombat(player, e)
		return true
	}
	return false
}

// TriggerCombat начинает бой: игрок, провокатор и все живые враги в
// TriggerRadius, видящие игрока либо провокатора.
func (g *GameModeManager) TriggerCombat(player, trigger *domain.Entity) {
	if g.mode == domain.ModeCombat {
		return
	}

	participants := []*domain.Entity{player, trigger}
	for _, e := range g.entities() {
		if !isLivingHostile(e) || e.ID == trigger.ID {
			continue
		}
		if player.Pos.DistanceTo(e.Pos) > g.cfg.TriggerRadius {
			continue
		}
		if world.HasLineOfSight(g.tileMap, e.Pos, player.Pos) ||
			world.HasLineOfSight(g.tileMap, e.Pos, trigger.Pos) {
			participants = append(participants, e)
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"component":    "combat",
		"trigger_id":   trigger.ID,
		"participants": len(participants),
	}).Info("Combat triggered.")

	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = string(p.ID)
	}
	g.bus.Emit(events.CombatTriggered, map[string]any{
		"triggerId": string(trigger.ID), "playerId": string(player.ID),
		"participants": ids,
	})

	g.setMode(domain.ModeCombat, "combat_triggered")
	g.turn.StartCombat(participants)
}

// CheckCombatEndConditions оценивает, пора ли заканчивать бой.
// Возвращает причину и true, если бой должен завершиться.
// Бегство игрока из зоны боя пока не отслеживается: нет события выхода
// за границу встречи.
func (g *GameModeManager) CheckCombatEndConditions() (string, bool) {
	if g.mode != domain.ModeCombat || !g.turn.IsActive() {
		return "", false
	}

	// Условия считаются по первичному ресурсу, а не по флагу смерти:
	// hp может упасть до пола и обычным resourceOp-эффектом.
	byID := make(map[domain.EntityID]*domain.Entity)
	for _, e := range g.entities() {
		byID[e.ID] = e
	}

	var livingPlayers, livingEnemies int
	for _, id := range g.turn.Order() {
		e, ok := byID[id]
		if !ok {
			continue
		}
		if e.IsPlayer() {
			if !g.res.IsAtMinimum(id, primaryResource) {
				livingPlayers++
			}
			continue
		}
		if g.res.GetCurrentValue(id, primaryResource) > 0 {
			livingEnemies++
		}
	}

	if livingPlayers == 0 {
		return EndAllParticipantsDead, true
	}
	if livingEnemies == 0 {
		return EndAllEnemiesDefeated, true
	}
	return "", false
}

// EndCombat завершает бой с указанием причины и возвращает игру
// в режим исследования.
func (g *GameModeManager) EndCombat(reason string) {
	if g.mode != domain.ModeCombat {
		logger.Log.WithField("component", "combat").
			Warn("EndCombat outside of combat mode, ignoring.")
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "combat",
		"reason":    reason,
		"rounds":    g.turn.Round(),
	}).Info("Combat ended.")

	g.turn.EndCombat()
	g.bus.Emit(events.CombatEnded, map[string]any{"reason": reason})
	g.setMode(domain.ModeExploration, reason)
}

// ForceMode жестко переключает режим, минуя триггеры. Для отладки
// и скриптованных сцен.
func (g *GameModeManager) ForceMode(mode domain.GameMode) {
	if mode == g.mode {
		return
	}
	if g.mode == domain.ModeCombat && g.turn.IsActive() {
		g.turn.EndCombat()
	}
	g.setMode(mode, "forced")
}

func (g *GameModeManager) setMode(mode domain.GameMode, reason string) {
	g.previousMode = g.mode
	g.mode = mode
	g.modeStartTime = g.now()
	g.bus.Emit(events.GameModeChanged, map[string]any{
		"previous": g.previousMode.String(),
		"current":  mode.String(),
		"reason":   reason,
	})
}

func isLivingHostile(e *domain.Entity) bool {
	if e == nil || !e.IsHostile() {
		return false
	}
	return e.Stats == nil || !e.Stats.IsDead
}
