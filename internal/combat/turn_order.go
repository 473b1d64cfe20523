// Package combat управляет боевым состоянием: порядок ходов по инициативе,
// экономика действий, переключение игровых режимов.
package combat

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/internal/observe"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Экономика хода по умолчанию.
const (
	defaultActions      = 1
	defaultBonusActions = 1
	defaultMovement     = 6
)

// Виды расходуемых действий внутри хода.
const (
	ActionKindAction   = "action"
	ActionKindBonus    = "bonus"
	ActionKindReaction = "reaction"
)

// InitiativeRoller - срез дайс-механики для инициативы.
// Возвращает (итог, чистый бросок d20).
type InitiativeRoller interface {
	RollInitiative(dexModifier int) (int, int)
}

type participant struct {
	id         domain.EntityID
	initiative int
	roll       int // чистый d20, для логов
}

// TurnOrderManager держит порядок ходов и экономику действий каждого
// участника. Однопоточный, как и вся игровая петля.
type TurnOrderManager struct {
	bus     *events.Bus
	roller  InitiativeRoller
	metrics *observe.Metrics

	active       bool
	round        int
	currentIndex int
	startedAt    time.Time
	order        []participant
	economy      map[domain.EntityID]*domain.CombatSnapshot
}

// NewTurnOrderManager создает менеджер и подписывает его на смерти сущностей:
// умерший участник выбывает из порядка ходов немедленно.
func NewTurnOrderManager(bus *events.Bus, roller InitiativeRoller, metrics *observe.Metrics) *TurnOrderManager {
	m := &TurnOrderManager{
		bus:     bus,
		roller:  roller,
		metrics: metrics,
		economy: make(map[domain.EntityID]*domain.CombatSnapshot),
	}
	bus.Subscribe(events.EntityDied, func(ev events.Event) {
		id, _ := ev.Payload["entityId"].(string)
		m.RemoveParticipant(domain.EntityID(id))
	})
	return m
}

// IsActive сообщает, идет ли бой.
func (m *TurnOrderManager) IsActive() bool { return m.active }

// Round возвращает номер текущего раунда (с 1).
func (m *TurnOrderManager) Round() int { return m.round }

// CombatStartTime возвращает момент начала боя; нулевое время вне боя.
func (m *TurnOrderManager) CombatStartTime() time.Time { return m.startedAt }

// Order возвращает порядок ходов текущего боя.
func (m *TurnOrderManager) Order() []domain.EntityID {
	out := make([]domain.EntityID, len(m.order))
	for i, p := range m.order {
		out[i] = p.id
	}
	return out
}

// CurrentEntity возвращает участника, чей сейчас ход.
func (m *TurnOrderManager) CurrentEntity() (domain.EntityID, bool) {
	if !m.active || len(m.order) == 0 {
		return "", false
	}
	return m.order[m.currentIndex].id, true
}

// StartCombat бросает инициативу всем участникам и открывает раунд 1.
// Порядок: инициатива по убыванию, равные - по идентификатору. Повторный
// вызов при активном бое - no-op с предупреждением.
func (m *TurnOrderManager) StartCombat(participants []*domain.Entity) {
	if m.active {
		logger.Log.WithField("component", "combat").
			Warn("StartCombat while combat already active, ignoring.")
		return
	}
	if len(participants) == 0 {
		logger.Log.WithField("component", "combat").
			Warn("StartCombat with no participants, ignoring.")
		return
	}

	m.order = m.order[:0]
	for _, e := range participants {
		dexMod := 0
		if e.Stats != nil {
			dexMod = e.Stats.DexterityModifier()
		}
		total, roll := m.roller.RollInitiative(dexMod)
		m.order = append(m.order, participant{id: e.ID, initiative: total, roll: roll})
		m.economy[e.ID] = freshEconomy()
	}

	sort.SliceStable(m.order, func(i, j int) bool {
		if m.order[i].initiative != m.order[j].initiative {
			return m.order[i].initiative > m.order[j].initiative
		}
		return m.order[i].id < m.order[j].id
	})

	m.active = true
	m.round = 1
	m.currentIndex = 0
	m.startedAt = time.Now()
	m.metrics.AddParticipants(context.Background(), int64(len(m.order)))

	logger.Log.WithFields(logrus.Fields{
		"component":    "combat",
		"participants": len(m.order),
		"first":        m.order[0].id,
	}).Info("Combat started.")

	m.bus.Emit(events.CombatStarted, map[string]any{
		"order": m.orderStrings(), "round": m.round,
	})
	m.bus.Emit(events.TurnStarted, map[string]any{
		"entityId": string(m.order[0].id), "round": m.round,
	})
}

// EndCombat сбрасывает боевое состояние. CombatEnded публикует менеджер
// режимов: у него есть причина завершения, у нас нет.
func (m *TurnOrderManager) EndCombat() {
	if !m.active {
		logger.Log.WithField("component", "combat").
			Warn("EndCombat without active combat, ignoring.")
		return
	}
	m.metrics.AddParticipants(context.Background(), -int64(len(m.order)))
	m.active = false
	m.round = 0
	m.currentIndex = 0
	m.startedAt = time.Time{}
	m.order = nil
	m.economy = make(map[domain.EntityID]*domain.CombatSnapshot)
}

// EndCurrentTurn закрывает ход текущего участника и открывает следующий.
// Обход по кругу: после последнего участника раунд увеличивается.
func (m *TurnOrderManager) EndCurrentTurn() {
	if !m.active || len(m.order) == 0 {
		return
	}

	current := m.order[m.currentIndex].id
	m.bus.Emit(events.TurnEnded, map[string]any{
		"entityId": string(current), "round": m.round,
	})

	m.currentIndex++
	if m.currentIndex >= len(m.order) {
		m.currentIndex = 0
		m.round++
		m.metrics.RecordRound(context.Background())
	}
	m.startTurn()
}

// startTurn восстанавливает экономику нового текущего участника и
// публикует TurnStarted.
func (m *TurnOrderManager) startTurn() {
	next := m.order[m.currentIndex].id
	m.economy[next] = freshEconomy()
	m.bus.Emit(events.TurnStarted, map[string]any{
		"entityId": string(next), "round": m.round,
	})
}

// RemoveParticipant выбрасывает участника из порядка ходов (смерть,
// бегство). Индекс текущего хода сохраняет смысл: если выбыл кто-то до
// текущего, индекс сдвигается; если выбыл сам текущий, ход переходит
// к следующему.
func (m *TurnOrderManager) RemoveParticipant(id domain.EntityID) {
	if !m.active {
		return
	}
	idx := -1
	for i, p := range m.order {
		if p.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	wasCurrent := idx == m.currentIndex
	m.order = append(m.order[:idx], m.order[idx+1:]...)
	delete(m.economy, id)
	m.metrics.AddParticipants(context.Background(), -1)

	logger.Log.WithFields(logrus.Fields{
		"component": "combat",
		"entity_id": id,
		"remaining": len(m.order),
	}).Info("Participant removed from turn order.")

	if len(m.order) == 0 {
		m.EndCombat()
		return
	}

	if idx < m.currentIndex {
		m.currentIndex--
		return
	}
	if wasCurrent {
		// После среза currentIndex уже указывает на следующего
		if m.currentIndex >= len(m.order) {
			m.currentIndex = 0
			m.round++
			m.metrics.RecordRound(context.Background())
		}
		m.startTurn()
	}
}

// ConsumeAction расходует действие вида kind у участника.
// false - лимит исчерпан или участник не в бою.
func (m *TurnOrderManager) ConsumeAction(id domain.EntityID, kind string) bool {
	eco, ok := m.economy[id]
	if !ok {
		return false
	}
	switch kind {
	case ActionKindAction:
		if eco.ActionsRemaining <= 0 {
			return false
		}
		eco.ActionsRemaining--
	case ActionKindBonus:
		if eco.BonusActionsRemaining <= 0 {
			return false
		}
		eco.BonusActionsRemaining--
	case ActionKindReaction:
		if eco.ReactionUsed {
			return false
		}
		eco.ReactionUsed = true
	default:
		logger.Log.WithFields(logrus.Fields{
			"component": "combat", "kind": kind,
		}).Warn("Unknown action kind.")
		return false
	}
	return true
}

// ConsumeMovement расходует очки перемещения. false - не хватает.
func (m *TurnOrderManager) ConsumeMovement(id domain.EntityID, amount int) bool {
	eco, ok := m.economy[id]
	if !ok || eco.MovementRemaining < amount {
		return false
	}
	eco.MovementRemaining -= amount
	return true
}

// EconomySnapshot возвращает копию экономики участника. Реализация
// интерфейса поставщика экономики для пайплайна обнаружения действий.
func (m *TurnOrderManager) EconomySnapshot(id domain.EntityID) (*domain.CombatSnapshot, bool) {
	eco, ok := m.economy[id]
	if !ok {
		return nil, false
	}
	cp := *eco
	return &cp, true
}

func (m *TurnOrderManager) orderStrings() []string {
	out := make([]string, len(m.order))
	for i, p := range m.order {
		out[i] = string(p.id)
	}
	return out
}

func freshEconomy() *domain.CombatSnapshot {
	return &domain.CombatSnapshot{
		ActionsRemaining:      defaultActions,
		BonusActionsRemaining: defaultBonusActions,
		ReactionUsed:          false,
		MovementRemaining:     defaultMovement,
	}
}
