package combat

import (
	"os"
	"reflect"
	"testing"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// scriptInitiative выдает броски d20 из очереди в порядке вызовов.
type scriptInitiative struct {
	rolls []int
}

func (s *scriptInitiative) RollInitiative(dexModifier int) (int, int) {
	roll := 10
	if len(s.rolls) > 0 {
		roll = s.rolls[0]
		s.rolls = s.rolls[1:]
	}
	return roll + dexModifier, roll
}

func fighter(id string, dex int, hostile bool) *domain.Entity {
	return &domain.Entity{
		ID:   domain.EntityID(id),
		Name: id,
		Type: domain.EntityTypeEnemy,
		Stats: &domain.StatsComponent{
			Strength: 10, Dexterity: dex, Constitution: 10,
			Intelligence: 10, Wisdom: 10, Charisma: 10,
			ArmorClass: 12,
		},
		AI: &domain.AIComponent{IsHostile: hostile},
	}
}

func TestInitiativeOrdering(t *testing.T) {
	bus := events.NewBus()
	// A: dex 10 (мод 0), бросок 15 -> 15; B: dex 14 (мод +2), бросок 10 -> 12
	m := NewTurnOrderManager(bus, &scriptInitiative{rolls: []int{15, 10}}, nil)
	m.StartCombat([]*domain.Entity{fighter("a", 10, false), fighter("b", 14, true)})

	want := []domain.EntityID{"a", "b"}
	if got := m.Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("Turn order: got %v, want %v", got, want)
	}
	if m.Round() != 1 {
		t.Errorf("Round: got %d, want 1", m.Round())
	}
	if current, _ := m.CurrentEntity(); current != "a" {
		t.Errorf("Current entity: got %q, want a", current)
	}
}

func TestInitiativeTieBreaksById(t *testing.T) {
	bus := events.NewBus()
	m := NewTurnOrderManager(bus, &scriptInitiative{rolls: []int{12, 12, 12}}, nil)
	m.StartCombat([]*domain.Entity{fighter("zeta", 10, true), fighter("alpha", 10, true), fighter("mid", 10, true)})

	want := []domain.EntityID{"alpha", "mid", "zeta"}
	if got := m.Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tied initiative order: got %v, want %v", got, want)
	}
}

func TestTurnRotationAdvancesRounds(t *testing.T) {
	bus := events.NewBus()
	m := NewTurnOrderManager(bus, &scriptInitiative{rolls: []int{18, 14, 10}}, nil)

	var started, ended []string
	bus.Subscribe(events.TurnStarted, func(ev events.Event) {
		started = append(started, ev.Payload["entityId"].(string))
	})
	bus.Subscribe(events.TurnEnded, func(ev events.Event) {
		ended = append(ended, ev.Payload["entityId"].(string))
	})

	m.StartCombat([]*domain.Entity{fighter("a", 10, false), fighter("b", 10, true), fighter("c", 10, true)})

	// Полный круг
	m.EndCurrentTurn()
	m.EndCurrentTurn()
	m.EndCurrentTurn()

	if m.Round() != 2 {
		t.Errorf("Round after full rotation: got %d, want 2", m.Round())
	}
	if current, _ := m.CurrentEntity(); current != "a" {
		t.Errorf("Current after full rotation: got %q, want a", current)
	}
	wantStarted := []string{"a", "b", "c", "a"}
	if !reflect.DeepEqual(started, wantStarted) {
		t.Errorf("TurnStarted sequence: got %v, want %v", started, wantStarted)
	}
	wantEnded := []string{"a", "b", "c"}
	if !reflect.DeepEqual(ended, wantEnded) {
		t.Errorf("TurnEnded sequence: got %v, want %v", ended, wantEnded)
	}
}

func TestEconomyConsumptionAndReset(t *testing.T) {
	bus := events.NewBus()
	m := NewTurnOrderManager(bus, &scriptInitiative{rolls: []int{15, 10}}, nil)
	m.StartCombat([]*domain.Entity{fighter("a", 10, false), fighter("b", 10, true)})

	if !m.ConsumeAction("a", ActionKindAction) {
		t.Fatal("First action must be available")
	}
	if m.ConsumeAction("a", ActionKindAction) {
		t.Error("Second action must be denied")
	}
	if !m.ConsumeAction("a", ActionKindBonus) || m.ConsumeAction("a", ActionKindBonus) {
		t.Error("Exactly one bonus action per turn")
	}
	if !m.ConsumeAction("a", ActionKindReaction) || m.ConsumeAction("a", ActionKindReaction) {
		t.Error("Exactly one reaction per turn")
	}
	if !m.ConsumeMovement("a", 4) {
		t.Error("4 of 6 movement must be available")
	}
	if m.ConsumeMovement("a", 3) {
		t.Error("3 more movement must be denied after spending 4")
	}

	snap, ok := m.EconomySnapshot("a")
	if !ok || snap.ActionsRemaining != 0 || snap.MovementRemaining != 2 || !snap.ReactionUsed {
		t.Errorf("Economy snapshot: %+v", snap)
	}

	// Круг ходов восстанавливает экономику
	m.EndCurrentTurn()
	m.EndCurrentTurn()
	if !m.ConsumeAction("a", ActionKindAction) {
		t.Error("Action must be restored on new turn")
	}
}

func TestRemoveParticipantKeepsCurrentStable(t *testing.T) {
	bus := events.NewBus()
	m := NewTurnOrderManager(bus, &scriptInitiative{rolls: []int{18, 14, 10}}, nil)
	m.StartCombat([]*domain.Entity{fighter("a", 10, false), fighter("b", 10, true), fighter("c", 10, true)})

	m.EndCurrentTurn() // ход b
	m.RemoveParticipant("a")

	if current, _ := m.CurrentEntity(); current != "b" {
		t.Errorf("Current after removing earlier participant: got %q, want b", current)
	}
	want := []domain.EntityID{"b", "c"}
	if got := m.Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("Order after removal: got %v, want %v", got, want)
	}
}

func TestRemoveCurrentParticipantAdvancesTurn(t *testing.T) {
	bus := events.NewBus()
	m := NewTurnOrderManager(bus, &scriptInitiative{rolls: []int{18, 14, 10}}, nil)
	m.StartCombat([]*domain.Entity{fighter("a", 10, false), fighter("b", 10, true), fighter("c", 10, true)})

	m.EndCurrentTurn() // ход b
	m.RemoveParticipant("b")

	if current, _ := m.CurrentEntity(); current != "c" {
		t.Errorf("Current after removing current: got %q, want c", current)
	}
	if m.Round() != 1 {
		t.Errorf("Round: got %d, want 1", m.Round())
	}

	// Удаление последнего в списке на его ходу заворачивает круг
	m.RemoveParticipant("c")
	if current, _ := m.CurrentEntity(); current != "a" {
		t.Errorf("Current after wrap: got %q, want a", current)
	}
	if m.Round() != 2 {
		t.Errorf("Round after wrap: got %d, want 2", m.Round())
	}
}

func TestEntityDiedRemovesFromOrder(t *testing.T) {
	bus := events.NewBus()
	m := NewTurnOrderManager(bus, &scriptInitiative{rolls: []int{18, 10}}, nil)
	m.StartCombat([]*domain.Entity{fighter("hero", 10, false), fighter("goblin", 10, true)})

	bus.Emit(events.EntityDied, map[string]any{"entityId": "goblin"})

	want := []domain.EntityID{"hero"}
	if got := m.Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("Order after death event: got %v, want %v", got, want)
	}
}

func TestStartCombatMisuseIsNoop(t *testing.T) {
	bus := events.NewBus()
	m := NewTurnOrderManager(bus, &scriptInitiative{rolls: []int{18, 10, 5}}, nil)
	m.StartCombat([]*domain.Entity{fighter("a", 10, false), fighter("b", 10, true)})

	// Повторный старт игнорируется
	m.StartCombat([]*domain.Entity{fighter("c", 10, true)})
	want := []domain.EntityID{"a", "b"}
	if got := m.Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("Order after duplicate StartCombat: got %v, want %v", got, want)
	}

	// EndCombat без боя - no-op
	m.EndCombat()
	m.EndCombat()
	if m.IsActive() {
		t.Error("Combat must be inactive after EndCombat")
	}
}
