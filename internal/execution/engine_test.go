package execution

import (
	"os"
	"strings"
	"testing"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/internal/resources"
	"github.com/smaran-m/roguelike-agent-sub001/internal/world"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/dice"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// stubRoller возвращает заранее заданные броски: d20 из очереди,
// урон и нотации - фиксированным числом.
type stubRoller struct {
	d20Queue  []int
	diceTotal int
}

func (s *stubRoller) nextD20() int {
	if len(s.d20Queue) == 0 {
		return 10
	}
	roll := s.d20Queue[0]
	s.d20Queue = s.d20Queue[1:]
	return roll
}

func (s *stubRoller) RollDie(sides int) int {
	if sides == 20 {
		return s.nextD20()
	}
	return 1
}

func (s *stubRoller) RollDice(notation string) dice.RollResult {
	return dice.RollResult{Notation: notation, Rolls: []int{s.diceTotal}, Total: s.diceTotal}
}

func (s *stubRoller) RollAttack(modifier int) dice.AttackRoll {
	roll := s.nextD20()
	return dice.AttackRoll{
		Roll:            roll,
		Modifier:        modifier,
		Total:           roll + modifier,
		Critical:        roll == 20,
		CriticalFailure: roll == 1,
	}
}

func (s *stubRoller) RollDamage(notation string, modifier int, critical bool, policy dice.CritPolicy) dice.DamageRoll {
	total := s.diceTotal
	if critical {
		total *= 2
	}
	return dice.DamageRoll{Notation: notation, Modifier: modifier, Critical: critical, Total: total + modifier}
}

func newTestEngine(roller Roller) (*Engine, *events.Bus, *resources.Manager) {
	bus := events.NewBus()
	res := resources.NewManager()
	engine := NewEngine(roller, bus, res, world.DefaultConfig(), nil, dice.CritDoubleDice)
	return engine, bus, res
}

func newFighter(id string, x, y, ac int, hostile bool) *domain.Entity {
	return &domain.Entity{
		ID:   domain.EntityID(id),
		Name: id,
		Type: domain.EntityTypeEnemy,
		Pos:  domain.Position{X: x, Y: y},
		Stats: &domain.StatsComponent{
			Strength: 14, Dexterity: 10, Constitution: 12,
			Intelligence: 10, Wisdom: 10, Charisma: 10,
			ArmorClass: ac,
		},
		AI: &domain.AIComponent{IsHostile: hostile},
	}
}

func attackAction() domain.Action {
	return domain.Action{
		ID:       "strike",
		Name:     "Удар",
		Category: domain.CategoryAttack,
		Effects: []domain.Effect{{
			Type:   domain.EffectDamage,
			Target: domain.TargetTarget,
			Params: map[string]any{
				"amount":     "1d6",
				"damageType": "slashing",
				"ability":    "strength",
				"attackRoll": true,
			},
		}},
		Targeting: domain.Targeting{Kind: "single", Range: 1, RequiresLOS: true},
	}
}

func TestExecuteActionHitDealsDamage(t *testing.T) {
	roller := &stubRoller{d20Queue: []int{15}, diceTotal: 4}
	engine, bus, res := newTestEngine(roller)

	performer := newFighter("hero", 2, 2, 15, false)
	target := newFighter("goblin", 3, 2, 12, true)
	res.Define(target.ID, "hp", 10, 0, 10)

	var dealt int
	bus.Subscribe(events.DamageDealt, func(ev events.Event) {
		dealt = ev.Payload["damage"].(int)
	})

	result := engine.ExecuteAction(attackAction(), performer, target, nil, nil)
	if !result.Success {
		t.Fatalf("Expected success, got failure: %s", result.Message)
	}
	// 1d6 (stub 4) + модификатор силы +2
	if dealt != 6 {
		t.Errorf("Damage dealt: got %d, want 6", dealt)
	}
	if got := res.GetCurrentValue(target.ID, "hp"); got != 4 {
		t.Errorf("Target hp: got %d, want 4", got)
	}
	if result.TargetKilled {
		t.Error("Target should survive 6 damage with 10 hp")
	}
}

func TestExecuteActionMissLeavesTargetIntact(t *testing.T) {
	roller := &stubRoller{d20Queue: []int{2}, diceTotal: 4}
	engine, _, res := newTestEngine(roller)

	performer := newFighter("hero", 2, 2, 15, false)
	target := newFighter("goblin", 3, 2, 18, true)
	res.Define(target.ID, "hp", 10, 0, 10)

	result := engine.ExecuteAction(attackAction(), performer, target, nil, nil)
	if !result.Success {
		t.Fatalf("Miss is still a successful execution: %s", result.Message)
	}
	if !strings.Contains(result.Message, "промахивается") {
		t.Errorf("Expected miss message, got %q", result.Message)
	}
	if got := res.GetCurrentValue(target.ID, "hp"); got != 10 {
		t.Errorf("Target hp after miss: got %d, want 10", got)
	}
}

func TestExecuteActionKillPublishesDeathEvents(t *testing.T) {
	roller := &stubRoller{d20Queue: []int{15}, diceTotal: 4}
	engine, bus, res := newTestEngine(roller)

	performer := newFighter("hero", 2, 2, 15, false)
	target := newFighter("goblin", 3, 2, 10, true)
	res.Define(target.ID, "hp", 3, 0, 10)

	var died, enemyDied bool
	bus.Subscribe(events.EntityDied, func(ev events.Event) { died = true })
	bus.Subscribe(events.EnemyDied, func(ev events.Event) { enemyDied = true })

	result := engine.ExecuteAction(attackAction(), performer, target, nil, nil)
	if !result.TargetKilled {
		t.Fatal("Expected TargetKilled")
	}
	if result.TargetID != target.ID {
		t.Errorf("TargetID: got %q, want %q", result.TargetID, target.ID)
	}
	if !died || !enemyDied ||
		target.Stats == nil || !target.Stats.IsDead {
		t.Errorf("Death bookkeeping incomplete: died=%v enemyDied=%v isDead=%v",
			died, enemyDied, target.Stats.IsDead)
	}
}

func TestExecuteActionCriticalDoublesDice(t *testing.T) {
	roller := &stubRoller{d20Queue: []int{20}, diceTotal: 4}
	engine, _, res := newTestEngine(roller)

	performer := newFighter("hero", 2, 2, 15, false)
	target := newFighter("ogre", 3, 2, 30, true) // AC выше total, но нат. 20 всегда попадает
	res.Define(target.ID, "hp", 20, 0, 20)

	result := engine.ExecuteAction(attackAction(), performer, target, nil, nil)
	if !strings.Contains(result.Message, "Критический") {
		t.Errorf("Expected critical message, got %q", result.Message)
	}
	// stub: 4*2 + сила +2 = 10
	if got := res.GetCurrentValue(target.ID, "hp"); got != 10 {
		t.Errorf("Target hp after crit: got %d, want 10", got)
	}
}

func TestDamageToAlternateResourceKills(t *testing.T) {
	// Урон может бить и по другому ресурсу; его пол - тоже смерть цели
	roller := &stubRoller{diceTotal: 5}
	engine, bus, res := newTestEngine(roller)

	performer := newFighter("witch", 2, 2, 12, false)
	target := newFighter("knight", 3, 2, 14, true)
	res.Define(target.ID, "sanity", 4, 0, 10)

	var died bool
	bus.Subscribe(events.EntityDied, func(ev events.Event) { died = true })

	action := domain.Action{
		ID: "mind_blast", Name: "Помутнение", Category: domain.CategoryMagic,
		Effects: []domain.Effect{{
			Type:   domain.EffectDamage,
			Target: domain.TargetTarget,
			Params: map[string]any{"amount": "1d6", "resource": "sanity"},
		}},
		Targeting: domain.Targeting{Kind: "single", Range: 6},
	}

	result := engine.ExecuteAction(action, performer, target, nil, nil)
	if !result.TargetKilled || !died {
		t.Errorf("Sanity at floor must kill: killed=%v died=%v", result.TargetKilled, died)
	}
	if got := res.GetCurrentValue(target.ID, "sanity"); got != 0 {
		t.Errorf("Sanity: got %d, want 0", got)
	}
}

func TestResourceCostsAreAtomic(t *testing.T) {
	roller := &stubRoller{}
	engine, _, res := newTestEngine(roller)

	performer := newFighter("mage", 2, 2, 12, false)
	res.Define(performer.ID, "mana", 10, 0, 10)
	res.Define(performer.ID, "stamina", 2, 0, 10)

	action := domain.Action{
		ID:       "ritual",
		Name:     "Ритуал",
		Category: domain.CategoryMagic,
		Costs: []domain.Cost{
			{Type: domain.CostResource, Resource: "mana", Amount: "3"},
			{Type: domain.CostResource, Resource: "stamina", Amount: "5"},
		},
		Effects: []domain.Effect{{
			Type:   domain.EffectStatusEffect,
			Target: domain.TargetSelf,
			Params: map[string]any{"status": "Ritual"},
		}},
	}

	result := engine.ExecuteAction(action, performer, nil, nil, nil)
	if result.Success {
		t.Fatal("Expected failure on insufficient stamina")
	}
	// Первая стоимость проверена раньше второй, но списаний быть не должно
	if got := res.GetCurrentValue(performer.ID, "mana"); got != 10 {
		t.Errorf("Mana after aborted action: got %d, want 10", got)
	}
	if performer.Statuses != nil && performer.Statuses.Has("Ritual") {
		t.Error("Effect applied despite aborted costs")
	}
}

func TestRangeRequirementMelee(t *testing.T) {
	roller := &stubRoller{d20Queue: []int{15}, diceTotal: 4}
	engine, _, res := newTestEngine(roller)

	performer := newFighter("hero", 2, 2, 15, false)
	target := newFighter("goblin", 5, 2, 12, true)
	res.Define(target.ID, "hp", 10, 0, 10)

	result := engine.ExecuteAction(attackAction(), performer, target, nil, nil)
	if result.Success {
		t.Fatal("Expected out-of-range rejection")
	}
	if !strings.Contains(result.Message, "далеко") {
		t.Errorf("Expected range message, got %q", result.Message)
	}

	// Диагональный сосед - в пределах ближнего боя
	target.Pos = domain.Position{X: 3, Y: 3}
	if result := engine.ExecuteAction(attackAction(), performer, target, nil, nil); !result.Success {
		t.Errorf("Diagonal neighbor should be in melee range: %s", result.Message)
	}
}

func TestUnknownEffectTypeDoesNotStopSiblings(t *testing.T) {
	roller := &stubRoller{}
	engine, _, _ := newTestEngine(roller)

	performer := newFighter("hero", 2, 2, 15, false)
	action := domain.Action{
		ID:       "weird",
		Name:     "Странное",
		Category: domain.CategoryUtility,
		Effects: []domain.Effect{
			{Type: domain.EffectType("wibble"), Target: domain.TargetSelf},
			{Type: domain.EffectStatusEffect, Target: domain.TargetSelf,
				Params: map[string]any{"status": "Focused"}},
		},
	}

	result := engine.ExecuteAction(action, performer, nil, nil, nil)
	if !result.Success {
		t.Fatalf("Execution should continue past unknown effect: %s", result.Message)
	}
	if !strings.Contains(result.Message, "не сработал") {
		t.Errorf("Expected failed-effect message, got %q", result.Message)
	}
	if performer.Statuses == nil || !performer.Statuses.Has("Focused") {
		t.Error("Sibling effect was not applied")
	}
}

func TestPanickingResolverIsIsolated(t *testing.T) {
	roller := &stubRoller{}
	engine, _, _ := newTestEngine(roller)
	engine.RegisterResolver(domain.EffectType("boom"), func(rc *Resolution, effect domain.Effect) (string, error) {
		panic("resolver exploded")
	})

	performer := newFighter("hero", 2, 2, 15, false)
	action := domain.Action{
		ID: "bomb", Name: "Бомба", Category: domain.CategoryUtility,
		Effects: []domain.Effect{{Type: domain.EffectType("boom"), Target: domain.TargetSelf}},
	}

	result := engine.ExecuteAction(action, performer, nil, nil, nil)
	if !result.Success {
		t.Fatalf("Panic must be contained: %s", result.Message)
	}
	if !strings.Contains(result.Message, "не сработал") {
		t.Errorf("Expected failed-effect message, got %q", result.Message)
	}
}

func TestSkillCheckBranches(t *testing.T) {
	action := domain.Action{
		ID: "pick_lock", Name: "Взлом", Category: domain.CategoryUtility,
		Effects: []domain.Effect{{
			Type:   domain.EffectSkillCheck,
			Target: domain.TargetSelf,
			Params: map[string]any{"skill": "thievery", "ability": "dexterity", "dc": 12},
			OnSuccess: []domain.Effect{{
				Type: domain.EffectStatusEffect, Target: domain.TargetSelf,
				Params: map[string]any{"status": "Unlocked"},
			}},
			OnFailure: []domain.Effect{{
				Type: domain.EffectStatusEffect, Target: domain.TargetSelf,
				Params: map[string]any{"status": "Jammed"},
			}},
		}},
	}

	t.Run("success branch", func(t *testing.T) {
		engine, _, _ := newTestEngine(&stubRoller{d20Queue: []int{14}})
		performer := newFighter("rogue", 2, 2, 12, false)
		result := engine.ExecuteAction(action, performer, nil, nil, nil)
		if !result.Success || !performer.Statuses.Has("Unlocked") {
			t.Errorf("Expected success branch, message: %q", result.Message)
		}
		if performer.Statuses.Has("Jammed") {
			t.Error("Failure branch must not run on success")
		}
	})

	t.Run("failure branch", func(t *testing.T) {
		engine, _, _ := newTestEngine(&stubRoller{d20Queue: []int{3}})
		performer := newFighter("rogue", 2, 2, 12, false)
		result := engine.ExecuteAction(action, performer, nil, nil, nil)
		if !result.Success || !performer.Statuses.Has("Jammed") {
			t.Errorf("Expected failure branch, message: %q", result.Message)
		}
	})
}

func TestSkillCheckContest(t *testing.T) {
	// Состязание: исполнитель против двух видимых оппонентов в радиусе.
	// Очередь d20: бросок исполнителя, затем по броску на оппонента.
	makeCtx := func(performer *domain.Entity, opponents ...*domain.Entity) *domain.ActionContext {
		return &domain.ActionContext{Performer: performer, VisibleEntities: opponents}
	}
	effect := domain.Effect{
		Type:   domain.EffectSkillCheck,
		Target: domain.TargetSelf,
		Params: map[string]any{"skill": "stealth", "ability": "dexterity", "contestRadius": 5, "contestMode": "all"},
	}
	action := domain.Action{
		ID: "sneak", Name: "Скрытность", Category: domain.CategoryUtility,
		Effects: []domain.Effect{effect},
	}

	performer := newFighter("rogue", 2, 2, 12, false)
	oppA := newFighter("guardA", 3, 2, 12, true)
	oppB := newFighter("guardB", 4, 2, 12, true)

	// 15 против 10 и 12: в режиме all оба должны быть превзойдены
	engine, bus, _ := newTestEngine(&stubRoller{d20Queue: []int{15, 10, 12}})
	var checkSuccess bool
	bus.Subscribe(events.CheckRolled, func(ev events.Event) {
		checkSuccess = ev.Payload["success"].(bool)
	})
	engine.ExecuteAction(action, performer, nil, makeCtx(performer, oppA, oppB), nil)
	if !checkSuccess {
		t.Error("15 beats both 10 and 12, contest must succeed")
	}

	// 15 против 10 и 18: в режиме all проигрыш
	engine, bus, _ = newTestEngine(&stubRoller{d20Queue: []int{15, 10, 18}})
	bus.Subscribe(events.CheckRolled, func(ev events.Event) {
		checkSuccess = ev.Payload["success"].(bool)
	})
	engine.ExecuteAction(action, performer, nil, makeCtx(performer, oppA, oppB), nil)
	if checkSuccess {
		t.Error("18 is not beaten, all-mode contest must fail")
	}
}

func TestResourceOpOperations(t *testing.T) {
	cases := []struct {
		name   string
		params map[string]any
		want   int
	}{
		{"add", map[string]any{"resource": "mana", "operation": "add", "value": "3", "clamp": true}, 8},
		{"subtract", map[string]any{"resource": "mana", "operation": "subtract", "value": "2", "clamp": true}, 3},
		{"set", map[string]any{"resource": "mana", "operation": "set", "value": "9", "clamp": true}, 9},
		{"multiply", map[string]any{"resource": "mana", "operation": "multiply", "factor": 2.0, "clamp": true}, 10},
		{"min lowers", map[string]any{"resource": "mana", "operation": "min", "value": "2", "clamp": true}, 2},
		{"max raises", map[string]any{"resource": "mana", "operation": "max", "value": "8", "clamp": true}, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, _, res := newTestEngine(&stubRoller{})
			performer := newFighter("mage", 2, 2, 12, false)
			res.Define(performer.ID, "mana", 5, 0, 10)

			action := domain.Action{
				ID: "op", Name: "Операция", Category: domain.CategoryUtility,
				Effects: []domain.Effect{{
					Type: domain.EffectResourceOp, Target: domain.TargetSelf, Params: tc.params,
				}},
			}
			engine.ExecuteAction(action, performer, nil, nil, nil)
			if got := res.GetCurrentValue(performer.ID, "mana"); got != tc.want {
				t.Errorf("mana after %s: got %d, want %d", tc.name, got, tc.want)
			}
		})
	}
}

func TestDamageMultiplierFromWorldConfig(t *testing.T) {
	roller := &stubRoller{d20Queue: []int{15}, diceTotal: 8}
	bus := events.NewBus()
	res := resources.NewManager()
	cfg, err := world.LoadConfigFromReader(strings.NewReader(`
damageTypes: [slashing, radiant, necrotic]
traits:
  undead:
    vulnerabilities: [radiant]
    immunities: [necrotic]
`))
	if err != nil {
		t.Fatalf("LoadConfigFromReader: %v", err)
	}
	engine := NewEngine(roller, bus, res, cfg, nil, dice.CritDoubleDice)

	performer := newFighter("mage", 2, 2, 12, false)
	target := newFighter("skeleton", 3, 2, 10, true)
	target.Tags = []string{"undead"}
	res.Define(target.ID, "hp", 20, 0, 20)

	action := domain.Action{
		ID: "smite", Name: "Кара", Category: domain.CategoryMagic,
		Effects: []domain.Effect{{
			Type:   domain.EffectDamage,
			Target: domain.TargetTarget,
			Params: map[string]any{"amount": "2d4", "damageType": "radiant"},
		}},
		Targeting: domain.Targeting{Kind: "single", Range: 6},
	}

	engine.ExecuteAction(action, performer, target, nil, nil)
	// нежить уязвима к radiant: 8 * 2 = 16
	if got := res.GetCurrentValue(target.ID, "hp"); got != 4 {
		t.Errorf("Vulnerable target hp: got %d, want 4", got)
	}
}

func TestHealingClampsToMaximum(t *testing.T) {
	engine, _, res := newTestEngine(&stubRoller{diceTotal: 7})
	performer := newFighter("cleric", 2, 2, 12, false)
	res.Define(performer.ID, "hp", 18, 0, 20)

	action := domain.Action{
		ID: "heal", Name: "Лечение", Category: domain.CategoryMagic,
		Effects: []domain.Effect{{
			Type: domain.EffectHealing, Target: domain.TargetSelf,
			Params: map[string]any{"amount": "2d4"},
		}},
	}
	engine.ExecuteAction(action, performer, nil, nil, nil)
	if got := res.GetCurrentValue(performer.ID, "hp"); got != 20 {
		t.Errorf("Healing must clamp to maximum: got %d, want 20", got)
	}
}
