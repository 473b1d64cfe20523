package discovery

import (
	"fmt"
	"sort"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
)

// Пассивные свойства предметов: постоянно действуют на правила,
// отдельного действия не порождают.
var passiveItemAbilities = map[string]bool{
	"Versatile":  true,
	"Finesse":    true,
	"Two-Handed": true,
	"Heavy":      true,
	"Light":      true,
}

// EquipmentSource синтезирует действия из экипированных предметов:
// атаку на каждое оружие и действие на каждое активное свойство предмета.
type EquipmentSource struct{}

// NewEquipmentSource создает источник действий экипировки.
func NewEquipmentSource() *EquipmentSource {
	return &EquipmentSource{}
}

// CanActivate: источник активен, только если хоть что-то надето.
// Проверка O(1) по карте слотов.
func (s *EquipmentSource) CanActivate(ctx *domain.ActionContext) bool {
	return len(ctx.EquippedItems) > 0
}

// AvailableActions обходит слоты в детерминированном порядке и синтезирует
// действия. Порядок важен: discovery обещает бит-идентичные повторные выдачи.
func (s *EquipmentSource) AvailableActions(ctx *domain.ActionContext) []domain.Action {
	slots := make([]string, 0, len(ctx.EquippedItems))
	for slot := range ctx.EquippedItems {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	var out []domain.Action
	for _, slot := range slots {
		item := ctx.EquippedItems[slot]
		if item == nil {
			continue
		}
		if item.IsWeapon() {
			out = append(out, weaponAttackAction(item))
		}
		for _, ability := range item.Abilities {
			if passiveItemAbilities[ability] {
				continue
			}
			out = append(out, itemAbilityAction(item, ability))
		}
	}
	return out
}

// Priority: экипировка после интринсиков.
func (s *EquipmentSource) Priority() int { return 80 }

func (s *EquipmentSource) Description() string {
	return "Действия от экипированных предметов"
}

// weaponAttackAction синтезирует атаку оружием. Дальность зависит от вида
// оружия: ближнее = 1, магическое = 6, стрелковое = 8.
func weaponAttackAction(item *domain.Item) domain.Action {
	ability := "strength"
	for _, a := range item.Abilities {
		// Finesse-оружие бьет от ловкости
		if a == "Finesse" {
			ability = "dexterity"
			break
		}
	}

	damage := item.Damage
	if damage == "" {
		damage = "1d4"
	}

	return domain.Action{
		ID:          "attack_" + item.ID,
		Name:        "Атака: " + item.Name,
		Description: fmt.Sprintf("Атаковать при помощи %s.", item.Name),
		Source:      "equipment:" + item.ID,
		Category:    domain.CategoryAttack,
		Costs: []domain.Cost{
			{Type: domain.CostActionPoint, Amount: "1"},
		},
		Effects: []domain.Effect{
			{Type: domain.EffectDamage, Target: domain.TargetTarget,
				Params: map[string]any{
					"amount":     damage,
					"damageType": item.DamageType,
					"ability":    ability,
					"attackRoll": true,
				}},
		},
		Targeting: domain.Targeting{
			Kind:        "single",
			Range:       item.AttackRange(),
			RequiresLOS: true,
		},
		Priority: 8,
	}
}

// itemAbilityAction синтезирует действие на активное свойство предмета.
// Известные свойства получают осмысленные действия, неизвестные строки -
// универсальное действие "получить эффект" на себя.
func itemAbilityAction(item *domain.Item, ability string) domain.Action {
	base := domain.Action{
		ID:       fmt.Sprintf("item_%s_%s", item.ID, slugify(ability)),
		Source:   "equipment:" + item.ID,
		Priority: 3,
	}

	switch ability {
	case "Light Source":
		base.Name = "Зажечь: " + item.Name
		base.Description = "Осветить пространство вокруг себя."
		base.Category = domain.CategoryUtility
		base.Effects = []domain.Effect{
			{Type: domain.EffectStatusEffect, Target: domain.TargetSelf,
				Params: map[string]any{"status": "Illuminated", "duration": 0.0}},
		}
		base.Targeting = domain.Targeting{Kind: "self"}
	case "Lock Picking":
		base.Name = "Взлом замка"
		base.Description = fmt.Sprintf("Вскрыть замок при помощи %s.", item.Name)
		base.Category = domain.CategoryEnvironment
		base.Effects = []domain.Effect{
			{Type: domain.EffectSkillCheck, Target: domain.TargetEnvironment,
				Params: map[string]any{"skill": "thievery", "ability": "dexterity", "dc": 12.0},
				OnSuccess: []domain.Effect{
					{Type: domain.EffectEnvironmentChange, Target: domain.TargetEnvironment,
						Params: map[string]any{"change": "unlock"}},
				}},
		}
		base.Targeting = domain.Targeting{Kind: "tile", Range: 1}
	case "Climbing":
		base.Name = "Карабкаться"
		base.Description = fmt.Sprintf("Забраться на препятствие при помощи %s.", item.Name)
		base.Category = domain.CategoryMovement
		base.Effects = []domain.Effect{
			{Type: domain.EffectSkillCheck, Target: domain.TargetSelf,
				Params: map[string]any{"skill": "athletics", "ability": "strength", "dc": 10.0},
				OnSuccess: []domain.Effect{
					{Type: domain.EffectMovement, Target: domain.TargetSelf,
						Params: map[string]any{"distance": 1.0, "kind": "climb"}},
				}},
		}
		base.Targeting = domain.Targeting{Kind: "tile", Range: 1}
	default:
		// Неизвестное свойство из таблицы предметов: универсальный фолбэк.
		base.Name = ability
		base.Description = fmt.Sprintf("Использовать свойство %q предмета %s.", ability, item.Name)
		base.Category = domain.CategoryItem
		base.Effects = []domain.Effect{
			{Type: domain.EffectStatusEffect, Target: domain.TargetSelf,
				Params: map[string]any{"status": ability, "duration": 1.0}},
		}
		base.Targeting = domain.Targeting{Kind: "self"}
	}

	return base
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '_')
		}
	}
	return string(out)
}
