package catalog

import "github.com/smaran-m/roguelike-agent-sub001/internal/domain"

// builtinActions - минимальный набор базовых действий. Это и таблица
// интринсик-источника по умолчанию, и запасной вариант при кривом JSON.
func builtinActions() []domain.Action {
	return []domain.Action{
		{
			ID:          "move",
			Name:        "Шаг",
			Description: "Переместиться на соседнюю клетку.",
			Source:      "intrinsic",
			Category:    domain.CategoryMovement,
			Costs: []domain.Cost{
				{Type: domain.CostMovement, Amount: "1", Description: "1 клетка движения"},
			},
			Effects: []domain.Effect{
				{Type: domain.EffectMovement, Target: domain.TargetSelf,
					Params: map[string]any{"distance": 1.0, "kind": "shift"}},
			},
			Targeting: domain.Targeting{Kind: "tile", Range: 1},
			Priority:  10,
		},
		{
			ID:          "wait",
			Name:        "Ожидание",
			Description: "Пропустить ход.",
			Source:      "intrinsic",
			Category:    domain.CategoryUtility,
			Costs: []domain.Cost{
				{Type: domain.CostActionPoint, Amount: "1"},
			},
			Targeting: domain.Targeting{Kind: "self"},
		},
		{
			ID:          "unarmed_strike",
			Name:        "Удар без оружия",
			Description: "Кулаком по лицу.",
			Source:      "intrinsic",
			Category:    domain.CategoryAttack,
			Costs: []domain.Cost{
				{Type: domain.CostActionPoint, Amount: "1"},
			},
			Effects: []domain.Effect{
				{Type: domain.EffectDamage, Target: domain.TargetTarget,
					Params: map[string]any{
						"amount":     "1d4",
						"damageType": "bludgeoning",
						"ability":    "strength",
						"attackRoll": true,
					}},
			},
			Targeting: domain.Targeting{Kind: "single", Range: 1, RequiresLOS: true},
			Priority:  5,
		},
		{
			ID:          "dodge",
			Name:        "Уклонение",
			Description: "Сосредоточиться на защите до следующего хода.",
			Source:      "intrinsic",
			Category:    domain.CategoryDefense,
			Requirements: []domain.Requirement{
				{Type: domain.RequirementGameMode, Target: "COMBAT",
					Description: "Только в бою"},
			},
			Costs: []domain.Cost{
				{Type: domain.CostActionPoint, Amount: "1"},
			},
			Effects: []domain.Effect{
				{Type: domain.EffectStatusEffect, Target: domain.TargetSelf,
					Params: map[string]any{"status": "Dodging", "duration": 1.0}},
			},
			Targeting: domain.Targeting{Kind: "self"},
		},
		{
			ID:          "dash",
			Name:        "Рывок",
			Description: "Потратить действие на дополнительное движение.",
			Source:      "intrinsic",
			Category:    domain.CategoryMovement,
			Requirements: []domain.Requirement{
				{Type: domain.RequirementGameMode, Target: "COMBAT",
					Description: "Только в бою"},
			},
			Costs: []domain.Cost{
				{Type: domain.CostActionPoint, Amount: "1"},
			},
			Effects: []domain.Effect{
				{Type: domain.EffectStatusEffect, Target: domain.TargetSelf,
					Params: map[string]any{"status": "Dashing", "duration": 1.0}},
			},
			Targeting: domain.Targeting{Kind: "self"},
			Priority:  1,
		},
	}
}
