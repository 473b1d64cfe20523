package domain

import (
	"encoding/json"
	"fmt"
)

// Effect - одна игровая мутация. Params - открытый мешок параметров из JSON;
// типизированные представления снимаются через DecodeParams. Эффекты
// применяются в порядке объявления; skillCheck условно запускает вложенные
// списки OnSuccess/OnFailure.
type Effect struct {
	Type      EffectType     `json:"type"`
	Target    EffectTarget   `json:"target"`
	Params    map[string]any `json:"params,omitempty"`
	Timing    EffectTiming   `json:"timing"`
	OnSuccess []Effect       `json:"onSuccess,omitempty"`
	OnFailure []Effect       `json:"onFailure,omitempty"`
}

// DecodeParams распаковывает Params в типизированную структуру параметров.
// Идем через json (map -> bytes -> struct): медленно, но надежно для
// открытого мешка, и числа из JSON корректно приводятся.
func (e Effect) DecodeParams(v any) error {
	b, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("marshal effect params: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %q params: %w", e.Type, err)
	}
	return nil
}

// DamageParams - параметры эффекта "damage".
type DamageParams struct {
	Amount     string `json:"amount"`               // нотация кубиков или литерал
	DamageType string `json:"damageType,omitempty"` // "slashing", "fire"...
	Ability    string `json:"ability,omitempty"`    // способность для модификатора ("strength")
	AttackRoll bool   `json:"attackRoll,omitempty"` // бросать ли d20 против AC цели
	Resource   string `json:"resource,omitempty"`   // по умолчанию "hp"
}

// HealingParams - параметры эффекта "healing".
type HealingParams struct {
	Amount   string `json:"amount"`
	Ability  string `json:"ability,omitempty"`
	Resource string `json:"resource,omitempty"` // по умолчанию "hp"
}

// ResourceOpParams - параметры эффекта "resourceOp".
type ResourceOpParams struct {
	Resource  string  `json:"resource"`
	Operation string  `json:"operation"`       // add, subtract, set, multiply, min, max
	Value     string  `json:"value"`           // литерал или нотация кубиков
	Factor    float64 `json:"factor,omitempty"` // для multiply
	Clamp     bool    `json:"clamp,omitempty"`
}

// SkillCheckParams - параметры эффекта "skillCheck".
type SkillCheckParams struct {
	Skill         string  `json:"skill,omitempty"`
	Ability       string  `json:"ability,omitempty"`
	DC            float64 `json:"dc,omitempty"`            // фиксированная сложность; 0 = состязание
	ContestRadius float64 `json:"contestRadius,omitempty"` // радиус поиска оппонентов
	ContestMode   string  `json:"contestMode,omitempty"`   // "any" (по умолчанию) или "all"
}

// StatusEffectParams - параметры эффекта "statusEffect".
type StatusEffectParams struct {
	Status    string `json:"status"`
	Operation string `json:"operation,omitempty"` // "add" (по умолчанию) или "remove"
	Duration  int    `json:"duration,omitempty"`  // в ходах; 0 = бессрочно
}

// MovementParams - параметры эффекта "movement".
type MovementParams struct {
	Distance float64 `json:"distance"`
	Kind     string  `json:"kind,omitempty"` // "shift", "teleport"
}
