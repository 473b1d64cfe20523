package domain

import "strings"

// GameMode - режим игры: исследование или бой.
type GameMode uint8

const (
	ModeExploration GameMode = iota
	ModeCombat
)

var modeToString = map[GameMode]string{
	ModeExploration: "EXPLORATION",
	ModeCombat:      "COMBAT",
}

var modeFromString = map[string]GameMode{
	"EXPLORATION": ModeExploration,
	"COMBAT":      ModeCombat,
}

func (m GameMode) String() string {
	if s, ok := modeToString[m]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseGameMode конвертирует строку из JSON в GameMode.
func ParseGameMode(s string) GameMode {
	if v, ok := modeFromString[strings.ToUpper(s)]; ok {
		return v
	}
	return ModeExploration
}

// ActionCategory - категория действия. Порядок констант задает порядок
// сортировки в выдаче (movement < attack < ... < social).
type ActionCategory uint8

const (
	CategoryMovement ActionCategory = iota
	CategoryAttack
	CategoryDefense
	CategoryUtility
	CategoryMagic
	CategoryItem
	CategoryEnvironment
	CategorySocial
	CategoryUnknown
)

var categoryToString = map[ActionCategory]string{
	CategoryMovement:    "movement",
	CategoryAttack:      "attack",
	CategoryDefense:     "defense",
	CategoryUtility:     "utility",
	CategoryMagic:       "magic",
	CategoryItem:        "item",
	CategoryEnvironment: "environment",
	CategorySocial:      "social",
}

var categoryFromString = map[string]ActionCategory{
	"movement":    CategoryMovement,
	"attack":      CategoryAttack,
	"defense":     CategoryDefense,
	"utility":     CategoryUtility,
	"magic":       CategoryMagic,
	"item":        CategoryItem,
	"environment": CategoryEnvironment,
	"social":      CategorySocial,
}

func (c ActionCategory) String() string {
	if s, ok := categoryToString[c]; ok {
		return s
	}
	return "unknown"
}

// ParseActionCategory конвертирует строку из JSON в ActionCategory.
func ParseActionCategory(s string) ActionCategory {
	if v, ok := categoryFromString[strings.ToLower(s)]; ok {
		return v
	}
	return CategoryUnknown
}

// RequirementType - тип требования к действию.
type RequirementType uint8

const (
	RequirementUnknown RequirementType = iota
	RequirementResource
	RequirementEquipment
	RequirementGameMode
	RequirementRange
	RequirementLineOfSight
	RequirementTileProperty
	RequirementEntityState
	RequirementWorldCondition
)

var requirementToString = map[RequirementType]string{
	RequirementResource:       "RESOURCE",
	RequirementEquipment:      "EQUIPMENT",
	RequirementGameMode:       "GAME_MODE",
	RequirementRange:          "RANGE",
	RequirementLineOfSight:    "LINE_OF_SIGHT",
	RequirementTileProperty:   "TILE_PROPERTY",
	RequirementEntityState:    "ENTITY_STATE",
	RequirementWorldCondition: "WORLD_CONDITION",
}

var requirementFromString = map[string]RequirementType{
	"RESOURCE":        RequirementResource,
	"EQUIPMENT":       RequirementEquipment,
	"GAME_MODE":       RequirementGameMode,
	"RANGE":           RequirementRange,
	"LINE_OF_SIGHT":   RequirementLineOfSight,
	"TILE_PROPERTY":   RequirementTileProperty,
	"ENTITY_STATE":    RequirementEntityState,
	"WORLD_CONDITION": RequirementWorldCondition,
}

func (r RequirementType) String() string {
	if s, ok := requirementToString[r]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseRequirementType конвертирует строку из JSON в RequirementType.
func ParseRequirementType(s string) RequirementType {
	if v, ok := requirementFromString[strings.ToUpper(s)]; ok {
		return v
	}
	return RequirementUnknown
}

// CostType - тип стоимости действия.
type CostType uint8

const (
	CostUnknown CostType = iota
	CostResource
	CostActionPoint
	CostMovement
	CostItemCharge
	CostTime
)

var costToString = map[CostType]string{
	CostResource:    "RESOURCE",
	CostActionPoint: "ACTION_POINT",
	CostMovement:    "MOVEMENT",
	CostItemCharge:  "ITEM_CHARGE",
	CostTime:        "TIME",
}

var costFromString = map[string]CostType{
	"RESOURCE":     CostResource,
	"ACTION_POINT": CostActionPoint,
	"MOVEMENT":     CostMovement,
	"ITEM_CHARGE":  CostItemCharge,
	"TIME":         CostTime,
}

func (c CostType) String() string {
	if s, ok := costToString[c]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseCostType конвертирует строку из JSON в CostType.
func ParseCostType(s string) CostType {
	if v, ok := costFromString[strings.ToUpper(s)]; ok {
		return v
	}
	return CostUnknown
}

// EffectType - тип эффекта. Ключ таблицы резолверов в движке исполнения.
// Значение - строка как в JSON-таблицах действий ("damage", "resourceOp"...),
// чтобы регистрация кастомных резолверов не требовала правки этого файла.
type EffectType string

const (
	EffectDamage            EffectType = "damage"
	EffectHealing           EffectType = "healing"
	EffectResourceChange    EffectType = "resourceChange"
	EffectResourceOp        EffectType = "resourceOp"
	EffectStatusEffect      EffectType = "statusEffect"
	EffectMovement          EffectType = "movement"
	EffectSkillCheck        EffectType = "skillCheck"
	EffectEnvironmentChange EffectType = "environmentChange"
)

// EffectTarget - на кого направлен эффект.
type EffectTarget uint8

const (
	TargetSelf EffectTarget = iota
	TargetTarget
	TargetArea
	TargetAllEnemies
	TargetAllAllies
	TargetEnvironment
)

var effectTargetToString = map[EffectTarget]string{
	TargetSelf:        "self",
	TargetTarget:      "target",
	TargetArea:        "area",
	TargetAllEnemies:  "allEnemies",
	TargetAllAllies:   "allAllies",
	TargetEnvironment: "environment",
}

var effectTargetFromString = map[string]EffectTarget{
	"self":        TargetSelf,
	"target":      TargetTarget,
	"area":        TargetArea,
	"allenemies":  TargetAllEnemies,
	"allallies":   TargetAllAllies,
	"environment": TargetEnvironment,
}

func (t EffectTarget) String() string {
	if s, ok := effectTargetToString[t]; ok {
		return s
	}
	return "self"
}

// ParseEffectTarget конвертирует строку из JSON в EffectTarget.
func ParseEffectTarget(s string) EffectTarget {
	if v, ok := effectTargetFromString[strings.ToLower(s)]; ok {
		return v
	}
	return TargetSelf
}

// EffectTiming - момент применения эффекта.
type EffectTiming uint8

const (
	TimingImmediate EffectTiming = iota
	TimingStartOfTurn
	TimingEndOfTurn
	TimingOnHit
	TimingOnMiss
	TimingDelayed
)

var timingToString = map[EffectTiming]string{
	TimingImmediate:   "immediate",
	TimingStartOfTurn: "startOfTurn",
	TimingEndOfTurn:   "endOfTurn",
	TimingOnHit:       "onHit",
	TimingOnMiss:      "onMiss",
	TimingDelayed:     "delayed",
}

var timingFromString = map[string]EffectTiming{
	"immediate":   TimingImmediate,
	"startofturn": TimingStartOfTurn,
	"endofturn":   TimingEndOfTurn,
	"onhit":       TimingOnHit,
	"onmiss":      TimingOnMiss,
	"delayed":     TimingDelayed,
}

func (t EffectTiming) String() string {
	if s, ok := timingToString[t]; ok {
		return s
	}
	return "immediate"
}

// ParseEffectTiming конвертирует строку из JSON в EffectTiming.
func ParseEffectTiming(s string) EffectTiming {
	if v, ok := timingFromString[strings.ToLower(s)]; ok {
		return v
	}
	return TimingImmediate
}
