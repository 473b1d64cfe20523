package domain

import "strings"

// EntityID - идентификатор сущности.
type EntityID string

// Типы сущностей
const (
	EntityTypePlayer = "PLAYER"
	EntityTypeNPC    = "NPC"
	EntityTypeEnemy  = "ENEMY"
)

// Entity - участник игры. Компонентная модель: отсутствующий компонент
// означает отсутствие способности (сущность без Stats не дерется).
type Entity struct {
	ID        EntityID            `json:"id"`
	Name      string              `json:"name"`
	Type      string              `json:"type"`
	Pos       Position            `json:"pos"`
	Tags      []string            `json:"tags,omitempty"` // "undead", "fiend"... для таблицы резистов
	Stats     *StatsComponent     `json:"stats,omitempty"`
	Equipment *EquipmentComponent `json:"equipment,omitempty"`
	Statuses  *StatusComponent    `json:"statuses,omitempty"`
	AI        *AIComponent        `json:"ai,omitempty"`
}

// IsPlayer сообщает, управляется ли сущность игроком.
func (e *Entity) IsPlayer() bool {
	return e.Type == EntityTypePlayer
}

// IsHostile сообщает, враждебна ли сущность. У сущностей без мозгов
// (предметы, декорации) враждебности нет.
func (e *Entity) IsHostile() bool {
	return e.AI != nil && e.AI.IsHostile
}

// StatsComponent - характеристики в духе настольных правил.
// Текущие значения ресурсов (hp, mana...) живут в ResourceManager,
// здесь только способности и защита.
type StatsComponent struct {
	Strength     int  `json:"strength"`
	Dexterity    int  `json:"dexterity"`
	Constitution int  `json:"constitution"`
	Intelligence int  `json:"intelligence"`
	Wisdom       int  `json:"wisdom"`
	Charisma     int  `json:"charisma"`
	ArmorClass   int  `json:"armorClass"`
	IsDead       bool `json:"isDead"`
}

// AbilityModifier возвращает модификатор способности по имени: (score-10)/2
// с округлением вниз. Неизвестная способность дает 0.
func (s *StatsComponent) AbilityModifier(ability string) int {
	if s == nil {
		return 0
	}
	var score int
	switch strings.ToLower(ability) {
	case "strength", "str":
		score = s.Strength
	case "dexterity", "dex":
		score = s.Dexterity
	case "constitution", "con":
		score = s.Constitution
	case "intelligence", "int":
		score = s.Intelligence
	case "wisdom", "wis":
		score = s.Wisdom
	case "charisma", "cha":
		score = s.Charisma
	default:
		return 0
	}
	// Деление в Go округляет к нулю, а нам нужно округление вниз:
	// score 9 должен давать -1, а не 0.
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// DexterityModifier - шорткат для инициативы.
func (s *StatsComponent) DexterityModifier() int {
	return s.AbilityModifier("dexterity")
}

// AIComponent - поведение. У игрока его нет, у монстров и NPC есть.
type AIComponent struct {
	IsHostile bool   `json:"isHostile"`
	State     string `json:"state,omitempty"` // "IDLE", "HUNT"
}

// Слоты экипировки
const (
	SlotMainHand = "mainHand"
	SlotOffHand  = "offHand"
	SlotArmor    = "armor"
	SlotBelt     = "belt"
)

// EquipmentComponent - что надето. Ключ - слот.
type EquipmentComponent struct {
	Slots map[string]*Item `json:"slots,omitempty"`
}

// HasAnyEquipped возвращает true, если хоть что-то экипировано.
func (e *EquipmentComponent) HasAnyEquipped() bool {
	return e != nil && len(e.Slots) > 0
}

// Виды оружия (определяют дальность синтезированной атаки)
const (
	WeaponKindMelee  = "melee"
	WeaponKindMagic  = "magic"
	WeaponKindRanged = "ranged"
)

// Item - предмет из таблицы определений. Читается один раз, не мутирует
// (кроме Charges у расходников).
type Item struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"` // "weapon", "armor", "tool"...
	WeaponKind string   `json:"weaponKind,omitempty"`
	Damage     string   `json:"damage,omitempty"` // нотация кубиков
	DamageType string   `json:"damageType,omitempty"`
	Defense    int      `json:"defense,omitempty"`
	Abilities  []string `json:"abilities,omitempty"` // "Finesse", "Light Source"...
	Charges    int      `json:"charges,omitempty"`
}

// IsWeapon сообщает, оружие ли это.
func (i *Item) IsWeapon() bool {
	return i != nil && i.Category == "weapon"
}

// AttackRange возвращает дальность атаки этим оружием в клетках.
// Ближний бой = 1, магия = 6, стрелковое = 8.
func (i *Item) AttackRange() float64 {
	switch i.WeaponKind {
	case WeaponKindMagic:
		return 6
	case WeaponKindRanged:
		return 8
	default:
		return 1
	}
}

// StatusEffect - наложенный статус. Может даровать дополнительные действия
// (их подхватывает провайдер на этапе discovery).
type StatusEffect struct {
	Name     string   `json:"name"`
	Duration int      `json:"duration"` // в ходах; 0 = бессрочно
	Grants   []Action `json:"grants,omitempty"`
}

// StatusComponent - активные статусы сущности.
type StatusComponent struct {
	Active []StatusEffect `json:"active,omitempty"`
}

// Has проверяет наличие статуса по имени.
func (s *StatusComponent) Has(name string) bool {
	if s == nil {
		return false
	}
	for _, st := range s.Active {
		if st.Name == name {
			return true
		}
	}
	return false
}

// Add накладывает статус. Повторное наложение обновляет длительность.
func (s *StatusComponent) Add(effect StatusEffect) {
	for i := range s.Active {
		if s.Active[i].Name == effect.Name {
			s.Active[i].Duration = effect.Duration
			return
		}
	}
	s.Active = append(s.Active, effect)
}

// Remove снимает статус по имени. Возвращает true, если статус был.
func (s *StatusComponent) Remove(name string) bool {
	if s == nil {
		return false
	}
	for i, st := range s.Active {
		if st.Name == name {
			s.Active = append(s.Active[:i], s.Active[i+1:]...)
			return true
		}
	}
	return false
}
