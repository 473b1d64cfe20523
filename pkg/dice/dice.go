// Package dice реализует броски кубиков для игровых правил:
// нотация NdM±K, атакующие броски d20 и урон с критами.
package dice

import (
	"math/rand"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// CritPolicy определяет, как считается урон при критическом попадании.
type CritPolicy uint8

const (
	// CritDoubleDice - кости урона бросаются дважды (правило 5e, по умолчанию).
	CritDoubleDice CritPolicy = iota
	// CritDoubleTotal - итоговая сумма (кости + модификатор) удваивается.
	CritDoubleTotal
	// CritMaxPlusRoll - два броска, берется больший, плюс еще один обычный бросок.
	CritMaxPlusRoll
)

var critPolicyToString = map[CritPolicy]string{
	CritDoubleDice:  "doubleDice",
	CritDoubleTotal: "doubleTotal",
	CritMaxPlusRoll: "maxPlusRoll",
}

var critPolicyFromString = map[string]CritPolicy{
	"doubleDice":  CritDoubleDice,
	"doubleTotal": CritDoubleTotal,
	"maxPlusRoll": CritMaxPlusRoll,
}

func (p CritPolicy) String() string {
	if s, ok := critPolicyToString[p]; ok {
		return s
	}
	return "doubleDice"
}

// ParseCritPolicy конвертирует строку из конфига в CritPolicy.
// Неизвестная строка дает политику по умолчанию.
func ParseCritPolicy(s string) CritPolicy {
	if p, ok := critPolicyFromString[s]; ok {
		return p
	}
	return CritDoubleDice
}

// RollResult - результат разбора и броска нотации NdM±K.
type RollResult struct {
	Notation string `json:"notation"`
	Rolls    []int  `json:"rolls"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
}

// AttackRoll - результат атакующего броска d20.
type AttackRoll struct {
	Roll            int  `json:"roll"`
	Modifier        int  `json:"modifier"`
	Total           int  `json:"total"`
	Critical        bool `json:"critical"`        // натуральная 20
	CriticalFailure bool `json:"criticalFailure"` // натуральная 1
}

// DamageRoll - результат броска урона.
type DamageRoll struct {
	Notation string `json:"notation"`
	Rolls    []int  `json:"rolls"`
	Modifier int    `json:"modifier"`
	Critical bool   `json:"critical"`
	Total    int    `json:"total"`
}

// Нотация кубиков: "2d6", "1d20+5", "3d8-2". Регистр буквы d не важен.
var notationRe = regexp.MustCompile(`^(\d+)[dD](\d+)([+-]\d+)?$`)

// Roller бросает кубики через собственный генератор случайных чисел.
// Один Roller на процесс; сид задается явно для воспроизводимых партий.
type Roller struct {
	rng *rand.Rand
}

// NewRoller создает Roller. seed == 0 означает случайный сид.
func NewRoller(seed int64) *Roller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// RollDie возвращает равномерное целое в [1, sides].
func (r *Roller) RollDie(sides int) int {
	if sides < 1 {
		return 1
	}
	return r.rng.Intn(sides) + 1
}

// RollDice разбирает нотацию NdM±K и бросает кубики.
// При ошибке разбора возвращается вырожденный результат {Total: 1, Rolls: [1]}:
// плохие данные в таблицах не должны ронять движок, и это поведение закреплено тестами.
func (r *Roller) RollDice(notation string) RollResult {
	m := notationRe.FindStringSubmatch(notation)
	if m == nil {
		logger.Log.WithFields(logrus.Fields{
			"component": "dice",
			"notation":  notation,
		}).Warn("Unparseable dice notation, falling back to degenerate roll.")
		return RollResult{Notation: notation, Rolls: []int{1}, Total: 1}
	}

	count, _ := strconv.Atoi(m[1])
	sides, _ := strconv.Atoi(m[2])
	modifier := 0
	if m[3] != "" {
		modifier, _ = strconv.Atoi(m[3])
	}

	// Защита от "0d6" и "2d0" из кривых таблиц
	if count < 1 || sides < 1 {
		logger.Log.WithFields(logrus.Fields{
			"component": "dice",
			"notation":  notation,
		}).Warn("Degenerate dice notation, falling back to degenerate roll.")
		return RollResult{Notation: notation, Rolls: []int{1}, Total: 1}
	}

	rolls := make([]int, count)
	total := 0
	for i := 0; i < count; i++ {
		rolls[i] = r.RollDie(sides)
		total += rolls[i]
	}

	return RollResult{
		Notation: notation,
		Rolls:    rolls,
		Modifier: modifier,
		Total:    total + modifier,
	}
}

// RollAttack бросает d20 на попадание с модификатором.
// Натуральная 20 - крит, натуральная 1 - критический промах.
func (r *Roller) RollAttack(modifier int) AttackRoll {
	roll := r.RollDie(20)
	return AttackRoll{
		Roll:            roll,
		Modifier:        modifier,
		Total:           roll + modifier,
		Critical:        roll == 20,
		CriticalFailure: roll == 1,
	}
}

// RollWithAdvantage бросает два d20 и берет больший.
func (r *Roller) RollWithAdvantage() int {
	a, b := r.RollDie(20), r.RollDie(20)
	if a > b {
		return a
	}
	return b
}

// RollWithDisadvantage бросает два d20 и берет меньший.
func (r *Roller) RollWithDisadvantage() int {
	a, b := r.RollDie(20), r.RollDie(20)
	if a < b {
		return a
	}
	return b
}

// RollDamage бросает урон по нотации с учетом модификатора способности
// и политики критического удара. Модификатор из нотации ("1d8+1") складывается
// с переданным modifier, но при крите удваиваются только кости.
func (r *Roller) RollDamage(notation string, modifier int, critical bool, policy CritPolicy) DamageRoll {
	base := r.RollDice(notation)

	if !critical {
		return DamageRoll{
			Notation: notation,
			Rolls:    base.Rolls,
			Modifier: modifier,
			Total:    base.Total + modifier,
		}
	}

	switch policy {
	case CritDoubleTotal:
		return DamageRoll{
			Notation: notation,
			Rolls:    base.Rolls,
			Modifier: modifier,
			Critical: true,
			Total:    (base.Total + modifier) * 2,
		}
	case CritMaxPlusRoll:
		second := r.RollDice(notation)
		extra := r.RollDice(notation)
		best := base
		if second.Total > best.Total {
			best = second
		}
		rolls := append(append([]int{}, best.Rolls...), extra.Rolls...)
		return DamageRoll{
			Notation: notation,
			Rolls:    rolls,
			Modifier: modifier,
			Critical: true,
			Total:    best.Total + extra.Total + modifier,
		}
	default: // CritDoubleDice
		second := r.RollDice(notation)
		rolls := append(append([]int{}, base.Rolls...), second.Rolls...)
		return DamageRoll{
			Notation: notation,
			Rolls:    rolls,
			Modifier: modifier,
			Critical: true,
			Total:    base.Total + second.Total + modifier,
		}
	}
}

// RollInitiative бросает инициативу: d20 + модификатор ловкости.
// Возвращает (итог, чистый бросок).
func (r *Roller) RollInitiative(dexModifier int) (int, int) {
	roll := r.RollDie(20)
	return roll + dexModifier, roll
}
