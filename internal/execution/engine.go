// Package execution исполняет действия: валидация требований, списание
// стоимостей, разрешение эффектов через таблицу резолверов.
package execution

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/internal/observe"
	"github.com/smaran-m/roguelike-agent-sub001/internal/resources"
	"github.com/smaran-m/roguelike-agent-sub001/internal/world"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/dice"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Roller - нужный движку срез дайс-механики. *dice.Roller подходит as is,
// тесты подставляют скриптованные броски.
type Roller interface {
	RollDie(sides int) int
	RollDice(notation string) dice.RollResult
	RollAttack(modifier int) dice.AttackRoll
	RollDamage(notation string, modifier int, critical bool, policy dice.CritPolicy) dice.DamageRoll
}

// Result - структурированный итог исполнения. Вызывающий (оркестрация боя,
// UI) реагирует по нему, не выводя заново, кого задело и кто умер.
type Result struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	TargetKilled bool            `json:"targetKilled,omitempty"`
	TargetID     domain.EntityID `json:"targetId,omitempty"`
	Effects      []string        `json:"effects,omitempty"`
}

// Resolver реализует один тип эффекта: независимая единица, получающая
// контекст исполнения и один эффект, и выполняющая свою мутацию.
type Resolver func(rc *Resolution, effect domain.Effect) (string, error)

// Resolution - состояние одного исполнения, передается резолверам.
type Resolution struct {
	Action    domain.Action
	Performer *domain.Entity
	Target    *domain.Entity
	Ctx       *domain.ActionContext
	TileMap   *world.TileMap

	engine       *Engine
	targetKilled bool
	depth        int // глубина рекурсии skillCheck-веток
}

// Максимальная вложенность skillCheck-веток. Дальше - явно кривые данные.
const maxEffectDepth = 8

// Engine - движок исполнения действий.
type Engine struct {
	roller     Roller
	bus        *events.Bus
	res        *resources.Manager
	worldCfg   *world.Config
	metrics    *observe.Metrics
	critPolicy dice.CritPolicy
	resolvers  map[domain.EffectType]Resolver
}

// NewEngine создает движок и регистрирует встроенные резолверы.
func NewEngine(roller Roller, bus *events.Bus, res *resources.Manager, worldCfg *world.Config, metrics *observe.Metrics, critPolicy dice.CritPolicy) *Engine {
	if worldCfg == nil {
		worldCfg = world.DefaultConfig()
	}
	e := &Engine{
		roller:     roller,
		bus:        bus,
		res:        res,
		worldCfg:   worldCfg,
		metrics:    metrics,
		critPolicy: critPolicy,
		resolvers:  make(map[domain.EffectType]Resolver),
	}
	e.RegisterResolver(domain.EffectDamage, resolveDamage)
	e.RegisterResolver(domain.EffectHealing, resolveHealing)
	e.RegisterResolver(domain.EffectResourceOp, resolveResourceOp)
	e.RegisterResolver(domain.EffectResourceChange, resolveResourceOp) // синоним в старых таблицах
	e.RegisterResolver(domain.EffectSkillCheck, resolveSkillCheck)
	e.RegisterResolver(domain.EffectStatusEffect, resolveStatusEffect)
	e.RegisterResolver(domain.EffectMovement, resolveMovement)
	e.RegisterResolver(domain.EffectEnvironmentChange, resolveEnvironmentChange)
	return e
}

// RegisterResolver регистрирует резолвер типа эффекта.
// Повторная регистрация перезаписывает с предупреждением.
func (e *Engine) RegisterResolver(t domain.EffectType, r Resolver) {
	if _, exists := e.resolvers[t]; exists {
		logger.Log.WithFields(logrus.Fields{
			"component":   "execution",
			"effect_type": t,
		}).Warn("Duplicate effect resolver, overwriting.")
	}
	e.resolvers[t] = r
}

// ExecuteAction - главный вход: проверить требования, списать стоимости,
// применить эффекты. Любое невыполненное требование прерывает исполнение
// БЕЗ каких-либо мутаций состояния.
func (e *Engine) ExecuteAction(action domain.Action, performer, target *domain.Entity, ctx *domain.ActionContext, tileMap *world.TileMap) Result {
	execLogger := logger.Log.WithFields(logrus.Fields{
		"component":    "execution",
		"action_id":    action.ID,
		"performer_id": performer.ID,
	})

	// 1. Требования
	if msg := e.validateRequirements(action, performer, target, ctx, tileMap); msg != "" {
		execLogger.WithField("reason", msg).Debug("Action rejected by requirements.")
		e.metrics.RecordActionExecuted(context.Background(), action.Category.String(), "rejected")
		e.bus.Emit(events.MessageAdded, map[string]any{
			"text": msg, "msgType": "ERROR", "entityId": string(performer.ID),
		})
		return Result{Success: false, Message: msg}
	}

	// 2. Стоимости (атомарно: сначала все проверки, потом все списания)
	if msg := e.applyCosts(action, performer); msg != "" {
		execLogger.WithField("reason", msg).Debug("Action rejected by costs.")
		e.metrics.RecordActionExecuted(context.Background(), action.Category.String(), "rejected")
		e.bus.Emit(events.MessageAdded, map[string]any{
			"text": msg, "msgType": "ERROR", "entityId": string(performer.ID),
		})
		return Result{Success: false, Message: msg}
	}

	// 3. Эффекты в порядке объявления. Сбой одного эффекта логируется и
	// попадает в итог, но НЕ прерывает соседние эффекты.
	rc := &Resolution{
		Action:    action,
		Performer: performer,
		Target:    target,
		Ctx:       ctx,
		TileMap:   tileMap,
		engine:    e,
	}

	var effectMessages []string
	for _, effect := range action.Effects {
		msg, err := e.resolveEffect(rc, effect)
		if err != nil {
			execLogger.WithField("effect_type", effect.Type).WithError(err).
				Error("Effect resolution failed.")
			effectMessages = append(effectMessages, fmt.Sprintf("Эффект %q не сработал.", effect.Type))
			continue
		}
		if msg != "" {
			effectMessages = append(effectMessages, msg)
		}
	}

	message := strings.Join(effectMessages, " ")
	if message == "" {
		message = fmt.Sprintf("%s выполняет: %s.", performer.Name, action.Name)
	}

	// 4. Уведомления и структурированный итог
	result := Result{
		Success:      true,
		Message:      message,
		TargetKilled: rc.targetKilled,
		Effects:      effectMessages,
	}
	if target != nil {
		result.TargetID = target.ID
	}

	e.metrics.RecordActionExecuted(context.Background(), action.Category.String(), "ok")
	e.bus.Emit(events.ActionExecuted, map[string]any{
		"actionId":     action.ID,
		"performerId":  string(performer.ID),
		"targetId":     string(result.TargetID),
		"targetKilled": result.TargetKilled,
	})
	e.bus.Emit(events.MessageAdded, map[string]any{
		"text": message, "msgType": "COMBAT", "entityId": string(performer.ID),
	})

	return result
}

// resolveEffect диспатчит эффект в резолвер. Отсутствующий резолвер - это
// ошибка ("неизвестный тип - явная ошибка, не тихий пропуск"), паника
// резолвера конвертируется в ошибку.
func (e *Engine) resolveEffect(rc *Resolution, effect domain.Effect) (msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg = ""
			err = fmt.Errorf("resolver for %q panicked: %v", effect.Type, r)
		}
	}()

	resolver, ok := e.resolvers[effect.Type]
	if !ok {
		return "", fmt.Errorf("no resolver registered for effect type %q", effect.Type)
	}
	return resolver(rc, effect)
}

// resolveEffectList применяет вложенный список эффектов (ветки skillCheck).
func (e *Engine) resolveEffectList(rc *Resolution, effects []domain.Effect) []string {
	var msgs []string
	for _, effect := range effects {
		msg, err := e.resolveEffect(rc, effect)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"component":   "execution",
				"effect_type": effect.Type,
			}).WithError(err).Error("Nested effect resolution failed.")
			msgs = append(msgs, fmt.Sprintf("Эффект %q не сработал.", effect.Type))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// validateRequirements проверяет все требования по порядку.
// Возвращает пустую строку при успехе, иначе сообщение об отказе.
func (e *Engine) validateRequirements(action domain.Action, performer, target *domain.Entity, ctx *domain.ActionContext, tileMap *world.TileMap) string {
	for _, req := range action.Requirements {
		switch req.Type {
		case domain.RequirementGameMode:
			if ctx == nil || domain.ParseGameMode(req.Target) != ctx.Mode {
				return fmt.Sprintf("Действие доступно только в режиме %s.", req.Target)
			}

		case domain.RequirementResource:
			threshold, ok := domain.NumericValue(req.Value)
			if !ok {
				return fmt.Sprintf("Кривое требование ресурса %q.", req.Target)
			}
			current := float64(e.res.GetCurrentValue(performer.ID, req.Target))
			if !domain.Compare(current, req.Comparison, threshold) {
				return fmt.Sprintf("Не хватает %s.", req.Target)
			}

		case domain.RequirementEquipment:
			if performer.Equipment == nil || !performer.Equipment.HasAnyEquipped() {
				return "Требуется экипировка."
			}
			if req.Target != "" {
				if _, ok := performer.Equipment.Slots[req.Target]; !ok {
					return fmt.Sprintf("Слот %s пуст.", req.Target)
				}
			}

		case domain.RequirementRange:
			if target == nil {
				return "Цель не найдена."
			}
			maxRange, ok := domain.NumericValue(req.Value)
			if !ok {
				maxRange = action.Targeting.Range
			}
			if !withinRange(performer.Pos, target.Pos, maxRange) {
				return "Цель слишком далеко."
			}

		case domain.RequirementLineOfSight:
			// Заглушка: всегда проходит. Настоящая проверка принадлежит
			// фазе таргетинга, которая пока не специфицирована. Известный
			// пробел, не чинить втихую: ужесточение меняет состав доступных
			// действий.
			continue

		default:
			// TILE_PROPERTY, ENTITY_STATE, WORLD_CONDITION: отложены до
			// фазы таргетинга, на исполнении проходят.
			continue
		}
	}

	// Дистанция из дескриптора таргетинга, если цель есть
	if target != nil && action.Targeting.Range > 0 {
		if !withinRange(performer.Pos, target.Pos, action.Targeting.Range) {
			return "Цель слишком далеко."
		}
	}

	return ""
}

// withinRange: ближний бой (дистанция <= 1) меряется по сетке (Чебышёв,
// диагональ - сосед), дальше - евклидово расстояние.
func withinRange(from, to domain.Position, maxRange float64) bool {
	if maxRange <= 1 {
		return from.ChebyshevDistanceTo(to) <= 1
	}
	return from.DistanceTo(to) <= maxRange
}

// applyCosts проверяет и списывает стоимости. RESOURCE-стоимости атомарны:
// сперва проверяются все, списываются тоже все - либо ничего.
// ACTION_POINT и MOVEMENT здесь только логируются: гейтит их экономика
// менеджера ходов, а не движок исполнения.
func (e *Engine) applyCosts(action domain.Action, performer *domain.Entity) string {
	type charge struct {
		resource string
		amount   int
	}
	var charges []charge

	for _, cost := range action.Costs {
		switch cost.Type {
		case domain.CostResource:
			amount := e.evalAmount(cost.Amount)
			if e.res.GetCurrentValue(performer.ID, cost.Resource) < amount {
				return fmt.Sprintf("Недостаточно %s.", cost.Resource)
			}
			charges = append(charges, charge{resource: cost.Resource, amount: amount})
		default:
			logger.Log.WithFields(logrus.Fields{
				"component": "execution",
				"cost_type": cost.Type.String(),
				"amount":    cost.Amount,
				"entity_id": performer.ID,
			}).Debug("Non-resource cost noted.")
		}
	}

	for _, ch := range charges {
		e.res.Modify(performer.ID, ch.resource, -ch.amount, true)
	}
	return ""
}

// evalAmount вычисляет стоимость: целочисленный литерал или нотация кубиков.
func (e *Engine) evalAmount(amount string) int {
	if n, err := strconv.Atoi(amount); err == nil {
		return n
	}
	return e.roller.RollDice(amount).Total
}
