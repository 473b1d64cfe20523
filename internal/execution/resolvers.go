package execution

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// effectTarget выбирает сущность-адресата эффекта.
func effectTarget(rc *Resolution, effect domain.Effect) (*domain.Entity, error) {
	switch effect.Target {
	case domain.TargetSelf:
		return rc.Performer, nil
	case domain.TargetTarget, domain.TargetArea:
		if rc.Target == nil {
			return nil, fmt.Errorf("effect %q requires a target", effect.Type)
		}
		return rc.Target, nil
	default:
		return rc.Performer, nil
	}
}

// rollAmount бросает "2d6"-нотацию либо читает литерал.
func rollAmount(rc *Resolution, amount string) int {
	if amount == "" {
		return 0
	}
	if n, err := strconv.Atoi(amount); err == nil {
		return n
	}
	return rc.engine.roller.RollDice(amount).Total
}

// abilityMod возвращает модификатор способности исполнителя, 0 если
// способность не задана или у сущности нет статов.
func abilityMod(entity *domain.Entity, ability string) int {
	if ability == "" || entity.Stats == nil {
		return 0
	}
	return entity.Stats.AbilityModifier(ability)
}

// resolveDamage: опциональный атакующий бросок d20 против AC цели, затем
// бросок урона с множителем мира (сопротивления/уязвимости/иммунитеты)
// и списание ресурса. Убитая цель порождает EntityDied (+EnemyDied).
func resolveDamage(rc *Resolution, effect domain.Effect) (string, error) {
	var params domain.DamageParams
	if err := effect.DecodeParams(&params); err != nil {
		return "", err
	}

	target, err := effectTarget(rc, effect)
	if err != nil {
		return "", err
	}

	e := rc.engine
	mod := abilityMod(rc.Performer, params.Ability)
	critical := false

	if params.AttackRoll {
		attack := e.roller.RollAttack(mod)
		ac := 10
		if target.Stats != nil {
			ac = target.Stats.ArmorClass
		}
		hit := attack.Critical || (!attack.CriticalFailure && attack.Total >= ac)
		critical = attack.Critical

		e.bus.Emit(events.CheckRolled, map[string]any{
			"kind":     "attack",
			"entityId": string(rc.Performer.ID),
			"roll":     attack.Roll,
			"total":    attack.Total,
			"against":  ac,
			"success":  hit,
			"critical": attack.Critical,
		})

		if !hit {
			return fmt.Sprintf("%s промахивается по %s.", rc.Performer.Name, target.Name), nil
		}
	}

	dmg := e.roller.RollDamage(params.Amount, mod, critical, e.critPolicy)

	multiplier := e.worldCfg.DamageMultiplier(params.DamageType, target.Tags)
	final := int(float64(dmg.Total) * multiplier)
	if final < 0 {
		final = 0
	}

	resource := params.Resource
	if resource == "" {
		resource = "hp"
	}
	e.res.Modify(target.ID, resource, -final, true)

	e.bus.Emit(events.DamageDealt, map[string]any{
		"attackerId": string(rc.Performer.ID),
		"targetId":   string(target.ID),
		"damage":     final,
		"damageType": params.DamageType,
		"critical":   critical,
	})

	msg := fmt.Sprintf("%s наносит %d урона по %s.", rc.Performer.Name, final, target.Name)
	if critical {
		msg = fmt.Sprintf("Критический удар! %s", msg)
	}

	// Пол любого ресурса, по которому бьет урон, означает смерть цели
	if e.res.IsAtMinimum(target.ID, resource) {
		if target.Stats != nil {
			target.Stats.IsDead = true
		}
		rc.targetKilled = true
		e.bus.Emit(events.EntityDied, map[string]any{
			"entityId": string(target.ID), "killerId": string(rc.Performer.ID),
		})
		if target.IsHostile() {
			e.bus.Emit(events.EnemyDied, map[string]any{
				"entityId": string(target.ID), "killerId": string(rc.Performer.ID),
			})
		}
		msg = fmt.Sprintf("%s %s погибает.", msg, target.Name)
	}

	return msg, nil
}

// resolveHealing восстанавливает ресурс (по умолчанию hp) с зажимом к максимуму.
func resolveHealing(rc *Resolution, effect domain.Effect) (string, error) {
	var params domain.HealingParams
	if err := effect.DecodeParams(&params); err != nil {
		return "", err
	}

	target, err := effectTarget(rc, effect)
	if err != nil {
		return "", err
	}

	amount := rollAmount(rc, params.Amount) + abilityMod(rc.Performer, params.Ability)
	if amount < 0 {
		amount = 0
	}

	resource := params.Resource
	if resource == "" {
		resource = "hp"
	}
	rc.engine.res.Modify(target.ID, resource, amount, true)

	return fmt.Sprintf("%s восстанавливает %d %s.", target.Name, amount, resource), nil
}

// resolveResourceOp - обобщенные операции над ресурсом:
// add, subtract, set, multiply, min, max. Значение - литерал или кубики.
// min/max двигают текущее значение к границе: min опускает, max поднимает.
func resolveResourceOp(rc *Resolution, effect domain.Effect) (string, error) {
	var params domain.ResourceOpParams
	if err := effect.DecodeParams(&params); err != nil {
		return "", err
	}
	if params.Resource == "" {
		return "", fmt.Errorf("resourceOp without resource name")
	}

	target, err := effectTarget(rc, effect)
	if err != nil {
		return "", err
	}

	res := rc.engine.res
	value := rollAmount(rc, params.Value)
	current := res.GetCurrentValue(target.ID, params.Resource)

	switch params.Operation {
	case "add", "":
		res.Modify(target.ID, params.Resource, value, params.Clamp)
	case "subtract":
		res.Modify(target.ID, params.Resource, -value, params.Clamp)
	case "set":
		res.Set(target.ID, params.Resource, value, params.Clamp)
	case "multiply":
		factor := params.Factor
		if factor == 0 {
			factor = 1
		}
		res.Set(target.ID, params.Resource, int(float64(current)*factor), params.Clamp)
	case "min":
		if current > value {
			res.Set(target.ID, params.Resource, value, params.Clamp)
		}
	case "max":
		if current < value {
			res.Set(target.ID, params.Resource, value, params.Clamp)
		}
	default:
		return "", fmt.Errorf("unknown resource operation %q", params.Operation)
	}

	updated := res.GetCurrentValue(target.ID, params.Resource)
	return fmt.Sprintf("%s: %s теперь %d.", target.Name, params.Resource, updated), nil
}

// resolveSkillCheck - проверка навыка: d20 + модификатор способности против
// фиксированной сложности (DC) либо состязание с оппонентами в радиусе.
// Успех запускает ветку OnSuccess, провал - OnFailure.
func resolveSkillCheck(rc *Resolution, effect domain.Effect) (string, error) {
	if rc.depth >= maxEffectDepth {
		return "", fmt.Errorf("skill check nesting exceeds %d levels", maxEffectDepth)
	}

	var params domain.SkillCheckParams
	if err := effect.DecodeParams(&params); err != nil {
		return "", err
	}

	e := rc.engine
	mod := abilityMod(rc.Performer, params.Ability)
	roll := e.roller.RollDie(20)
	total := roll + mod

	var success bool
	if params.DC > 0 {
		success = float64(total) >= params.DC
	} else {
		success = contestOpponents(rc, params, total)
	}

	e.bus.Emit(events.CheckRolled, map[string]any{
		"kind":     "skill",
		"entityId": string(rc.Performer.ID),
		"skill":    params.Skill,
		"roll":     roll,
		"total":    total,
		"against":  params.DC,
		"success":  success,
	})

	outcome := "провалена"
	branch := effect.OnFailure
	if success {
		outcome = "пройдена"
		branch = effect.OnSuccess
	}
	msg := fmt.Sprintf("Проверка %s %s (%d).", params.Skill, outcome, total)

	rc.depth++
	nested := e.resolveEffectList(rc, branch)
	rc.depth--

	if len(nested) > 0 {
		msg = msg + " " + strings.Join(nested, " ")
	}
	return msg, nil
}

// contestOpponents проводит состязание: каждый видимый оппонент в радиусе
// бросает d20 с тем же модификатором способности. Режим any (по умолчанию)
// требует превзойти хотя бы одного, all - всех. Без оппонентов проверка
// считается пройденной.
func contestOpponents(rc *Resolution, params domain.SkillCheckParams, total int) bool {
	if rc.Ctx == nil {
		return true
	}

	radius := params.ContestRadius
	if radius <= 0 {
		radius = 3
	}

	var beaten, contested int
	for _, opp := range rc.Ctx.VisibleEntities {
		if opp == nil || opp.ID == rc.Performer.ID {
			continue
		}
		if rc.Performer.Pos.DistanceTo(opp.Pos) > radius {
			continue
		}
		contested++
		oppTotal := rc.engine.roller.RollDie(20) + abilityMod(opp, params.Ability)
		if total > oppTotal {
			beaten++
		}
	}

	if contested == 0 {
		return true
	}
	if params.ContestMode == "all" {
		return beaten == contested
	}
	return beaten > 0
}

// resolveStatusEffect добавляет или снимает статус. Повторное добавление
// освежает длительность (семантика StatusComponent.Add).
func resolveStatusEffect(rc *Resolution, effect domain.Effect) (string, error) {
	var params domain.StatusEffectParams
	if err := effect.DecodeParams(&params); err != nil {
		return "", err
	}
	if params.Status == "" {
		return "", fmt.Errorf("statusEffect without status name")
	}

	target, err := effectTarget(rc, effect)
	if err != nil {
		return "", err
	}

	if target.Statuses == nil {
		target.Statuses = &domain.StatusComponent{}
	}

	if params.Operation == "remove" {
		if target.Statuses.Remove(params.Status) {
			return fmt.Sprintf("%s теряет статус %s.", target.Name, params.Status), nil
		}
		return "", nil
	}

	target.Statuses.Add(domain.StatusEffect{
		Name:     params.Status,
		Duration: params.Duration,
	})
	return fmt.Sprintf("%s получает статус %s.", target.Name, params.Status), nil
}

// resolveMovement сдвигает исполнителя. Направление приходит отдельными
// параметрами dx/dy, которые внешний слой (UI, AI) дописывает в момент
// выбора клетки; без них эффект лишь декларирует дистанцию.
func resolveMovement(rc *Resolution, effect domain.Effect) (string, error) {
	var params struct {
		domain.MovementParams
		DX int `json:"dx"`
		DY int `json:"dy"`
	}
	if err := effect.DecodeParams(&params); err != nil {
		return "", err
	}

	if params.DX == 0 && params.DY == 0 {
		return "", nil
	}

	dest := rc.Performer.Pos.Shift(params.DX, params.DY)
	if rc.TileMap != nil && !rc.TileMap.GetTile(dest.X, dest.Y).Walkable {
		return "Туда не пройти.", nil
	}

	from := rc.Performer.Pos
	rc.Performer.Pos = dest
	rc.engine.bus.Emit(events.EntityMoved, map[string]any{
		"entityId": string(rc.Performer.ID),
		"fromX":    from.X, "fromY": from.Y,
		"toX": dest.X, "toY": dest.Y,
	})
	return "", nil
}

// resolveEnvironmentChange только объявляет изменение: сама карта и
// объекты на ней принадлежат внешнему миру, движок публикует намерение.
func resolveEnvironmentChange(rc *Resolution, effect domain.Effect) (string, error) {
	var params struct {
		Change string `json:"change"`
	}
	if err := effect.DecodeParams(&params); err != nil {
		return "", err
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "execution",
		"change":    params.Change,
		"entity_id": rc.Performer.ID,
	}).Info("Environment change requested.")

	if params.Change == "" {
		return "", nil
	}
	return fmt.Sprintf("Окружение меняется: %s.", params.Change), nil
}
