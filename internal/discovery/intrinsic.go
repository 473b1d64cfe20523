package discovery

import (
	"github.com/smaran-m/roguelike-agent-sub001/internal/catalog"
	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
)

// IntrinsicSource отдает базовые действия, доступные любой сущности:
// шаг, ожидание, удар без оружия, уклонение, рывок. Таблица берется из
// каталога (со встроенным запасным набором).
type IntrinsicSource struct {
	catalog *catalog.Catalog
}

// NewIntrinsicSource создает источник поверх каталога действий.
func NewIntrinsicSource(c *catalog.Catalog) *IntrinsicSource {
	return &IntrinsicSource{catalog: c}
}

// CanActivate: интринсики доступны всегда.
func (s *IntrinsicSource) CanActivate(ctx *domain.ActionContext) bool {
	return true
}

// AvailableActions возвращает действия таблицы, прошедшие раннюю проверку
// требований. На этапе discovery честно проверяются только GAME_MODE,
// RESOURCE и EQUIPMENT: RANGE, LINE_OF_SIGHT, TILE_PROPERTY и ENTITY_STATE
// зависят от конкретной цели и откладываются до фазы таргетинга - здесь
// они всегда проходят. Не ужесточать: это изменит состав выдачи.
func (s *IntrinsicSource) AvailableActions(ctx *domain.ActionContext) []domain.Action {
	base := s.catalog.BaseActions()
	out := make([]domain.Action, 0, len(base))
	for _, a := range base {
		if eagerRequirementsPass(a.Requirements, ctx) {
			out = append(out, a)
		}
	}
	return out
}

// Priority: интринсики идут первыми.
func (s *IntrinsicSource) Priority() int { return 100 }

func (s *IntrinsicSource) Description() string {
	return "Базовые действия, доступные любой сущности"
}

// eagerRequirementsPass - ранняя валидация требований на этапе discovery.
func eagerRequirementsPass(reqs []domain.Requirement, ctx *domain.ActionContext) bool {
	for _, req := range reqs {
		switch req.Type {
		case domain.RequirementGameMode:
			if domain.ParseGameMode(req.Target) != ctx.Mode {
				return false
			}
		case domain.RequirementResource:
			threshold, ok := domain.NumericValue(req.Value)
			if !ok {
				return false
			}
			current := float64(ctx.Resource(req.Target).Current)
			if !domain.Compare(current, req.Comparison, threshold) {
				return false
			}
		case domain.RequirementEquipment:
			if !ctx.HasEquipped(req.Target) {
				return false
			}
		default:
			// RANGE, LINE_OF_SIGHT, TILE_PROPERTY, ENTITY_STATE,
			// WORLD_CONDITION: проверяются при выборе цели, здесь проходят.
		}
	}
	return true
}
