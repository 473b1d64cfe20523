package discovery

import "github.com/smaran-m/roguelike-agent-sub001/internal/domain"

// StatusEffectProvider отдает действия, дарованные активными статусами
// (благословение, дарующее дополнительную атаку, и т.п.). Классический
// кандидат во вторую фазу: почти всегда отвечает "нечего", поэтому
// дешевый CanProvideActions стоит перед настоящей работой.
type StatusEffectProvider struct{}

// NewStatusEffectProvider создает провайдер статусных действий.
func NewStatusEffectProvider() *StatusEffectProvider {
	return &StatusEffectProvider{}
}

// CanProvideActions: есть ли у исполнителя хоть один статус с грантами.
func (p *StatusEffectProvider) CanProvideActions(q domain.ActionQuery) bool {
	performer := q.Context.Performer
	if performer == nil || performer.Statuses == nil {
		return false
	}
	for _, st := range performer.Statuses.Active {
		if len(st.Grants) > 0 {
			return true
		}
	}
	return false
}

// ProvideActions собирает гранты всех активных статусов, применяя фильтры
// запроса. Лимит результатов режет здесь, а не в пайплайне: провайдер
// знает свои данные и не делает лишней работы.
func (p *StatusEffectProvider) ProvideActions(q domain.ActionQuery) []domain.Action {
	var out []domain.Action
	for _, st := range q.Context.Performer.Statuses.Active {
		for _, a := range st.Grants {
			if a.Source == "" {
				a.Source = "status:" + st.Name
			}
			if q.HasCategory && a.Category != q.Category {
				continue
			}
			out = append(out, a)
			if q.MaxResults > 0 && len(out) >= q.MaxResults {
				return out
			}
		}
	}
	return out
}
