// Package discovery находит легальные действия сущности: источники (частый
// путь, опрашиваются всегда) плюс провайдеры (редкие динамические гранты),
// кэширование контекста и результатов, детерминированное ранжирование.
package discovery

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Source - высокоприоритетный поставщик действий. Опрашивается на каждом
// discovery-вызове, поэтому CanActivate обязан быть дешевым:
// O(экипировка) или O(1).
type Source interface {
	CanActivate(ctx *domain.ActionContext) bool
	AvailableActions(ctx *domain.ActionContext) []domain.Action
	Priority() int
	Description() string
}

// Provider - поставщик редких/динамических действий. Отвечает на более
// широкий ActionQuery и целиком пропускается при StrictSourcesOnly.
// Это разделение 90/10: источники покрывают частый путь, провайдеры -
// гранты от статусов и прочую экзотику.
type Provider interface {
	CanProvideActions(q domain.ActionQuery) bool
	ProvideActions(q domain.ActionQuery) []domain.Action
}

// Registry хранит источники и провайдеры по id в порядке регистрации.
type Registry struct {
	sources       map[string]Source
	sourceOrder   []string
	providers     map[string]Provider
	providerOrder []string
}

// NewRegistry создает пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		sources:   make(map[string]Source),
		providers: make(map[string]Provider),
	}
}

// RegisterSource регистрирует источник. Повторный id перезаписывает
// старый источник с предупреждением в лог.
func (r *Registry) RegisterSource(id string, s Source) {
	if _, exists := r.sources[id]; exists {
		logger.Log.WithFields(logrus.Fields{
			"component": "discovery",
			"source_id": id,
		}).Warn("Duplicate action source id, overwriting.")
	} else {
		r.sourceOrder = append(r.sourceOrder, id)
	}
	r.sources[id] = s
}

// UnregisterSource снимает источник с учета. Отсутствующий id - no-op.
func (r *Registry) UnregisterSource(id string) {
	if _, exists := r.sources[id]; !exists {
		return
	}
	delete(r.sources, id)
	for i, v := range r.sourceOrder {
		if v == id {
			r.sourceOrder = append(r.sourceOrder[:i], r.sourceOrder[i+1:]...)
			break
		}
	}
}

// RegisterProvider регистрирует провайдер (семантика как у RegisterSource).
func (r *Registry) RegisterProvider(id string, p Provider) {
	if _, exists := r.providers[id]; exists {
		logger.Log.WithFields(logrus.Fields{
			"component":   "discovery",
			"provider_id": id,
		}).Warn("Duplicate action provider id, overwriting.")
	} else {
		r.providerOrder = append(r.providerOrder, id)
	}
	r.providers[id] = p
}

// UnregisterProvider снимает провайдер с учета.
func (r *Registry) UnregisterProvider(id string) {
	if _, exists := r.providers[id]; !exists {
		return
	}
	delete(r.providers, id)
	for i, v := range r.providerOrder {
		if v == id {
			r.providerOrder = append(r.providerOrder[:i], r.providerOrder[i+1:]...)
			break
		}
	}
}

type registeredSource struct {
	ID     string
	Source Source
}

// sourcesByPriority возвращает источники по убыванию приоритета.
// При равных приоритетах сохраняется порядок регистрации (stable).
func (r *Registry) sourcesByPriority() []registeredSource {
	out := make([]registeredSource, 0, len(r.sourceOrder))
	for _, id := range r.sourceOrder {
		out = append(out, registeredSource{ID: id, Source: r.sources[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Source.Priority() > out[j].Source.Priority()
	})
	return out
}

type registeredProvider struct {
	ID       string
	Provider Provider
}

func (r *Registry) orderedProviders() []registeredProvider {
	out := make([]registeredProvider, 0, len(r.providerOrder))
	for _, id := range r.providerOrder {
		out = append(out, registeredProvider{ID: id, Provider: r.providers[id]})
	}
	return out
}
