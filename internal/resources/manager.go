// Package resources реализует универсальное хранилище именованных ресурсов
// сущностей (hp, mana, stamina...) с необязательными границами.
package resources

import (
	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Resource - один ресурс с границами. Current всегда в [Minimum, Maximum]
// после модификаций с clamp=true.
type Resource struct {
	Current int `json:"current"`
	Maximum int `json:"maximum"`
	Minimum int `json:"minimum"`
}

// Manager - владелец всех ресурсов всех сущностей. Внешний код обязан
// ходить через его методы, а не мутировать значения напрямую: иначе
// поломаются правила клампинга и резистов.
type Manager struct {
	table map[domain.EntityID]map[string]*Resource
}

// NewManager создает пустой менеджер ресурсов.
func NewManager() *Manager {
	return &Manager{table: make(map[domain.EntityID]map[string]*Resource)}
}

// Define регистрирует ресурс сущности. Повторный вызов перезаписывает.
func (m *Manager) Define(entity domain.EntityID, id string, current, minimum, maximum int) {
	if m.table[entity] == nil {
		m.table[entity] = make(map[string]*Resource)
	}
	m.table[entity][id] = &Resource{Current: current, Minimum: minimum, Maximum: maximum}
}

func (m *Manager) lookup(entity domain.EntityID, id string) *Resource {
	if res, ok := m.table[entity][id]; ok {
		return res
	}
	logger.Log.WithFields(logrus.Fields{
		"component": "resource_manager",
		"entity_id": entity,
		"resource":  id,
	}).Debug("Unknown resource requested.")
	return nil
}

// GetCurrentValue возвращает текущее значение ресурса (0, если его нет).
func (m *Manager) GetCurrentValue(entity domain.EntityID, id string) int {
	if res := m.lookup(entity, id); res != nil {
		return res.Current
	}
	return 0
}

// GetMaximumValue возвращает максимум ресурса (0, если его нет).
func (m *Manager) GetMaximumValue(entity domain.EntityID, id string) int {
	if res := m.lookup(entity, id); res != nil {
		return res.Maximum
	}
	return 0
}

// GetResource возвращает копию ресурса и флаг его существования.
func (m *Manager) GetResource(entity domain.EntityID, id string) (Resource, bool) {
	if res := m.lookup(entity, id); res != nil {
		return *res, true
	}
	return Resource{}, false
}

// Modify сдвигает текущее значение на delta. При clamp результат зажимается
// в [Minimum, Maximum]. Возвращает новое значение.
func (m *Manager) Modify(entity domain.EntityID, id string, delta int, clamp bool) int {
	res := m.lookup(entity, id)
	if res == nil {
		return 0
	}
	res.Current += delta
	if clamp {
		res.clampCurrent()
	}
	return res.Current
}

// Set выставляет текущее значение напрямую (с опциональным клампингом).
func (m *Manager) Set(entity domain.EntityID, id string, value int, clamp bool) int {
	res := m.lookup(entity, id)
	if res == nil {
		return 0
	}
	res.Current = value
	if clamp {
		res.clampCurrent()
	}
	return res.Current
}

// IsAtMinimum возвращает true, если ресурс на полу (для hp это смерть).
// Несуществующий ресурс считается на полу.
func (m *Manager) IsAtMinimum(entity domain.EntityID, id string) bool {
	res := m.lookup(entity, id)
	if res == nil {
		return true
	}
	return res.Current <= res.Minimum
}

// Snapshot возвращает копию всех ресурсов сущности для ActionContext.
func (m *Manager) Snapshot(entity domain.EntityID) map[string]domain.ResourceValue {
	out := make(map[string]domain.ResourceValue, len(m.table[entity]))
	for id, res := range m.table[entity] {
		out[id] = domain.ResourceValue{Current: res.Current, Maximum: res.Maximum}
	}
	return out
}

// Drop удаляет все ресурсы сущности (смерть, уход с уровня).
func (m *Manager) Drop(entity domain.EntityID) {
	delete(m.table, entity)
}

func (r *Resource) clampCurrent() {
	if r.Current < r.Minimum {
		r.Current = r.Minimum
	}
	if r.Current > r.Maximum {
		r.Current = r.Maximum
	}
}
