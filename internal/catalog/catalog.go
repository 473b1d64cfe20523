// Package catalog грузит таблицы определений (действия, предметы) из JSON.
// Таблицы читаются один раз и дальше используются как read-only справочники.
// Кривой JSON действий деградирует к минимальному встроенному набору,
// а не роняет движок.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Catalog - справочники по id.
type Catalog struct {
	actions     map[string]domain.Action
	actionOrder []string // порядок загрузки, для детерминированной выдачи
	items       map[string]domain.Item
}

// New создает каталог со встроенным базовым набором действий.
func New() *Catalog {
	c := &Catalog{
		actions: make(map[string]domain.Action),
		items:   make(map[string]domain.Item),
	}
	for _, a := range builtinActions() {
		c.putAction(a)
	}
	return c
}

func (c *Catalog) putAction(a domain.Action) {
	if _, exists := c.actions[a.ID]; !exists {
		c.actionOrder = append(c.actionOrder, a.ID)
	}
	c.actions[a.ID] = a
}

// Action возвращает действие по id.
func (c *Catalog) Action(id string) (domain.Action, bool) {
	a, ok := c.actions[id]
	return a, ok
}

// BaseActions возвращает все действия каталога в порядке загрузки.
// Это таблица интринсик-источника.
func (c *Catalog) BaseActions() []domain.Action {
	out := make([]domain.Action, 0, len(c.actionOrder))
	for _, id := range c.actionOrder {
		out = append(out, c.actions[id])
	}
	return out
}

// Item возвращает предмет по id.
func (c *Catalog) Item(id string) (domain.Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// LoadActionsFile читает таблицу действий из файла. Ошибка чтения или разбора
// НЕ фатальна: каталог остается на встроенном наборе (задокументированная
// деградация для плохих данных).
func (c *Catalog) LoadActionsFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"component": "catalog",
			"path":      path,
		}).WithError(err).Warn("Cannot open action table, keeping built-in actions.")
		return
	}
	defer f.Close()

	if err := c.LoadActions(f); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"component": "catalog",
			"path":      path,
		}).WithError(err).Warn("Malformed action table, keeping built-in actions.")
	}
}

// LoadActions декодирует список действий из reader и добавляет их в каталог.
// Действие с уже известным id перезаписывает старое.
func (c *Catalog) LoadActions(r io.Reader) error {
	var defs []actionDef
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return fmt.Errorf("decode action table: %w", err)
	}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("action table: entry without id")
		}
		c.putAction(d.toAction())
	}
	return nil
}

// LoadItems декодирует таблицу предметов (map id -> предмет).
func (c *Catalog) LoadItems(r io.Reader) error {
	var defs map[string]domain.Item
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return fmt.Errorf("decode item table: %w", err)
	}
	for id, it := range defs {
		it.ID = id
		c.items[id] = it
	}
	return nil
}

// LoadItemsFile читает таблицу предметов из файла.
func (c *Catalog) LoadItemsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("item table: open %q: %w", path, err)
	}
	defer f.Close()
	return c.LoadItems(f)
}

// --- Wire-формат таблицы действий ---
// Числовые enum-типы домена в JSON представлены строками, поэтому таблица
// декодируется через промежуточные структуры.

type actionDef struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Source       string           `json:"source"`
	Category     string           `json:"category"`
	Requirements []requirementDef `json:"requirements"`
	Costs        []costDef        `json:"costs"`
	Effects      []effectDef      `json:"effects"`
	Targeting    targetingDef     `json:"targeting"`
	Priority     int              `json:"priority"`
	Icon         string           `json:"icon"`
}

type requirementDef struct {
	Type        string `json:"type"`
	Target      string `json:"target"`
	Value       any    `json:"value"`
	Comparison  string `json:"comparison"`
	Description string `json:"description"`
}

type costDef struct {
	Type        string `json:"type"`
	Resource    string `json:"resource"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type effectDef struct {
	Type      string         `json:"type"`
	Target    string         `json:"target"`
	Params    map[string]any `json:"params"`
	Timing    string         `json:"timing"`
	OnSuccess []effectDef    `json:"onSuccess"`
	OnFailure []effectDef    `json:"onFailure"`
}

type targetingDef struct {
	Kind        string  `json:"kind"`
	Range       float64 `json:"range"`
	RequiresLOS bool    `json:"requiresLos"`
	AreaRadius  float64 `json:"areaRadius"`
}

func (d actionDef) toAction() domain.Action {
	a := domain.Action{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Source:      d.Source,
		Category:    domain.ParseActionCategory(d.Category),
		Priority:    d.Priority,
		Icon:        d.Icon,
		Targeting: domain.Targeting{
			Kind:        d.Targeting.Kind,
			Range:       d.Targeting.Range,
			RequiresLOS: d.Targeting.RequiresLOS,
			AreaRadius:  d.Targeting.AreaRadius,
		},
	}
	if a.Source == "" {
		a.Source = "intrinsic"
	}
	for _, r := range d.Requirements {
		a.Requirements = append(a.Requirements, domain.Requirement{
			Type:        domain.ParseRequirementType(r.Type),
			Target:      r.Target,
			Value:       r.Value,
			Comparison:  r.Comparison,
			Description: r.Description,
		})
	}
	for _, cst := range d.Costs {
		a.Costs = append(a.Costs, domain.Cost{
			Type:        domain.ParseCostType(cst.Type),
			Resource:    cst.Resource,
			Amount:      cst.Amount,
			Description: cst.Description,
		})
	}
	for _, e := range d.Effects {
		a.Effects = append(a.Effects, e.toEffect())
	}
	return a
}

func (d effectDef) toEffect() domain.Effect {
	e := domain.Effect{
		Type:   domain.EffectType(d.Type),
		Target: domain.ParseEffectTarget(d.Target),
		Params: d.Params,
		Timing: domain.ParseEffectTiming(d.Timing),
	}
	for _, s := range d.OnSuccess {
		e.OnSuccess = append(e.OnSuccess, s.toEffect())
	}
	for _, f := range d.OnFailure {
		e.OnFailure = append(e.OnFailure, f.toEffect())
	}
	return e
}
