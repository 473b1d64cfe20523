package discovery

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/smaran-m/roguelike-agent-sub001/internal/catalog"
	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/internal/resources"
	"github.com/smaran-m/roguelike-agent-sub001/internal/world"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// stubSource - синтетический источник для тестов пайплайна.
type stubSource struct {
	active   bool
	priority int
	actions  []domain.Action
	panics   bool
}

func (s *stubSource) CanActivate(*domain.ActionContext) bool { return s.active }
func (s *stubSource) AvailableActions(*domain.ActionContext) []domain.Action {
	if s.panics {
		panic("misbehaving source")
	}
	return s.actions
}
func (s *stubSource) Priority() int       { return s.priority }
func (s *stubSource) Description() string { return "stub" }

// fakeClock дает управляемое время вместо сна ради TTL.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestPipeline(res *resources.Manager) (*Pipeline, *fakeClock) {
	p := NewPipeline(NewRegistry(), res, nil, PipelineConfig{})
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p.now = clock.now
	return p, clock
}

func testEntity(id string) *domain.Entity {
	return &domain.Entity{
		ID:    domain.EntityID(id),
		Name:  id,
		Type:  domain.EntityTypePlayer,
		Pos:   domain.Position{X: 2, Y: 2},
		Stats: &domain.StatsComponent{Strength: 14, Dexterity: 12},
	}
}

func TestDiscoveryDeterminismAndInvalidation(t *testing.T) {
	res := resources.NewManager()
	p, clock := newTestPipeline(res)
	p.registry.RegisterSource("intrinsic", NewIntrinsicSource(catalog.New()))

	bus := events.NewBus()
	p.BindBus(bus)

	e := testEntity("hero")
	m := world.NewArena(10, 10)

	first := p.DiscoverActions(e, domain.ModeExploration, nil, m, nil)
	clock.advance(100 * time.Millisecond)
	second := p.DiscoverActions(e, domain.ModeExploration, nil, m, nil)

	// Внутри TTL второй вызов обязан вернуть бит-идентичный список
	if !reflect.DeepEqual(first.Actions, second.Actions) {
		t.Error("Cached call must return an identical action list")
	}

	// Событие перемещения сбрасывает кэши: результат пересчитывается
	bus.Emit(events.EntityMoved, map[string]any{"entityId": "hero"})
	third := p.DiscoverActions(e, domain.ModeExploration, nil, m, nil)
	if len(third.Actions) == 0 {
		t.Fatal("Recomputed discovery must still produce actions")
	}
	if third.SourceResults["intrinsic"] == 0 {
		t.Error("SourceResults must report intrinsic contribution")
	}
}

func TestResultCacheExpiry(t *testing.T) {
	res := resources.NewManager()
	p, clock := newTestPipeline(res)

	src := &stubSource{active: true, priority: 10, actions: []domain.Action{{ID: "a1", Name: "A"}}}
	p.registry.RegisterSource("stub", src)

	e := testEntity("hero")
	p.DiscoverActions(e, domain.ModeExploration, nil, nil, nil)

	// Меняем источник: пока TTL жив, выдача не меняется
	src.actions = []domain.Action{{ID: "a2", Name: "B"}}
	cached := p.DiscoverActions(e, domain.ModeExploration, nil, nil, nil)
	if cached.Actions[0].ID != "a1" {
		t.Error("Within TTL the stale cached result must be returned")
	}

	clock.advance(2 * time.Second)
	fresh := p.DiscoverActions(e, domain.ModeExploration, nil, nil, nil)
	if fresh.Actions[0].ID != "a2" {
		t.Error("After TTL expiry the result must be recomputed")
	}
}

func TestRankingDeterministic(t *testing.T) {
	res := resources.NewManager()
	p, _ := newTestPipeline(res)

	// Три действия с одинаковым приоритетом: порядок задают категория и имя
	p.registry.RegisterSource("stub", &stubSource{active: true, priority: 10, actions: []domain.Action{
		{ID: "c", Name: "Гамма", Category: domain.CategoryAttack, Priority: 5},
		{ID: "a", Name: "Бета", Category: domain.CategoryAttack, Priority: 5},
		{ID: "b", Name: "Альфа", Category: domain.CategoryMovement, Priority: 5},
	}})

	got := p.DiscoverActions(testEntity("hero"), domain.ModeExploration, nil, nil, nil)

	wantOrder := []string{"b", "a", "c"} // movement < attack, затем имя
	for i, id := range wantOrder {
		if got.Actions[i].ID != id {
			t.Errorf("Position %d: got %q, want %q (full: %+v)", i, got.Actions[i].ID, id, got.Actions)
		}
	}
}

func TestPriorityBeatsCategory(t *testing.T) {
	res := resources.NewManager()
	p, _ := newTestPipeline(res)

	p.registry.RegisterSource("stub", &stubSource{active: true, priority: 10, actions: []domain.Action{
		{ID: "low", Name: "A", Category: domain.CategoryMovement, Priority: 1},
		{ID: "high", Name: "Z", Category: domain.CategorySocial, Priority: 9},
	}})

	got := p.DiscoverActions(testEntity("hero"), domain.ModeExploration, nil, nil, nil)
	if got.Actions[0].ID != "high" {
		t.Error("Higher priority must sort first regardless of category")
	}
}

func TestResourceRequirementGating(t *testing.T) {
	cat := catalog.New()
	// Таблица интринсиков с действием, требующим ману
	table := `[{
		"id": "mana_blast",
		"name": "Разряд",
		"source": "intrinsic",
		"category": "magic",
		"requirements": [
			{"type": "RESOURCE", "target": "mana", "value": 5, "comparison": ">="}
		]
	}]`
	if err := cat.LoadActions(strings.NewReader(table)); err != nil {
		t.Fatalf("LoadActions: %v", err)
	}

	res := resources.NewManager()
	e := testEntity("hero")
	res.Define(e.ID, "mana", 4, 0, 10)

	p, _ := newTestPipeline(res)
	p.registry.RegisterSource("intrinsic", NewIntrinsicSource(cat))

	got := p.DiscoverActions(e, domain.ModeExploration, nil, nil, nil)
	if containsAction(got.Actions, "mana_blast") {
		t.Error("mana 4 < 5: action must be excluded")
	}

	res.Set(e.ID, "mana", 5, true)
	p.ClearCaches()
	got = p.DiscoverActions(e, domain.ModeExploration, nil, nil, nil)
	if !containsAction(got.Actions, "mana_blast") {
		t.Error("mana 5 >= 5: action must be included")
	}
}

func TestPanickingSourceIsolated(t *testing.T) {
	res := resources.NewManager()
	p, _ := newTestPipeline(res)

	p.registry.RegisterSource("bad", &stubSource{active: true, priority: 50, panics: true})
	p.registry.RegisterSource("good", &stubSource{active: true, priority: 10, actions: []domain.Action{{ID: "ok", Name: "OK"}}})

	got := p.DiscoverActions(testEntity("hero"), domain.ModeExploration, nil, nil, nil)

	if !containsAction(got.Actions, "ok") {
		t.Error("Healthy source must contribute despite a panicking sibling")
	}
	if got.SourceResults["bad"] != 0 {
		t.Error("Panicking source must report zero actions")
	}
}

func TestDuplicateIDLastWins(t *testing.T) {
	res := resources.NewManager()
	p, _ := newTestPipeline(res)

	// Приоритет источника выше - собирается раньше; дубликат id из
	// собранного позже побеждает.
	p.registry.RegisterSource("first", &stubSource{active: true, priority: 90, actions: []domain.Action{
		{ID: "dup", Name: "Старое", Priority: 5},
	}})
	p.registry.RegisterSource("second", &stubSource{active: true, priority: 10, actions: []domain.Action{
		{ID: "dup", Name: "Новое", Priority: 5},
	}})

	got := p.DiscoverActions(testEntity("hero"), domain.ModeExploration, nil, nil, nil)
	if len(got.Actions) != 1 || got.Actions[0].Name != "Новое" {
		t.Errorf("Last collected duplicate must win: %+v", got.Actions)
	}
}

func TestStrictSourcesOnlySkipsProviders(t *testing.T) {
	res := resources.NewManager()
	p, _ := newTestPipeline(res)
	p.registry.RegisterProvider("status", NewStatusEffectProvider())

	e := testEntity("hero")
	e.Statuses = &domain.StatusComponent{Active: []domain.StatusEffect{
		{Name: "Blessed", Duration: 3, Grants: []domain.Action{
			{ID: "smite", Name: "Кара", Category: domain.CategoryMagic},
		}},
	}}

	loose := p.DiscoverActions(e, domain.ModeExploration, nil, nil, nil)
	if !containsAction(loose.Actions, "smite") {
		t.Error("Provider-granted action must appear by default")
	}

	strict := p.DiscoverActions(e, domain.ModeExploration, nil, nil, &Options{StrictSourcesOnly: true})
	if containsAction(strict.Actions, "smite") {
		t.Error("StrictSourcesOnly must skip the provider phase entirely")
	}
}

func TestQueryActionsFilterAndLimit(t *testing.T) {
	res := resources.NewManager()
	p, _ := newTestPipeline(res)

	p.registry.RegisterSource("stub", &stubSource{active: true, priority: 10, actions: []domain.Action{
		{ID: "atk1", Name: "A", Source: "equipment:sword", Category: domain.CategoryAttack, Priority: 3},
		{ID: "atk2", Name: "B", Source: "equipment:bow", Category: domain.CategoryAttack, Priority: 2},
		{ID: "walk", Name: "C", Source: "intrinsic", Category: domain.CategoryMovement, Priority: 9},
	}})

	got := p.QueryActions(testEntity("hero"), domain.ModeExploration, nil, nil, domain.ActionQuery{
		SourcePrefix: "equipment:",
		MaxResults:   1,
	})

	if len(got) != 1 || got[0].ID != "atk1" {
		t.Errorf("Expected [atk1], got %+v", got)
	}
}

func TestContextSnapshot(t *testing.T) {
	res := resources.NewManager()
	p, _ := newTestPipeline(res)
	p.registry.RegisterSource("intrinsic", NewIntrinsicSource(catalog.New()))

	e := testEntity("hero")
	res.Define(e.ID, "hp", 15, 0, 20)

	visible := &domain.Entity{ID: "gob", Name: "Гоблин", Pos: domain.Position{X: 4, Y: 2}}
	farAway := &domain.Entity{ID: "far", Name: "Далекий", Pos: domain.Position{X: 40, Y: 40}}
	m := world.NewArena(50, 50)

	got := p.DiscoverActions(e, domain.ModeExploration, []*domain.Entity{farAway, visible}, m, nil)

	ctx := got.Context
	if ctx.Resource("hp").Current != 15 {
		t.Error("Context must snapshot resources")
	}
	if len(ctx.VisibleEntities) != 1 || ctx.VisibleEntities[0].ID != "gob" {
		t.Errorf("Vision radius filtering wrong: %+v", ctx.VisibleEntities)
	}
	if len(ctx.NearbyTiles) != 8 {
		t.Errorf("Expected 8 nearby tiles, got %d", len(ctx.NearbyTiles))
	}
}

// --- helpers ---

func containsAction(list []domain.Action, id string) bool {
	for _, a := range list {
		if a.ID == id {
			return true
		}
	}
	return false
}
