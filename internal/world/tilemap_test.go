package world

import (
	"os"
	"testing"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// Открытая карта 5x5 без стен - для LOS-тестов.
func createOpenMap(w, h int) *TileMap {
	m := &TileMap{Width: w, Height: h, Tiles: make([][]Tile, h)}
	for y := 0; y < h; y++ {
		row := make([]Tile, w)
		for x := 0; x < w; x++ {
			row[x] = Tile{Walkable: true}
		}
		m.Tiles[y] = row
	}
	return m
}

func TestHasLineOfSight(t *testing.T) {
	// Карта 5x5
	// . . . . .
	// . . # . .  (2,1) - стена
	// . # # # .  (1,2), (2,2), (3,2) - стена
	// . . # . .  (2,3) - стена
	// . . . . .

	m := createOpenMap(5, 5)
	m.SetWall(2, 1)
	m.SetWall(1, 2)
	m.SetWall(2, 2)
	m.SetWall(3, 2)
	m.SetWall(2, 3)

	tests := []struct {
		name string
		p1   domain.Position
		p2   domain.Position
		want bool
	}{
		{"Clear horizontal", domain.Position{X: 0, Y: 0}, domain.Position{X: 4, Y: 0}, true},
		{"Blocked horizontal", domain.Position{X: 0, Y: 2}, domain.Position{X: 4, Y: 2}, false},
		{"Clear diagonal", domain.Position{X: 0, Y: 0}, domain.Position{X: 1, Y: 1}, true},
		{"Blocked diagonal", domain.Position{X: 0, Y: 0}, domain.Position{X: 4, Y: 4}, false}, // через (2,2)
		{"Adjacent wall", domain.Position{X: 2, Y: 1}, domain.Position{X: 2, Y: 2}, true},     // смотрим на саму стену
		{"Behind wall", domain.Position{X: 2, Y: 1}, domain.Position{X: 2, Y: 3}, false},      // стена (2,2) мешает
		{"Same point", domain.Position{X: 1, Y: 1}, domain.Position{X: 1, Y: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasLineOfSight(m, tt.p1, tt.p2); got != tt.want {
				t.Errorf("HasLineOfSight(%v, %v) = %v, want %v", tt.p1, tt.p2, got, tt.want)
			}
		})
	}
}

func TestGetTileClamped(t *testing.T) {
	m := NewArena(5, 5)

	// Запрос за краем отвечает граничной клеткой (стеной арены)
	if m.GetTile(-3, 2).Walkable {
		t.Error("Out-of-bounds left must clamp to wall")
	}
	if m.GetTile(2, 99).Walkable {
		t.Error("Out-of-bounds bottom must clamp to wall")
	}
	if !m.GetTile(2, 2).Walkable {
		t.Error("Arena interior must be walkable")
	}
}

func TestNearbyTiles(t *testing.T) {
	m := NewArena(10, 10)
	tiles := m.NearbyTiles(domain.Position{X: 5, Y: 5}, 1)

	if len(tiles) != 8 {
		t.Fatalf("Expected 8 neighbors, got %d", len(tiles))
	}
	for _, ti := range tiles {
		if ti.Pos == (domain.Position{X: 5, Y: 5}) {
			t.Error("Own tile must be excluded")
		}
	}

	// У края часть соседей отрезается границей
	corner := m.NearbyTiles(domain.Position{X: 0, Y: 0}, 1)
	if len(corner) != 3 {
		t.Errorf("Corner neighbors: got %d, want 3", len(corner))
	}
}
