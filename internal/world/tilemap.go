// Package world содержит тайловую карту, проверку прямой видимости и
// загрузчик мировых правил (резисты, типы урона).
package world

import (
	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Tile - одна клетка карты.
type Tile struct {
	Walkable    bool `json:"walkable"`
	BlocksLight bool `json:"blocksLight"`
}

// TileMap - прямоугольная карта. Движок правил использует ее как
// булев оракул: проходимо/нет, видно/нет.
type TileMap struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Tiles  [][]Tile `json:"tiles"` // [y][x]
}

// NewArena создает карту: пол внутри, стены по периметру.
// Для песочницы и тестов; настоящие уровни приходят извне.
func NewArena(width, height int) *TileMap {
	tiles := make([][]Tile, height)
	for y := 0; y < height; y++ {
		row := make([]Tile, width)
		for x := 0; x < width; x++ {
			wall := x == 0 || y == 0 || x == width-1 || y == height-1
			row[x] = Tile{Walkable: !wall, BlocksLight: wall}
		}
		tiles[y] = row
	}
	return &TileMap{Width: width, Height: height, Tiles: tiles}
}

// SetWall ставит стену в клетку (для тестовых карт).
func (m *TileMap) SetWall(x, y int) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Tiles[y][x] = Tile{Walkable: false, BlocksLight: true}
}

// GetTile возвращает клетку с зажимом координат к границам карты:
// запрос за краем отвечает ближайшей граничной клеткой, а не паникой.
func (m *TileMap) GetTile(x, y int) Tile {
	if x < 0 {
		x = 0
	}
	if x >= m.Width {
		x = m.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= m.Height {
		y = m.Height - 1
	}
	return m.Tiles[y][x]
}

// HasLineOfSight проверяет прямую видимость между двумя точками.
// Оптимизированный алгоритм Брезенхэма (только целочисленная арифметика).
// Стартовая и конечная клетки не считаются препятствиями: стоя вплотную
// к стене, саму стену видно.
func HasLineOfSight(m *TileMap, p1, p2 domain.Position) bool {
	losLogger := logger.Log.WithFields(logrus.Fields{
		"component": "world",
		"start_pos": p1,
		"end_pos":   p2,
	})

	if p1.X == p2.X && p1.Y == p2.Y {
		return true
	}

	x0, y0 := p1.X, p1.Y
	x1, y1 := p2.X, p2.Y

	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y0
	if dy < 0 {
		dy = -dy
	}

	sx, sy := p1.DirectionTo(p2)

	err := dx - dy

	for {
		isStartPoint := x0 == p1.X && y0 == p1.Y
		isEndPoint := x0 == p2.X && y0 == p2.Y

		if !isStartPoint && !isEndPoint {
			// 1. Выход за границы карты обрывает линию
			if x0 < 0 || x0 >= m.Width || y0 < 0 || y0 >= m.Height {
				losLogger.WithField("blocking_point", map[string]int{"x": x0, "y": y0}).
					Debug("LOS blocked by map bounds.")
				return false
			}
			// 2. Непрозрачная клетка
			if m.Tiles[y0][x0].BlocksLight {
				losLogger.WithField("blocking_point", map[string]int{"x": x0, "y": y0}).
					Debug("LOS blocked by opaque tile.")
				return false
			}
		}

		if x0 == x1 && y0 == y1 {
			break
		}

		e2 := err * 2
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}

	return true
}

// NearbyTiles возвращает свойства клеток в квадрате radius вокруг позиции
// (сама клетка исключается). Для снапшота ActionContext.
func (m *TileMap) NearbyTiles(pos domain.Position, radius int) []domain.TileInfo {
	out := make([]domain.TileInfo, 0, (2*radius+1)*(2*radius+1)-1)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			p := pos.Shift(dx, dy)
			if p.X < 0 || p.X >= m.Width || p.Y < 0 || p.Y >= m.Height {
				continue
			}
			out = append(out, domain.TileInfo{Pos: p, Walkable: m.Tiles[p.Y][p.X].Walkable})
		}
	}
	return out
}
