package domain

import "math"

// Position - координаты на тайловой карте.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DistanceTo возвращает точное евклидово расстояние до другой точки (float).
func (p Position) DistanceTo(other Position) float64 {
	return math.Sqrt(math.Pow(float64(p.X-other.X), 2) + math.Pow(float64(p.Y-other.Y), 2))
}

// ChebyshevDistanceTo возвращает дистанцию по сетке с диагоналями.
// Используется для ближнего боя: сосед по диагонали - это дистанция 1.
func (p Position) ChebyshevDistanceTo(other Position) int {
	dx := p.X - other.X
	dy := p.Y - other.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// IsAdjacent возвращает true, если цель в соседней клетке (включая диагональ).
func (p Position) IsAdjacent(other Position) bool {
	d := p.ChebyshevDistanceTo(other)
	return d == 1
}

// Shift возвращает новую позицию со смещением (не меняя текущую,
// т.к. Go передает структуры по значению).
func (p Position) Shift(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// DirectionTo возвращает единичные шаги (sx, sy) в сторону другой точки.
func (p Position) DirectionTo(other Position) (int, int) {
	sx, sy := 0, 0
	if other.X > p.X {
		sx = 1
	} else if other.X < p.X {
		sx = -1
	}
	if other.Y > p.Y {
		sy = 1
	} else if other.Y < p.Y {
		sy = -1
	}
	return sx, sy
}
