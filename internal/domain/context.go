package domain

// ResourceValue - снапшот одного ресурса в контексте.
type ResourceValue struct {
	Current int `json:"current"`
	Maximum int `json:"maximum"`
}

// CombatSnapshot - боевые поля контекста: остаток экономики хода.
// Заполняется только в режиме боя.
type CombatSnapshot struct {
	ActionsRemaining      int  `json:"actionsRemaining"`
	BonusActionsRemaining int  `json:"bonusActionsRemaining"`
	ReactionUsed          bool `json:"reactionUsed"`
	MovementRemaining     int  `json:"movementRemaining"`
}

// ActionContext - снапшот мира на момент discovery-вызова.
// Read-mostly: источники и провайдеры читают его, но не мутируют.
// Кэшируется по ключу (entityId, position, mode) с коротким TTL.
type ActionContext struct {
	Performer       *Entity
	Mode            GameMode
	NearbyTiles     []TileInfo
	VisibleEntities []*Entity
	EquippedItems   map[string]*Item // слот -> предмет
	Resources       map[string]ResourceValue
	Combat          *CombatSnapshot
}

// TileInfo - свойства клетки рядом с исполнителем, видимые правилам.
type TileInfo struct {
	Pos      Position `json:"pos"`
	Walkable bool     `json:"walkable"`
}

// Resource возвращает снапшот ресурса из контекста (0/0 если нет).
func (c *ActionContext) Resource(id string) ResourceValue {
	if c == nil || c.Resources == nil {
		return ResourceValue{}
	}
	return c.Resources[id]
}

// HasEquipped проверяет, занят ли слот (пустая строка - любой слот).
func (c *ActionContext) HasEquipped(slot string) bool {
	if c == nil || len(c.EquippedItems) == 0 {
		return false
	}
	if slot == "" {
		return true
	}
	_, ok := c.EquippedItems[slot]
	return ok
}

// ActionQuery - расширенный запрос для провайдеров и QueryActions:
// контекст плюс необязательные фильтры.
type ActionQuery struct {
	Context           *ActionContext
	Category          ActionCategory
	HasCategory       bool   // Category значим только при true
	SourcePrefix      string // фильтр по префиксу тега источника
	MaxResults        int    // 0 = без ограничения
	StrictSourcesOnly bool   // пропустить фазу провайдеров целиком
}
