package domain

// Action - неизменяемое описание одного действия: что требуется, что тратится,
// что происходит. Действия грузятся из таблиц или синтезируются источниками;
// после создания никогда не мутируют.
type Action struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Source       string         `json:"source"` // тег источника ("intrinsic", "equipment:sword_01")
	Category     ActionCategory `json:"category"`
	Requirements []Requirement  `json:"requirements,omitempty"`
	Costs        []Cost         `json:"costs,omitempty"`
	Effects      []Effect       `json:"effects,omitempty"`
	Targeting    Targeting      `json:"targeting"`
	Priority     int            `json:"priority,omitempty"` // тай-брейк при ранжировании
	Icon         string         `json:"icon,omitempty"`
}

// Requirement - предикат над снапшотом контекста. Без побочных эффектов.
type Requirement struct {
	Type        RequirementType `json:"type"`
	Target      string          `json:"target,omitempty"` // id ресурса, слот, режим...
	Value       any             `json:"value,omitempty"`
	Comparison  string          `json:"comparison,omitempty"` // ">=", ">", "==", "<", "<="
	Description string          `json:"description,omitempty"`
}

// Cost - стоимость действия. Проверяется и списывается только после того,
// как ВСЕ требования выполнены (никаких частичных списаний).
type Cost struct {
	Type        CostType `json:"type"`
	Resource    string   `json:"resource,omitempty"`
	Amount      string   `json:"amount"` // литерал ("5") или нотация кубиков ("1d4")
	Description string   `json:"description,omitempty"`
}

// Targeting описывает, как действие выбирает цель.
type Targeting struct {
	Kind        string  `json:"kind"` // "self", "single", "area", "tile"
	Range       float64 `json:"range,omitempty"`
	RequiresLOS bool    `json:"requiresLos,omitempty"`
	AreaRadius  float64 `json:"areaRadius,omitempty"`
}

// IsMelee: дистанция <= 1 считается ближним боем и меряется по сетке (Чебышёв),
// все остальное - евклидово расстояние.
func (t Targeting) IsMelee() bool {
	return t.Range <= 1
}
