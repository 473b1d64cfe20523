// Package engine собирает подсистемы правил в один сервис:
// обнаружение действий, исполнение, порядок ходов, режимы игры.
package engine

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config - конфигурация движка правил из переменных окружения.
type Config struct {
	// Seed генератора кубиков. 0 - случайный.
	Seed int64 `env:"RL_SEED" envDefault:"0"`

	// TTL кэшей discovery-пайплайна.
	ContextTTL time.Duration `env:"RL_CONTEXT_TTL" envDefault:"1s"`
	ResultTTL  time.Duration `env:"RL_RESULT_TTL" envDefault:"500ms"`

	// VisionRadius - радиус видимости сущностей в контексте действия.
	VisionRadius int `env:"RL_VISION_RADIUS" envDefault:"8"`

	// Параметры провокации боя.
	DetectionRadius float64 `env:"RL_DETECTION_RADIUS" envDefault:"10"`
	TriggerRadius   float64 `env:"RL_TRIGGER_RADIUS" envDefault:"6"`
	RequireLOS      bool    `env:"RL_TRIGGER_REQUIRE_LOS" envDefault:"true"`

	// CritPolicy - правило критического урона:
	// doubleDice, doubleTotal, maxPlusRoll.
	CritPolicy string `env:"RL_CRIT_POLICY" envDefault:"doubleDice"`

	// Пути к таблицам данных. Пустые - встроенные значения.
	ActionsPath     string `env:"RL_ACTIONS_PATH"`
	ItemsPath       string `env:"RL_ITEMS_PATH"`
	WorldConfigPath string `env:"RL_WORLD_CONFIG"`
}

// NewConfig читает конфигурацию из окружения.
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse engine config: %w", err)
	}
	return cfg, nil
}
