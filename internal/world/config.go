package world

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

// Множители урона по соглашению настольных правил.
const (
	multiplierResistant  = 0.5
	multiplierVulnerable = 2.0
	multiplierImmune     = 0.0
	multiplierNeutral    = 1.0
)

// CreatureTraits - резисты одного тега существа ("undead", "fiend"...).
type CreatureTraits struct {
	Resistances     []string `yaml:"resistances"`
	Vulnerabilities []string `yaml:"vulnerabilities"`
	Immunities      []string `yaml:"immunities"`
}

// Config - мировые правила: какие типы урона существуют и как теги
// существ их модифицируют. Грузится из YAML один раз, дальше read-only.
type Config struct {
	DamageTypes []string                  `yaml:"damageTypes"`
	Traits      map[string]CreatureTraits `yaml:"traits"`

	validTypes map[string]bool
}

// DefaultConfig возвращает нейтральный конфиг без резистов.
// Используется, когда файл мира не задан.
func DefaultConfig() *Config {
	cfg := &Config{
		DamageTypes: []string{
			"slashing", "piercing", "bludgeoning",
			"fire", "cold", "lightning", "poison", "radiant", "necrotic",
		},
		Traits: map[string]CreatureTraits{},
	}
	cfg.index()
	return cfg
}

// LoadConfig читает YAML-файл мировых правил.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("world config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadConfigFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("world config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromReader декодирует конфиг из произвольного reader.
// Удобно в тестах со строковыми литералами.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(cfg.DamageTypes) == 0 {
		return nil, fmt.Errorf("world config: damageTypes is empty")
	}
	cfg.index()
	return cfg, nil
}

func (c *Config) index() {
	c.validTypes = make(map[string]bool, len(c.DamageTypes))
	for _, dt := range c.DamageTypes {
		c.validTypes[strings.ToLower(dt)] = true
	}
}

// IsValidDamageType проверяет тип урона по таблице мира.
func (c *Config) IsValidDamageType(damageType string) bool {
	return c.validTypes[strings.ToLower(damageType)]
}

// DamageMultiplier возвращает множитель урона для набора тегов существа.
// Иммунитет сильнее уязвимости, уязвимость сильнее резиста. Неизвестный
// тип урона дает нейтральный множитель и предупреждение в лог - плохие
// данные не должны ронять бой.
func (c *Config) DamageMultiplier(damageType string, traits []string) float64 {
	dt := strings.ToLower(damageType)
	if dt != "" && !c.validTypes[dt] {
		logger.Log.WithFields(logrus.Fields{
			"component":   "world",
			"damage_type": damageType,
		}).Warn("Unknown damage type, applying neutral multiplier.")
		return multiplierNeutral
	}

	mult := multiplierNeutral
	for _, tag := range traits {
		tr, ok := c.Traits[strings.ToLower(tag)]
		if !ok {
			continue
		}
		if containsFold(tr.Immunities, dt) {
			return multiplierImmune
		}
		if containsFold(tr.Vulnerabilities, dt) {
			mult = multiplierVulnerable
		} else if containsFold(tr.Resistances, dt) && mult == multiplierNeutral {
			mult = multiplierResistant
		}
	}
	return mult
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
