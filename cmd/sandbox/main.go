package main

import (
	"flag"

	"github.com/smaran-m/roguelike-agent-sub001/internal/domain"
	"github.com/smaran-m/roguelike-agent-sub001/internal/engine"
	"github.com/smaran-m/roguelike-agent-sub001/internal/events"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
)

func init() {
	logger.Init()
}

// Песочница движка правил: скриптованная стычка герой против гоблина.
// Показывает полный цикл - discovery, провокация боя, инициатива,
// исполнение действий, конец боя.
func main() {
	// 1. Парсинг конфигурации
	var seed int64
	// Читаем флаг -seed. По умолчанию 0 (значит сгенерировать случайно).
	flag.Int64Var(&seed, "seed", 0, "Dice seed (0 for random)")
	flag.Parse()

	cfg, err := engine.NewConfig()
	if err != nil {
		logger.Log.Fatal("Config error:", err)
	}
	if seed != 0 {
		cfg.Seed = seed
		logger.Log.Infof("🎲 Using explicit seed: %d", seed)
	}

	svc, err := engine.NewService(cfg)
	if err != nil {
		logger.Log.Fatal("Service init error:", err)
	}

	// Лог сообщений движка в консоль
	svc.Bus().Subscribe(events.MessageAdded, func(ev events.Event) {
		logger.Log.Infof("📜 %v", ev.Payload["text"])
	})

	// 2. Наполнение мира
	hero := &domain.Entity{
		ID: "hero", Name: "Герой", Type: domain.EntityTypePlayer,
		Pos: domain.Position{X: 2, Y: 2},
		Stats: &domain.StatsComponent{
			Strength: 14, Dexterity: 12, Constitution: 12,
			Intelligence: 10, Wisdom: 10, Charisma: 10,
			ArmorClass: 15,
		},
	}
	goblin := &domain.Entity{
		ID: "goblin", Name: "Гоблин", Type: domain.EntityTypeEnemy,
		Pos: domain.Position{X: 9, Y: 2},
		Stats: &domain.StatsComponent{
			Strength: 8, Dexterity: 14, Constitution: 10,
			Intelligence: 8, Wisdom: 8, Charisma: 8,
			ArmorClass: 12,
		},
		AI: &domain.AIComponent{IsHostile: true, State: "idle"},
	}
	svc.AddEntity(hero)
	svc.AddEntity(goblin)
	svc.DefineResource("hero", "hp", 20, 0, 20)
	svc.DefineResource("goblin", "hp", 8, 0, 8)

	result, err := svc.AvailableActions("hero", nil)
	if err != nil {
		logger.Log.Fatal("Discovery error:", err)
	}
	logger.Log.Infof("Hero has %d actions available (discovery took %s)",
		len(result.Actions), result.DiscoveryTime)

	// 3. Идем на гоблина, пока бой не начнется
	for svc.Mode() != domain.ModeCombat {
		if err := svc.MoveEntity("hero", 1, 0); err != nil {
			logger.Log.Fatal("Move error:", err)
		}
	}
	logger.Log.Infof("⚔️ Combat started, round %d", svc.Round())

	// 4. Боевая петля: на своем ходу герой сближается и бьет,
	// гоблин пропускает ходы
	for svc.Mode() == domain.ModeCombat {
		current, ok := svc.CurrentTurn()
		if !ok {
			break
		}
		if current != "hero" {
			if err := svc.EndTurn(current); err != nil {
				logger.Log.Fatal("EndTurn error:", err)
			}
			continue
		}

		if hero.Pos.ChebyshevDistanceTo(goblin.Pos) > 1 {
			if err := svc.MoveEntity("hero", 1, 0); err != nil {
				logger.Log.Fatal("Move error:", err)
			}
			continue
		}

		res, err := svc.PerformAction("hero", "unarmed_strike", "goblin")
		if err != nil {
			logger.Log.Fatal("Action error:", err)
		}
		if !res.Success || svc.Mode() != domain.ModeCombat {
			// Экономика хода исчерпана либо бой кончился
			if svc.Mode() == domain.ModeCombat {
				if err := svc.EndTurn("hero"); err != nil {
					logger.Log.Fatal("EndTurn error:", err)
				}
			}
		}
	}

	logger.Log.Infof("🏁 Done. Hero hp: %d", svc.ResourceValue("hero", "hp"))
}
