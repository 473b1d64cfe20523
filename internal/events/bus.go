// Package events реализует внутреннюю шину событий: подписка по типу,
// синхронная однопоточная доставка, хендл для отписки.
package events

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smaran-m/roguelike-agent-sub001/pkg/logger"
	"github.com/smaran-m/roguelike-agent-sub001/pkg/utils"
)

// Типы событий. Строки, а не числа: событие уходит и во внешние слои
// (рендер, UI), где числовые коды неудобны.
const (
	EntityMoved     = "ENTITY_MOVED"
	GameModeChanged = "GAME_MODE_CHANGED"
	EntityDied      = "ENTITY_DIED"
	EnemyDied       = "ENEMY_DIED"
	TurnStarted     = "TURN_STARTED"
	TurnEnded       = "TURN_ENDED"
	CombatStarted   = "COMBAT_STARTED"
	CombatTriggered = "COMBAT_TRIGGERED"
	CombatEnded     = "COMBAT_ENDED"
	DamageDealt     = "DAMAGE_DEALT"
	CheckRolled     = "CHECK_ROLLED"
	MessageAdded    = "MESSAGE_ADDED"
	ActionExecuted  = "ACTION_EXECUTED"
)

// Event - единица обмена. Payload - типоспецифичные поля.
type Event struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Handler - подписчик. Вызывается синхронно в потоке публикатора.
type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus - шина событий. НЕ потокобезопасна: весь движок однопоточный
// и кооперативный, публикация и подписка идут из одного цикла.
type Bus struct {
	subs   map[string][]subscription
	nextID int
}

// NewBus создает пустую шину.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe регистрирует хендлер на тип события и возвращает функцию отписки.
// Отписка идемпотентна.
func (b *Bus) Subscribe(eventType string, h Handler) func() {
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: h})

	return func() {
		list := b.subs[eventType]
		for i, s := range list {
			if s.id == id {
				b.subs[eventType] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish доставляет событие всем подписчикам его типа. Паника хендлера
// гасится и логируется: один плохой подписчик не должен ронять ход игры.
func (b *Bus) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = utils.GenerateID()
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	// Копия списка: хендлер может отписаться прямо во время доставки.
	list := append([]subscription(nil), b.subs[evt.Type]...)
	for _, s := range list {
		b.deliver(s, evt)
	}
}

func (b *Bus) deliver(s subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(logrus.Fields{
				"component":  "event_bus",
				"event_type": evt.Type,
				"panic":      r,
			}).Error("Event handler panicked, skipping.")
		}
	}()
	s.handler(evt)
}

// Emit - шорткат: собрать событие из типа и полезной нагрузки и опубликовать.
func (b *Bus) Emit(eventType string, payload map[string]any) {
	b.Publish(Event{Type: eventType, Payload: payload})
}
