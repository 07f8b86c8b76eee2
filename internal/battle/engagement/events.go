package engagement

import (
	"sync"
)

type EventKind uint8

const (
	EventCreated EventKind = iota + 1
	EventStageChanged
	EventTypeChanged
	EventArmyJoined
	EventArmyLeft
	EventAssaultAvailability
	EventReinforcementsChanged
	EventViewersChanged
	EventVictory
	EventCancelled
	EventBroken
	EventDestroyed
)

var eventNames = map[EventKind]string{
	EventCreated:               "created",
	EventStageChanged:          "stage_changed",
	EventTypeChanged:           "type_changed",
	EventArmyJoined:            "army_joined",
	EventArmyLeft:              "army_left",
	EventAssaultAvailability:   "assault_availability",
	EventReinforcementsChanged: "reinforcements_changed",
	EventViewersChanged:        "viewers_changed",
	EventVictory:               "victory",
	EventCancelled:             "cancelled",
	EventBroken:                "broken",
	EventDestroyed:             "destroyed",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "unknown"
}

type Event struct {
	Kind       EventKind     `json:"kind"`
	Battle     BattleID      `json:"battle"`
	Type       Type          `json:"type"`
	Stage      Stage         `json:"stage"`
	Phase      int           `json:"phase"`
	Side       Side          `json:"side"`
	Army       int64         `json:"army,omitempty"`
	Winner     Side          `json:"winner"`
	Reason     VictoryReason `json:"reason"`
	CanAssault bool          `json:"can_assault,omitempty"`
	Detail     string        `json:"detail,omitempty"`
}

type subscription struct {
	id int
	fn func(Event)
}

// Bus 是按事件类型注册的同步观察者表。
// 发布在权威 goroutine 内进行；订阅可以来自其他 goroutine（观战连接）。
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[EventKind][]subscription
	all      []subscription
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]subscription)}
}

// Subscribe 注册某类事件的回调，返回取消函数。
func (b *Bus) Subscribe(kind EventKind, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.handlers[kind] = append(b.handlers[kind], subscription{id: id, fn: fn})
	return func() { b.remove(kind, id) }
}

// SubscribeAll 注册所有事件的回调。
func (b *Bus) SubscribeAll(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.all = append(b.all, subscription{id: id, fn: fn})
	return func() { b.remove(0, id) }
}

func (b *Bus) remove(kind EventKind, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.all
	if kind != 0 {
		list = b.handlers[kind]
	}
	for i, s := range list {
		if s.id == id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if kind != 0 {
		b.handlers[kind] = list
	} else {
		b.all = list
	}
}

func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.handlers[ev.Kind])+len(b.all))
	subs = append(subs, b.handlers[ev.Kind]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(ev)
	}
}
