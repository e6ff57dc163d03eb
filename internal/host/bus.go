package host

import (
	"log/slog"
	"sync"
)

// Bus is an in-process EventBus. Subscribers for a name fire
// synchronously on the emitter's goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]*subscription
}

type subscription struct {
	id int
	fn EventHandler
}

func NewBus() *Bus {
	return &Bus{subs: map[string][]*subscription{}}
}

func (b *Bus) Subscribe(name string, fn EventHandler) func() {
	b.mu.Lock()
	b.nextID++
	sub := &subscription{id: b.nextID, fn: fn}
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[name]
		for i, s := range list {
			if s.id == sub.id {
				b.subs[name] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Emit(name string, payload map[string]any) {
	b.mu.RLock()
	// snapshot so a handler subscribing/unsubscribing mid-dispatch
	// cannot corrupt the list being walked
	list := make([]*subscription, len(b.subs[name]))
	copy(list, b.subs[name])
	b.mu.RUnlock()

	slog.Debug("event emitted", slog.String("name", name), slog.Int("subscribers", len(list)))
	for _, s := range list {
		s.fn(payload)
	}
}
