package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Bus is an in-process publisher that fans events out to subscriber channels.
// A subscriber that falls behind misses events rather than stalling writers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{subs: make(map[int]chan Event), logger: logger}
}

// Subscribe registers a channel with the given buffer. The returned cancel
// function unregisters and closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(_ context.Context, evs ...Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, e := range evs {
		for id, ch := range b.subs {
			select {
			case ch <- e:
			default:
				b.logger.Warn("dropping event for slow subscriber",
					zap.String("event", e.EventType()),
					zap.Int("subscriber", id))
			}
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
