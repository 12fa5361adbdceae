package realtime

import (
	"context"
	"sync"
)

// Hub is an in-process Publisher and Source, used when no PubNub keys are
// configured and in tests.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]chan Update
	nextID      int
	buffer      int
}

func NewHub(buffer int) *Hub {
	return &Hub{
		subscribers: make(map[int]chan Update),
		buffer:      buffer,
	}
}

// Publish never blocks. A subscriber whose buffer is full misses the update.
func (h *Hub) Publish(_ context.Context, update Update) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, handle func(Update)) error {
	ch := make(chan Update, h.buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}()

	for {
		select {
		case update := <-ch:
			handle(update)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
