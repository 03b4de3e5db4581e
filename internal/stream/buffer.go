package stream

import (
	"sync"

	"SwanPulse/internal/domain/models"
)

// DefaultBufferSize is how many recent events a new consumer can be hydrated from.
const DefaultBufferSize = 5

// Buffer keeps the most recent events in a fixed ring, evicting the oldest.
type Buffer struct {
	mu     sync.RWMutex
	events []*models.StreamEvent
	head   int // index of the oldest event
	n      int
}

// NewBuffer creates a buffer holding up to capacity events.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Buffer{events: make([]*models.StreamEvent, capacity)}
}

// Push appends ev, evicting the oldest entry once full.
func (b *Buffer) Push(ev *models.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := len(b.events)
	if b.n < c {
		b.events[(b.head+b.n)%c] = ev
		b.n++
		return
	}
	b.events[b.head] = ev
	b.head = (b.head + 1) % c
}

// Latest returns the most recently pushed event.
func (b *Buffer) Latest() (*models.StreamEvent, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.n == 0 {
		return nil, false
	}
	return b.events[(b.head+b.n-1)%len(b.events)], true
}

// Snapshot returns the buffered events oldest first.
func (b *Buffer) Snapshot() []*models.StreamEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.StreamEvent, b.n)
	for i := 0; i < b.n; i++ {
		out[i] = b.events[(b.head+i)%len(b.events)]
	}
	return out
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.n
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.events) }
