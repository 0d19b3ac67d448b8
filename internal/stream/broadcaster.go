// Package stream fans live events out to connected vehicles.
package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

type Kind string

const (
	KindMessage  Kind = "message"
	KindDisaster Kind = "disaster"
)

type Event struct {
	Kind    Kind      `json:"kind"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

func NewEvent(kind Kind, payload any) Event {
	return Event{Kind: kind, Payload: payload, SentAt: time.Now().UTC()}
}

const subscriberBuffer = 64

type subscriber struct {
	key string
	ch  chan Event
}

// Broadcaster keeps subscriber channels keyed by vehicle id. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	subscribers map[uint64]subscriber
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]subscriber),
	}
}

func (b *Broadcaster) Subscribe(key string) (uint64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = subscriber{key: key, ch: ch}
	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

// Publish sends ev to every subscriber of key and returns how many received it.
func (b *Broadcaster) Publish(key string, ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sent := 0
	for _, sub := range b.subscribers {
		if sub.key != key {
			continue
		}
		if trySend(sub.ch, ev) {
			sent++
		}
	}
	return sent
}

func (b *Broadcaster) PublishAll(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sent := 0
	for _, sub := range b.subscribers {
		if trySend(sub.ch, ev) {
			sent++
		}
	}
	return sent
}

func trySend(ch chan Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	default:
		// Skip slow subscribers
		return false
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully.
// Later subscriptions receive an already closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
