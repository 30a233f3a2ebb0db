package pubsub

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// plog is looked up per call so it follows whatever the global logger has
// been reconfigured to.
func plog() *zerolog.Logger {
	l := log.With().Str("component", "pubsub").Logger()
	return &l
}

type SubscriptionID int64

// Pubsub fans every published message out to all current subscribers.
// Subscribers that fall behind by more than the buffer size lose messages.
type Pubsub[T any] struct {
	nextID      SubscriptionID
	buffer      int
	subscribers map[SubscriptionID]chan T
	closed      bool
	mu          sync.RWMutex
}

func New[T any](buffer int) *Pubsub[T] {
	if buffer < 0 {
		buffer = 0
	}
	return &Pubsub[T]{
		buffer:      buffer,
		subscribers: make(map[SubscriptionID]chan T),
	}
}

// Subscribe registers a new subscriber. The channel is closed on
// Unsubscribe or Close.
func (ps *Pubsub[T]) Subscribe() (SubscriptionID, <-chan T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan T, ps.buffer)
	if ps.closed {
		close(ch)
		return -1, ch
	}

	id := ps.nextID
	ps.subscribers[id] = ch
	ps.nextID++

	plog().Debug().Int64("subscription_id", int64(id)).Msg("Subscribed")
	return id, ch
}

func (ps *Pubsub[T]) Unsubscribe(id SubscriptionID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch, ok := ps.subscribers[id]
	if !ok {
		return
	}

	delete(ps.subscribers, id)
	close(ch)
	plog().Debug().Int64("subscription_id", int64(id)).Msg("Unsubscribed")
}

func (ps *Pubsub[T]) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.subscribers)
}

// Publish never blocks.
func (ps *Pubsub[T]) Publish(msg T) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for id, ch := range ps.subscribers {
		select {
		case ch <- msg:
		default:
			plog().Warn().
				Int64("subscription_id", int64(id)).
				Interface("message", msg).
				Msg("Message dropped, channel full")
		}
	}
}

// Close unsubscribes everyone. Later subscriptions get a closed channel.
func (ps *Pubsub[T]) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for id, ch := range ps.subscribers {
		delete(ps.subscribers, id)
		close(ch)
	}
	ps.closed = true
}
