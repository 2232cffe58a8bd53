// Package feed delivers the chat_messages change stream: one event per
// inserted row, via an in-process broker or a remote websocket feed.
package feed

import (
	"context"
	"sync"

	"github.com/yonetim/opsdesk/internal/models"
)

// Feed is a push-based change feed of inserted chat messages. The returned
// channel closes when the subscription drops or ctx is cancelled;
// resubscribing is the caller's job.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan models.ChatMessage, error)
}

// Broker is an in-process Feed fed directly by the store write path.
// Used when the console and the store run in the same process.
type Broker struct {
	mu   sync.Mutex
	subs map[chan models.ChatMessage]struct{}
}

// NewBroker creates a Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan models.ChatMessage]struct{})}
}

// Subscribe registers a subscriber. The channel closes when ctx is done.
func (b *Broker) Subscribe(ctx context.Context) (<-chan models.ChatMessage, error) {
	ch := make(chan models.ChatMessage, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Publish delivers an inserted row to all subscribers. A subscriber that
// has fallen behind is skipped; the poll fallback reconciles it later.
func (b *Broker) Publish(msg models.ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers (for testing).
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
