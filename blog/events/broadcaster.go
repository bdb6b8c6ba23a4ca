// Package events delivers post notifications to in-process subscribers, the
// log and an MQTT broker.
package events

import (
	"sync"

	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.EventPublisher = (*Broadcaster)(nil)

// DefaultSubscriberBuffer is the channel capacity used when Subscribe is given 0.
const DefaultSubscriberBuffer = 64

// Broadcaster fans events out to subscriber channels. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan domain.Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan domain.Event),
	}
}

// Subscribe registers a new subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; !ok {
			return
		}
		delete(b.subs, id)
		close(ch)
	}
	return ch, cancel
}

// Subscribers returns the number of registered subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) Publish(evt domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			log.Warn().Int("subscriber", id).Str("kind", string(evt.Kind)).Int("postID", evt.PostID).Msg("Dropped event for slow subscriber")
		}
	}
}

// Close unregisters every subscriber and closes their channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
