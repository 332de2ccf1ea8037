// Package bus provides in-process fan-out of chat messages, scoped per
// room. It is an explicit component handed to whoever needs it; there is
// no package-level registry. Nothing here is durable: a process restart
// drops every subscription and clients are expected to re-subscribe and
// refetch history.
package bus

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/store"
)

const defaultBuffer = 64

// Bus delivers messages published to a room to every current
// subscriber of that room, in publish-call order.
type Bus struct {
	mu     sync.RWMutex
	rooms  map[int64][]*Subscription
	buffer int
	log    *zerolog.Logger
}

// New constructs a bus. buffer is the per-subscription event buffer;
// values <= 0 fall back to a default.
func New(logger *zerolog.Logger, buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{
		rooms:  make(map[int64][]*Subscription),
		buffer: buffer,
		log:    logger,
	}
}

// Subscription is one listener's registration. Receive from C; call
// Cancel to unsubscribe. C is closed after Cancel.
type Subscription struct {
	// C carries messages published to the room after Subscribe.
	// There is no replay of earlier messages.
	C <-chan store.Message

	ch     chan store.Message
	bus    *Bus
	roomID int64
	once   sync.Once
}

// Subscribe registers a listener for roomID. The subscriber sees every
// message published after this call, in publish order.
func (b *Bus) Subscribe(roomID int64) *Subscription {
	sub := &Subscription{
		ch:     make(chan store.Message, b.buffer),
		bus:    b,
		roomID: roomID,
	}
	sub.C = sub.ch

	b.mu.Lock()
	b.rooms[roomID] = append(b.rooms[roomID], sub)
	b.mu.Unlock()

	return sub
}

// Cancel removes the subscription and closes C. It is idempotent and
// safe to call at any time, including during an in-flight publish to
// the same room.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		subs := b.rooms[s.roomID]
		for i, candidate := range subs {
			if candidate == s {
				b.rooms[s.roomID] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.rooms[s.roomID]) == 0 {
			delete(b.rooms, s.roomID)
		}
		// No publisher holds a reference once the lock is ours:
		// sends only happen under the read lock.
		close(s.ch)
		b.mu.Unlock()
	})
}

// Publish delivers msg to every current subscriber of roomID. It never
// blocks: a subscriber whose buffer is full loses this message, which
// is logged as a delivery fault and isolated from other subscribers
// and from the publisher. Slow consumers catch up via history refetch.
func (b *Bus) Publish(roomID int64, msg store.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.rooms[roomID] {
		select {
		case sub.ch <- msg:
		default:
			if b.log != nil {
				b.log.Warn().
					Int64("room_id", roomID).
					Int64("message_id", msg.ID).
					Str("kind", string(apperr.KindDeliveryFault)).
					Msg("subscriber buffer full, message dropped")
			}
		}
	}
}

// Subscribers reports how many listeners a room currently has.
func (b *Bus) Subscribers(roomID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[roomID])
}
