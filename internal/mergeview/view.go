// Package mergeview maintains a client's view of a room: pull-based
// history merged with push-based live events, plus locally pending
// sends shown before the server confirms them.
//
// The two sources may resolve in either order. Events applied before
// the history snapshot arrives are buffered and folded in when Seed is
// called, so nothing delivered in the gap between subscribing and the
// snapshot is lost.
package mergeview

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kvasir-labs/parlor/internal/store"
)

// Entry is one row of the merged view. Pending entries carry the
// correlation token returned by AddPending and no server ID yet.
type Entry struct {
	Message store.Message
	Pending bool
	Token   string
}

// View merges history, live events, and optimistic local sends into a
// single list ordered by (created_at, id), pending entries last.
type View struct {
	mu        sync.Mutex
	seeded    bool
	buffered  []store.Message
	seen      map[int64]struct{}
	confirmed []store.Message
	pending   []Entry
}

// New returns an empty view.
func New() *View {
	return &View{seen: make(map[int64]struct{})}
}

// Seed installs the history snapshot and folds in any live events that
// arrived before it. Call once per room open.
func (v *View) Seed(history []*store.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, msg := range history {
		v.merge(*msg)
	}
	v.seeded = true

	for _, msg := range v.buffered {
		v.merge(msg)
	}
	v.buffered = nil
}

// Apply merges one live event. Safe to call before Seed; events are
// buffered until the snapshot lands. Applying a message whose ID is
// already present is a no-op.
func (v *View) Apply(msg store.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.seeded {
		v.buffered = append(v.buffered, msg)
		return
	}
	v.merge(msg)
}

// merge inserts msg in (created_at, id) order, deduplicating by ID.
// Callers hold v.mu.
func (v *View) merge(msg store.Message) {
	if _, dup := v.seen[msg.ID]; dup {
		return
	}
	v.seen[msg.ID] = struct{}{}

	i := sort.Search(len(v.confirmed), func(i int) bool {
		c := v.confirmed[i]
		if !c.CreatedAt.Equal(msg.CreatedAt) {
			return c.CreatedAt.After(msg.CreatedAt)
		}
		return c.ID > msg.ID
	})
	v.confirmed = append(v.confirmed, store.Message{})
	copy(v.confirmed[i+1:], v.confirmed[i:])
	v.confirmed[i] = msg
}

// AddPending appends an optimistic entry for a message the user just
// sent and returns its correlation token. The entry stays until
// Confirm or Fail is called with the token.
func (v *View) AddPending(roomID int64, author *store.User, body string) string {
	token := uuid.NewString()

	v.mu.Lock()
	defer v.mu.Unlock()

	v.pending = append(v.pending, Entry{
		Message: store.Message{
			RoomID:       roomID,
			UserID:       author.ID,
			Body:         body,
			AuthorName:   author.DisplayName,
			AuthorAvatar: author.AvatarURL,
		},
		Pending: true,
		Token:   token,
	})
	return token
}

// Confirm replaces the pending entry identified by token with the
// confirmed message returned by the send call. The live feed may have
// delivered the same message already; ID deduplication makes that
// harmless. Unknown tokens are ignored.
func (v *View) Confirm(token string, msg store.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.removePending(token)
	if !v.seeded {
		v.buffered = append(v.buffered, msg)
		return
	}
	v.merge(msg)
}

// Fail rolls back the pending entry identified by token after a failed
// send, so no phantom message lingers in the view.
func (v *View) Fail(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removePending(token)
}

// removePending deletes the pending entry with token. Callers hold v.mu.
func (v *View) removePending(token string) {
	for i, entry := range v.pending {
		if entry.Token == token {
			v.pending = append(v.pending[:i], v.pending[i+1:]...)
			return
		}
	}
}

// Entries returns the current view: confirmed messages in store order
// followed by pending entries in send order.
func (v *View) Entries() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries := make([]Entry, 0, len(v.confirmed)+len(v.pending))
	for _, msg := range v.confirmed {
		entries = append(entries, Entry{Message: msg})
	}
	entries = append(entries, v.pending...)
	return entries
}
