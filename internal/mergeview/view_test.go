package mergeview

import (
	"testing"
	"time"

	"github.com/kvasir-labs/parlor/internal/store"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func msg(id int64, offset time.Duration, body string) store.Message {
	return store.Message{
		ID:        id,
		RoomID:    1,
		UserID:    1,
		Body:      body,
		CreatedAt: base.Add(offset),
	}
}

func ids(entries []Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message.ID)
	}
	return out
}

func assertIDs(t *testing.T, entries []Entry, want ...int64) {
	t.Helper()
	got := ids(entries)
	if len(got) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, got)
		}
	}
}

func TestSeedThenApply(t *testing.T) {
	v := New()
	v.Seed([]*store.Message{
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(time.Second)},
	})
	v.Apply(msg(3, 2*time.Second, "live"))

	assertIDs(t, v.Entries(), 1, 2, 3)
}

func TestApplyBeforeSeedIsBuffered(t *testing.T) {
	v := New()

	// The subscription opened first; events arrive while the history
	// fetch is still in flight.
	v.Apply(msg(3, 2*time.Second, "early live"))
	v.Apply(msg(4, 3*time.Second, "early live 2"))

	if got := v.Entries(); len(got) != 0 {
		t.Fatalf("expected empty view before seed, got %v", ids(got))
	}

	v.Seed([]*store.Message{
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(time.Second)},
		// The snapshot already includes one of the buffered events.
		{ID: 3, CreatedAt: base.Add(2 * time.Second)},
	})

	assertIDs(t, v.Entries(), 1, 2, 3, 4)
}

func TestMergeIsIdempotent(t *testing.T) {
	v := New()
	v.Seed(nil)

	m := msg(1, 0, "hi")
	v.Apply(m)
	v.Apply(m)

	assertIDs(t, v.Entries(), 1)
}

func TestOutOfOrderArrivalSorts(t *testing.T) {
	v := New()
	v.Seed(nil)

	v.Apply(msg(3, 2*time.Second, "c"))
	v.Apply(msg(1, 0, "a"))
	v.Apply(msg(2, time.Second, "b"))

	assertIDs(t, v.Entries(), 1, 2, 3)
}

func TestTimestampTieBrokenByID(t *testing.T) {
	v := New()
	v.Seed(nil)

	v.Apply(msg(2, 0, "second"))
	v.Apply(msg(1, 0, "first"))

	assertIDs(t, v.Entries(), 1, 2)
}

func TestOptimisticConfirmFlow(t *testing.T) {
	v := New()
	v.Seed([]*store.Message{{ID: 1, CreatedAt: base}})

	alice := &store.User{ID: 7, DisplayName: "Alice"}
	token := v.AddPending(1, alice, "hello")

	entries := v.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	last := entries[len(entries)-1]
	if !last.Pending || last.Token != token || last.Message.Body != "hello" {
		t.Errorf("unexpected pending entry: %+v", last)
	}

	// Server confirms with the assigned ID; pending entry is replaced.
	confirmed := msg(2, time.Second, "hello")
	v.Confirm(token, confirmed)

	entries = v.Entries()
	assertIDs(t, entries, 1, 2)
	for _, e := range entries {
		if e.Pending {
			t.Errorf("no entry should remain pending: %+v", e)
		}
	}
}

func TestLiveEventBeforeConfirmDoesNotDuplicate(t *testing.T) {
	v := New()
	v.Seed(nil)

	alice := &store.User{ID: 7, DisplayName: "Alice"}
	token := v.AddPending(1, alice, "hello")

	// The sender's own subscription delivers the message before the
	// send call returns.
	confirmed := msg(1, 0, "hello")
	v.Apply(confirmed)
	v.Confirm(token, confirmed)

	assertIDs(t, v.Entries(), 1)
}

func TestFailedSendRollsBack(t *testing.T) {
	v := New()
	v.Seed([]*store.Message{{ID: 1, CreatedAt: base}})

	alice := &store.User{ID: 7, DisplayName: "Alice"}
	token := v.AddPending(1, alice, "doomed")

	v.Fail(token)
	// Double rollback is harmless.
	v.Fail(token)

	assertIDs(t, v.Entries(), 1)
}

func TestTwoIdenticalBodiesKeepDistinctTokens(t *testing.T) {
	v := New()
	v.Seed(nil)

	alice := &store.User{ID: 7, DisplayName: "Alice"}
	first := v.AddPending(1, alice, "same text")
	second := v.AddPending(1, alice, "same text")
	if first == second {
		t.Fatal("correlation tokens must be unique")
	}

	v.Confirm(first, msg(1, 0, "same text"))

	entries := v.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected confirmed + one pending, got %d", len(entries))
	}
	if !entries[1].Pending || entries[1].Token != second {
		t.Errorf("wrong pending entry survived: %+v", entries[1])
	}
}
