package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/bus"
	"github.com/kvasir-labs/parlor/internal/log"
	"github.com/kvasir-labs/parlor/internal/store"
	"github.com/kvasir-labs/parlor/internal/store/sqlite"
)

type fixture struct {
	svc   *Service
	store store.Store
	bus   *bus.Bus
	alice *store.User
	bob   *store.User
	room  *store.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	alice, err := st.CreateUser(ctx, "alice", "Alice", "hash", store.RoleUser)
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "Bob", "hash", store.RoleUser)
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	room, err := st.CreateRoom(ctx, "general", "", alice.ID)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := st.AddMember(ctx, room.ID, bob.ID); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	b := bus.New(log.Nop(), 8)
	return &fixture{
		svc:   NewService(st, b, log.Nop(), 256),
		store: st,
		bus:   b,
		alice: alice,
		bob:   bob,
		room:  room,
	}
}

func mustReceive(t *testing.T, sub *bus.Subscription) store.Message {
	t.Helper()
	select {
	case msg := <-sub.C:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return store.Message{}
	}
}

func TestSendPersistsThenPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Subscribe(ctx, f.bob, f.room.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()

	sent, err := f.svc.Send(ctx, f.alice, f.room.ID, "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.ID == 0 {
		t.Error("expected store-assigned id")
	}
	if sent.AuthorName != "Alice" {
		t.Errorf("expected resolved author, got %q", sent.AuthorName)
	}

	// Bob's live feed carries the persisted message.
	got := mustReceive(t, sub)
	if got.ID != sent.ID || got.Body != "hi" {
		t.Errorf("unexpected live message: %+v", got)
	}

	// And history matches.
	history, err := f.svc.History(ctx, f.bob, f.room.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ID != sent.ID {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestSendRejectsEmptyBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, _ := f.svc.Subscribe(ctx, f.bob, f.room.ID)
	defer sub.Cancel()

	_, err := f.svc.Send(ctx, f.alice, f.room.ID, "   ")
	if !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}

	select {
	case msg := <-sub.C:
		t.Fatalf("nothing should have been published, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendRejectsOversizedBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	big := make([]byte, 257)
	for i := range big {
		big[i] = 'a'
	}
	_, err := f.svc.Send(ctx, f.alice, f.room.ID, string(big))
	if !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestSendRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outsider, err := f.store.CreateUser(ctx, "carol", "Carol", "hash", store.RoleUser)
	if err != nil {
		t.Fatalf("create carol: %v", err)
	}

	_, err = f.svc.Send(ctx, outsider, f.room.ID, "hi")
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}

	_, err = f.svc.History(ctx, outsider, f.room.ID)
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for history, got %v", err)
	}

	_, err = f.svc.Subscribe(ctx, outsider, f.room.ID)
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for subscribe, got %v", err)
	}
}

func TestSendUnknownRoom(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Send(context.Background(), f.alice, 9999, "hi")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

// failingStore makes message persistence fail while everything else
// keeps working.
type failingStore struct {
	store.Store
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) CreateMessage(context.Context, int64, int64, string) (*store.Message, error) {
	return nil, errDiskFull
}

func TestStoreFailureMeansNoPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	svc := NewService(&failingStore{Store: f.store}, f.bus, log.Nop(), 256)

	sub, err := svc.Subscribe(ctx, f.bob, f.room.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()

	_, err = svc.Send(ctx, f.alice, f.room.ID, "hi")
	if !apperr.IsKind(err, apperr.KindStorage) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Errorf("expected wrapped cause, got %v", err)
	}

	select {
	case msg := <-sub.C:
		t.Fatalf("no publish may follow a failed persist, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRoomLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.svc.CreateRoom(ctx, f.bob, "bob-corner", "bob's own room")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	// Duplicate names are rejected as input errors.
	_, err = f.svc.CreateRoom(ctx, f.alice, "bob-corner", "")
	if !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Fatalf("expected InvalidInput for duplicate name, got %v", err)
	}

	rooms, err := f.svc.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}

	if err := f.svc.JoinRoom(ctx, f.alice, room.ID); err != nil {
		t.Fatalf("join room: %v", err)
	}
	// Alice can post after joining.
	if _, err := f.svc.Send(ctx, f.alice, room.ID, "hello bob"); err != nil {
		t.Fatalf("send after join: %v", err)
	}

	if err := f.svc.JoinRoom(ctx, f.alice, 9999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
