// Package chat implements the room messaging operations: history
// fetch, message submission, and live subscription.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/bus"
	"github.com/kvasir-labs/parlor/internal/store"
)

// Service coordinates the message store and the room event bus.
type Service struct {
	store   store.Store
	bus     *bus.Bus
	log     *zerolog.Logger
	maxBody int
}

// NewService builds a chat service. maxBody bounds message bodies in
// bytes; values <= 0 disable the bound.
func NewService(st store.Store, b *bus.Bus, logger *zerolog.Logger, maxBody int) *Service {
	return &Service{
		store:   st,
		bus:     b,
		log:     logger,
		maxBody: maxBody,
	}
}

func (s *Service) requireMember(ctx context.Context, user *store.User, roomID int64) error {
	if _, err := s.store.GetRoomByID(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "room not found")
		}
		return apperr.Wrap(apperr.KindStorage, "load room", err)
	}

	member, err := s.store.IsMember(ctx, roomID, user.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "check membership", err)
	}
	if !member {
		return apperr.New(apperr.KindUnauthorized, "not a room member")
	}
	return nil
}

// Send validates, persists, and announces a message. Publication
// happens strictly after successful persistence; a store failure means
// nothing is announced. The returned message carries the store-assigned
// ID and timestamp — callers reconcile optimistic entries from this
// return value, not from the live feed.
func (s *Service) Send(ctx context.Context, user *store.User, roomID int64, body string) (*store.Message, error) {
	if err := s.requireMember(ctx, user, roomID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(body) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "message body is empty")
	}
	if s.maxBody > 0 && len(body) > s.maxBody {
		return nil, apperr.New(apperr.KindInvalidInput, "message body too large")
	}

	msg, err := s.store.CreateMessage(ctx, roomID, user.ID, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "persist message", err)
	}

	// Best effort: a delivery fault inside the bus never fails the
	// send, persistence already succeeded.
	s.bus.Publish(roomID, *msg)

	s.log.Debug().
		Int64("room_id", roomID).
		Int64("message_id", msg.ID).
		Int64("user_id", user.ID).
		Msg("message published")

	return msg, nil
}

// History returns the room's messages in (created_at, id) ascending
// order, the same order live events are delivered in.
func (s *Service) History(ctx context.Context, user *store.User, roomID int64) ([]*store.Message, error) {
	if err := s.requireMember(ctx, user, roomID); err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessages(ctx, roomID, 0)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "list messages", err)
	}
	return messages, nil
}

// Subscribe opens a live feed of messages for the room. The caller
// owns the subscription and must Cancel it when done.
func (s *Service) Subscribe(ctx context.Context, user *store.User, roomID int64) (*bus.Subscription, error) {
	if err := s.requireMember(ctx, user, roomID); err != nil {
		return nil, err
	}
	return s.bus.Subscribe(roomID), nil
}

// CreateRoom creates a room owned by user, who becomes its first member.
func (s *Service) CreateRoom(ctx context.Context, user *store.User, name, description string) (*store.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 64 {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid room name")
	}

	room, err := s.store.CreateRoom(ctx, name, description, user.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, apperr.New(apperr.KindInvalidInput, "room name already taken")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "create room", err)
	}
	return room, nil
}

// ListRooms lists every room with its member count.
func (s *Service) ListRooms(ctx context.Context) ([]*store.RoomSummary, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "list rooms", err)
	}
	return rooms, nil
}

// JoinRoom adds user to the room. Joining twice is a no-op.
func (s *Service) JoinRoom(ctx context.Context, user *store.User, roomID int64) error {
	if _, err := s.store.GetRoomByID(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "room not found")
		}
		return apperr.Wrap(apperr.KindStorage, "load room", err)
	}
	if err := s.store.AddMember(ctx, roomID, user.ID); err != nil {
		return apperr.Wrap(apperr.KindStorage, "add member", err)
	}
	return nil
}
