package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/chat"
	"github.com/kvasir-labs/parlor/internal/proto"
	"github.com/kvasir-labs/parlor/internal/store"
)

// RoomHandlers provides the room and message endpoints.
type RoomHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(chatService *chat.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		chat: chatService,
		log:  logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=64"`
	Description string `json:"description" binding:"max=256"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     *int64 `json:"owner_id,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func roomResponse(room *store.Room, memberCount int) RoomResponse {
	return RoomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		OwnerID:     room.OwnerID,
		MemberCount: memberCount,
		CreatedAt:   room.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func roomID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return 0, false
	}
	return id, true
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.chat.CreateRoom(c.Request.Context(), user, req.Name, req.Description)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}

	h.log.Info().Str("room_name", room.Name).Int64("room_id", room.ID).Int64("owner_id", user.ID).Msg("room created")
	c.JSON(http.StatusCreated, roomResponse(room, 1))
}

// ListRooms lists every room with its member count.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.chat.ListRooms(c.Request.Context())
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, roomResponse(&room.Room, room.MemberCount))
	}
	c.JSON(http.StatusOK, response)
}

// JoinRoom adds the caller to a room.
// POST /api/rooms/:id/join
func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := roomID(c)
	if !ok {
		return
	}

	if err := h.chat.JoinRoom(c.Request.Context(), user, id); err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages returns the room's history, oldest first. Live events
// arrive in the same order, so the client's merge is a sorted union.
// GET /api/rooms/:id/messages
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := roomID(c)
	if !ok {
		return
	}

	messages, err := h.chat.History(c.Request.Context(), user, id)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}

	response := make([]proto.MessageData, 0, len(messages))
	for _, msg := range messages {
		response = append(response, messageData(msg))
	}
	c.JSON(http.StatusOK, response)
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// SendMessage persists a message and announces it to subscribers. The
// response carries the stored message so the sender can replace its
// optimistic entry with the authoritative one.
// POST /api/rooms/:id/messages
func (h *RoomHandlers) SendMessage(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := roomID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), user, id, req.Body)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, messageData(msg))
}
