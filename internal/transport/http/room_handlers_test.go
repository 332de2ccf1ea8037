package http

import (
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasir-labs/parlor/internal/proto"
)

func createRoom(t *testing.T, env *testEnv, token, name string) RoomResponse {
	t.Helper()

	rec := env.do(t, stdhttp.MethodPost, "/api/rooms", token, map[string]any{"name": name})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())

	var room RoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	return room
}

func TestCreateAndListRooms(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	room := createRoom(t, env, token, "general")
	assert.Equal(t, "general", room.Name)

	// Duplicate name conflicts at the validation layer.
	rec := env.do(t, stdhttp.MethodPost, "/api/rooms", token, map[string]any{"name": "general"})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, "/api/rooms", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var rooms []RoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, rooms[0].MemberCount)
}

func TestSendAndHistoryOrdering(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")
	room := createRoom(t, env, token, "general")

	for i := 0; i < 3; i++ {
		rec := env.do(t, stdhttp.MethodPost, fmt.Sprintf("/api/rooms/%d/messages", room.ID), token, map[string]any{
			"body": fmt.Sprintf("message %d", i),
		})
		require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())

		var msg proto.MessageData
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
		assert.NotZero(t, msg.ID)
		assert.Equal(t, "alice", msg.AuthorName)
	}

	rec := env.do(t, stdhttp.MethodGet, fmt.Sprintf("/api/rooms/%d/messages", room.ID), token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var history []proto.MessageData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 3)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("message %d", i), msg.Body)
		if i > 0 {
			assert.Greater(t, msg.ID, history[i-1].ID)
		}
	}
}

func TestNonMemberIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice")
	bobToken := env.register(t, "bob")
	room := createRoom(t, env, aliceToken, "private-ish")

	messagesPath := fmt.Sprintf("/api/rooms/%d/messages", room.ID)

	rec := env.do(t, stdhttp.MethodPost, messagesPath, bobToken, map[string]any{"body": "hi"})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, messagesPath, bobToken, nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	// Joining makes both work.
	rec = env.do(t, stdhttp.MethodPost, fmt.Sprintf("/api/rooms/%d/join", room.ID), bobToken, nil)
	require.Equal(t, stdhttp.StatusNoContent, rec.Code)

	rec = env.do(t, stdhttp.MethodPost, messagesPath, bobToken, map[string]any{"body": "hi"})
	assert.Equal(t, stdhttp.StatusCreated, rec.Code)

	rec = env.do(t, stdhttp.MethodGet, messagesPath, bobToken, nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
}

func TestSendValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")
	room := createRoom(t, env, token, "general")

	rec := env.do(t, stdhttp.MethodPost, fmt.Sprintf("/api/rooms/%d/messages", room.ID), token, map[string]any{"body": "   "})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = env.do(t, stdhttp.MethodPost, "/api/rooms/9999/messages", token, map[string]any{"body": "hello"})
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
}
