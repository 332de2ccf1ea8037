package http

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasir-labs/parlor/internal/proto"
)

// wsFrame mirrors proto.Outbound with raw data for test-side decoding.
type wsFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws?token=" + token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frame wsFrame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	return frame
}

func subscribe(t *testing.T, conn *websocket.Conn, roomID int64) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(proto.SubscribeData{RoomID: roomID})
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{
		Type: proto.InboundTypeSubscribe,
		Data: data,
	}))

	frame := readFrame(t, conn)
	require.Equal(t, proto.OutboundTypeEvent, frame.Type)
	require.Equal(t, proto.EventSubscribed, frame.Event)
}

func TestWSRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, strings.Replace(srv.URL, "http://", "ws://", 1)+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)
}

func TestWSReceivesPublishedMessages(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	token := env.register(t, "alice")
	room := createRoom(t, env, token, "general")

	conn := dialWS(t, srv, token)
	subscribe(t, conn, room.ID)

	rec := env.do(t, stdhttp.MethodPost, fmt.Sprintf("/api/rooms/%d/messages", room.ID), token, map[string]any{
		"body": "hello live feed",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code)

	frame := readFrame(t, conn)
	require.Equal(t, proto.OutboundTypeEvent, frame.Type)
	require.Equal(t, proto.EventMessage, frame.Event)

	var msg proto.MessageData
	require.NoError(t, json.Unmarshal(frame.Data, &msg))
	assert.Equal(t, "hello live feed", msg.Body)
	assert.Equal(t, room.ID, msg.RoomID)
	assert.Equal(t, "alice", msg.AuthorName)
	assert.NotZero(t, msg.ID)
}

func TestWSNoReplayOfHistory(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	token := env.register(t, "alice")
	room := createRoom(t, env, token, "general")

	// A message sent before the subscription exists.
	rec := env.do(t, stdhttp.MethodPost, fmt.Sprintf("/api/rooms/%d/messages", room.ID), token, map[string]any{
		"body": "before subscribe",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code)

	conn := dialWS(t, srv, token)
	subscribe(t, conn, room.ID)

	// Only messages published after the subscribe arrive.
	rec = env.do(t, stdhttp.MethodPost, fmt.Sprintf("/api/rooms/%d/messages", room.ID), token, map[string]any{
		"body": "after subscribe",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code)

	frame := readFrame(t, conn)
	var msg proto.MessageData
	require.NoError(t, json.Unmarshal(frame.Data, &msg))
	assert.Equal(t, "after subscribe", msg.Body)
}

func TestWSSubscribeRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	aliceToken := env.register(t, "alice")
	bobToken := env.register(t, "bob")
	room := createRoom(t, env, aliceToken, "general")

	conn := dialWS(t, srv, bobToken)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := json.Marshal(proto.SubscribeData{RoomID: room.ID})
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{
		Type: proto.InboundTypeSubscribe,
		Data: data,
	}))

	frame := readFrame(t, conn)
	require.Equal(t, proto.OutboundTypeError, frame.Type)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "unauthorized", frame.Error.Code)
}

func TestWSUnsubscribeStopsDelivery(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	token := env.register(t, "alice")
	room := createRoom(t, env, token, "general")

	conn := dialWS(t, srv, token)
	subscribe(t, conn, room.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeUnsubscribe}))

	// Give the unsubscribe a moment to land, then publish.
	require.Eventually(t, func() bool {
		return env.bus.Subscribers(room.ID) == 0
	}, 2*time.Second, 10*time.Millisecond)

	rec := env.do(t, stdhttp.MethodPost, fmt.Sprintf("/api/rooms/%d/messages", room.ID), token, map[string]any{
		"body": "nobody listening",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code)

	readCtx, readCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer readCancel()
	var frame wsFrame
	err := wsjson.Read(readCtx, conn, &frame)
	assert.Error(t, err, "expected no frame after unsubscribe")
}
