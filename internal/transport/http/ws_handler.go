package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/auth"
	"github.com/kvasir-labs/parlor/internal/bus"
	"github.com/kvasir-labs/parlor/internal/chat"
	"github.com/kvasir-labs/parlor/internal/proto"
	"github.com/kvasir-labs/parlor/internal/store"
)

// WSHandler upgrades HTTP connections and bridges them to the room
// event bus. A connection holds at most one active room subscription;
// subscribing to another room replaces it.
type WSHandler struct {
	auth *auth.Service
	chat *chat.Service
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(authService *auth.Service, chatService *chat.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{auth: authService, chat: chatService, log: logger}
}

// wsSession is the per-connection state. active is owned by the read
// loop; the write loop only drains out.
type wsSession struct {
	user   *store.User
	out    chan proto.Outbound
	active *bus.Subscription
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth failed")
		stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &wsSession{
		user: user,
		out:  make(chan proto.Outbound, 32),
	}
	defer func() {
		if sess.active != nil {
			sess.active.Cancel()
		}
	}()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Int64("user_id", user.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// authenticate resolves the user from a ?token= query parameter or a
// bearer header. Browsers cannot set headers on WebSocket upgrades, so
// the query form is the primary path.
func (h *WSHandler) authenticate(r *stdhttp.Request) (*store.User, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return nil, errors.New("missing token")
	}

	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return h.auth.CurrentUser(r.Context(), claims)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *wsSession) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		switch inbound.Type {
		case proto.InboundTypeSubscribe:
			var req proto.SubscribeData
			if err := json.Unmarshal(inbound.Data, &req); err != nil {
				sess.send(ctx, errorFrame(apperr.New(apperr.KindInvalidInput, "malformed subscribe data")))
				continue
			}

			sub, err := h.chat.Subscribe(ctx, sess.user, req.RoomID)
			if err != nil {
				sess.send(ctx, errorFrame(err))
				continue
			}

			if sess.active != nil {
				sess.active.Cancel()
			}
			sess.active = sub

			sess.send(ctx, proto.Outbound{
				Type:  proto.OutboundTypeEvent,
				Event: proto.EventSubscribed,
				Data:  proto.SubscribedData{RoomID: req.RoomID},
			})
			go h.forward(ctx, sess, sub)

			h.log.Debug().Int64("user_id", sess.user.ID).Int64("room_id", req.RoomID).Msg("ws subscribed")

		case proto.InboundTypeUnsubscribe:
			if sess.active != nil {
				sess.active.Cancel()
				sess.active = nil
			}

		default:
			sess.send(ctx, errorFrame(apperr.New(apperr.KindInvalidInput, "unknown message type")))
		}
	}
}

// forward pumps one subscription into the session's outbound queue. It
// exits when the subscription is cancelled or the connection ends.
func (h *WSHandler) forward(ctx context.Context, sess *wsSession, sub *bus.Subscription) {
	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			sess.send(ctx, proto.Outbound{
				Type:  proto.OutboundTypeEvent,
				Event: proto.EventMessage,
				Data:  messageData(&msg),
			})
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *wsSession) error {
	for {
		select {
		case frame := <-sess.out:
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				h.log.Error().Err(err).Int64("user_id", sess.user.ID).Msg("write ws frame")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (sess *wsSession) send(ctx context.Context, frame proto.Outbound) {
	select {
	case sess.out <- frame:
	case <-ctx.Done():
	}
}

func errorFrame(err error) proto.Outbound {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindUnauthorized, apperr.KindInvalidInput, apperr.KindNotFound:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: string(kind), Msg: err.Error()},
		}
	default:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: string(apperr.KindStorage), Msg: "internal error"},
		}
	}
}
