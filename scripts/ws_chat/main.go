// Command ws_chat is a terminal chat client. It authenticates as a
// guest (or with a provided token), joins a room, and renders the
// merged view of history, live events, and its own pending sends.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kvasir-labs/parlor/internal/mergeview"
	"github.com/kvasir-labs/parlor/internal/proto"
	"github.com/kvasir-labs/parlor/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func run() error {
	base := flag.String("addr", "http://localhost:8080", "server base URL")
	token := flag.String("token", "", "bearer token; empty logs in as a guest")
	roomID := flag.Int64("room", 1, "room ID to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	c := &client{base: *base, token: *token, http: &http.Client{Timeout: 10 * time.Second}}

	if c.token == "" {
		var resp struct {
			Token string `json:"token"`
		}
		if err := c.do(ctx, http.MethodPost, "/api/guest", nil, &resp); err != nil {
			return fmt.Errorf("guest login: %w", err)
		}
		c.token = resp.Token
	}

	var me struct {
		ID          int64  `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		AvatarURL   string `json:"avatar_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &me); err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	self := &store.User{ID: me.ID, Username: me.Username, DisplayName: me.DisplayName, AvatarURL: me.AvatarURL}

	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/rooms/%d/join", *roomID), nil, nil); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	wsURL := strings.Replace(c.base, "http", "ws", 1) + "/ws?token=" + c.token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	subData, err := json.Marshal(proto.SubscribeData{RoomID: *roomID})
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSubscribe, Data: subData}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	view := mergeview.New()

	// Subscribe first, fetch history second: anything delivered in the
	// gap is buffered by the view and folded in at Seed.
	go func() {
		defer cancel()
		readLoop(ctx, conn, view)
	}()

	var history []proto.MessageData
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/rooms/%d/messages", *roomID), nil, &history); err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	snapshot := make([]*store.Message, 0, len(history))
	for i := range history {
		msg := toStoreMessage(history[i])
		snapshot = append(snapshot, &msg)
	}
	view.Seed(snapshot)

	fmt.Printf("Connected to %s as %s in room %d\n", *base, self.Username, *roomID)
	for _, entry := range view.Entries() {
		printEntry(entry)
	}
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	writeLoop(ctx, c, view, self, *roomID)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, view *mergeview.View) {
	for {
		var frame struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch {
		case frame.Type == proto.OutboundTypeError && frame.Error != nil:
			log.Printf("server error: %s (%s)", frame.Error.Msg, frame.Error.Code)
		case frame.Event == proto.EventMessage:
			var data proto.MessageData
			if err := json.Unmarshal(frame.Data, &data); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			view.Apply(toStoreMessage(data))
			printEntry(mergeview.Entry{Message: toStoreMessage(data)})
		}
	}
}

func writeLoop(ctx context.Context, c *client, view *mergeview.View, self *store.User, roomID int64) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			body := strings.TrimSpace(line)
			if body == "" {
				continue
			}

			token := view.AddPending(roomID, self, body)

			var confirmed proto.MessageData
			err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/rooms/%d/messages", roomID),
				map[string]string{"body": body}, &confirmed)
			if err != nil {
				view.Fail(token)
				log.Printf("send failed: %v", err)
				continue
			}
			view.Confirm(token, toStoreMessage(confirmed))
		}
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toStoreMessage(data proto.MessageData) store.Message {
	return store.Message{
		ID:           data.ID,
		RoomID:       data.RoomID,
		UserID:       data.UserID,
		Body:         data.Body,
		CreatedAt:    time.UnixMilli(data.CreatedAt),
		AuthorName:   data.AuthorName,
		AuthorAvatar: data.AuthorAvatar,
	}
}

func printEntry(entry mergeview.Entry) {
	if entry.Pending {
		fmt.Printf("%s: %s (sending...)\n", entry.Message.AuthorName, entry.Message.Body)
		return
	}
	fmt.Printf("[%s] %s: %s\n", entry.Message.CreatedAt.Format("15:04:05"), entry.Message.AuthorName, entry.Message.Body)
}
