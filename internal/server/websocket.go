package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jasmine-z2a/studio/internal/feed"
	"github.com/jasmine-z2a/studio/internal/model"
	"github.com/jasmine-z2a/studio/internal/panel"
	"github.com/jasmine-z2a/studio/internal/pkg/searchquery"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // same policy as the HTTP API
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxClientMessage = 4096
)

// clientMessage is what the viewport sends us: scroll events, the
// jump-to-bottom action, and filter/topic changes.
type clientMessage struct {
	Type  string `json:"type"`            // "scroll", "jump", "filter", "topic"
	Query string `json:"query,omitempty"` // filter-bar text for "filter"
	Name  string `json:"name,omitempty"`  // topic name for "topic"
}

type snapshotMessage struct {
	Type               string            `json:"type"`
	Topic              string            `json:"topic"`
	Records            []model.LogRecord `json:"records"`
	SeenNames          []string          `json:"seenNames"`
	JumpControlVisible bool              `json:"jumpControlVisible"`
}

type batchMessage struct {
	Type    string            `json:"type"`
	Records []model.LogRecord `json:"records"`
}

// wsViewport implements panel.Viewport for a remote viewport. A
// programmatic scroll becomes a pending command flushed to the client
// after the content it belongs to.
type wsViewport struct {
	pending atomic.Bool
}

func (v *wsViewport) ScrollToBottom() { v.pending.Store(true) }

// session is one connected viewport: its own Panel, its own follower
// state, its own topic subscription.
type session struct {
	id       string
	srv      *PanelServer
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	panel    *panel.Panel
	viewport *wsViewport

	// mu guards sub and orders stream output against snapshot swaps.
	mu  sync.Mutex
	sub *feed.Subscription
}

// handlePanelSocket upgrades the connection and runs a viewport session.
func (s *PanelServer) handlePanelSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := &session{
		id:       uuid.NewString(),
		srv:      s,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		panel:    panel.New(s.registry, s.defaultTopic),
		viewport: &wsViewport{},
	}
	sess.panel.AttachViewport(sess.viewport)

	if cfg, found, err := s.cfg.LoadPanelConfig(r.Context()); err != nil {
		slog.Error("panel config load failed", "session", sess.id, "error", err)
	} else if found {
		sess.panel.Restore(cfg)
	}

	slog.Debug("viewport session connected", "session", sess.id)

	go sess.writePump()
	sess.sendSnapshotAndSubscribe()
	sess.readPump()
}

// sendSnapshotAndSubscribe resolves the topic, (re)subscribes for live
// batches, and sends the full visible state. The subscription and the
// history snapshot are taken atomically, so a record arriving around the
// handoff is either in the snapshot or delivered as a batch, never lost.
// Swapping the subscription and enqueueing the snapshot share the session
// mutex with streamPump, so no batch from the old subscription can follow
// the new snapshot.
func (sess *session) sendSnapshotAndSubscribe() {
	topic := sess.panel.Topic(sess.srv.store.Topics())
	history, newSub := sess.srv.store.SubscribeWithSnapshot(topic, 16)
	records := sess.panel.Visible(history)
	if records == nil {
		records = []model.LogRecord{}
	}

	sess.mu.Lock()
	oldSub := sess.sub
	sess.sub = newSub
	sess.enqueue(snapshotMessage{
		Type:               "snapshot",
		Topic:              topic,
		Records:            records,
		SeenNames:          sess.panel.SeenNames(),
		JumpControlVisible: sess.panel.JumpControlVisible(),
	})
	sess.mu.Unlock()

	if oldSub != nil {
		oldSub.Close()
	}
	go sess.streamPump(newSub)
}

// streamPump forwards live batches through the panel to the client. The
// filtered batch goes out first; a follower-issued scroll command follows
// it, so the client scrolls content it has already rendered. A pump whose
// subscription has been replaced stops without emitting its batch.
func (sess *session) streamPump(sub *feed.Subscription) {
	for batch := range sub.C {
		sess.mu.Lock()
		if sess.sub != sub {
			sess.mu.Unlock()
			return
		}
		visible := sess.panel.HandleNewRecords(batch)
		if len(visible) > 0 {
			sess.enqueue(batchMessage{Type: "batch", Records: visible})
		}
		sess.flushScroll()
		sess.mu.Unlock()
	}
}

// flushScroll emits at most one pending scroll-to-bottom command.
func (sess *session) flushScroll() {
	if sess.viewport.pending.Swap(false) {
		sess.enqueue(map[string]string{"type": "scrollToBottom"})
	}
}

func (sess *session) sendState() {
	sess.enqueue(map[string]any{
		"type":               "state",
		"jumpControlVisible": sess.panel.JumpControlVisible(),
	})
}

func (sess *session) enqueue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal websocket message", "error", err)
		return
	}
	select {
	case <-sess.done:
	case sess.send <- data:
	default:
		// Send buffer full; drop rather than block the pipeline.
	}
}

// readPump handles viewport events until the connection drops.
func (sess *session) readPump() {
	defer func() {
		sess.mu.Lock()
		sub := sess.sub
		sess.sub = nil
		sess.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		close(sess.done)
		sess.conn.Close()
		slog.Debug("viewport session disconnected", "session", sess.id)
	}()

	sess.conn.SetReadLimit(maxClientMessage)
	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		sess.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.enqueue(map[string]string{"type": "error", "error": "invalid message"})
			continue
		}
		sess.handleMessage(msg)
	}
}

func (sess *session) handleMessage(msg clientMessage) {
	switch msg.Type {
	case "scroll":
		sess.panel.HandleScroll()
		sess.sendState()

	case "jump":
		sess.panel.JumpToBottom()
		sess.flushScroll()
		sess.sendState()

	case "filter":
		spec, err := searchquery.Parse(msg.Query)
		if err != nil {
			sess.enqueue(map[string]string{"type": "error", "error": err.Error()})
			return
		}
		sess.panel.SetFilter(spec)
		sess.persistConfig()
		sess.sendSnapshotAndSubscribe()

	case "topic":
		sess.panel.SetTopic(msg.Name)
		sess.persistConfig()
		sess.sendSnapshotAndSubscribe()

	default:
		sess.enqueue(map[string]string{"type": "error", "error": "unknown message type"})
	}
}

// persistConfig writes the panel config wholesale on every user-driven
// change.
func (sess *session) persistConfig() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.srv.cfg.SavePanelConfig(ctx, sess.panel.Config()); err != nil {
		slog.Error("panel config save failed", "session", sess.id, "error", err)
	}
}

// writePump pumps messages from the session to the WebSocket connection.
func (sess *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.conn.Close()
	}()

	for {
		select {
		case <-sess.done:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			sess.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
