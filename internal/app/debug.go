// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

// StateEngine is the engine surface the debug server needs.
type StateEngine interface {
	Snapshot() gesture.Snapshot
	Post(gesture.Event) bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // debug endpoint, bound to a local address
	},
}

// DebugCmd is a command sent by a websocket client.
//
//	{"action":"get_state"}
//	{"action":"inject","event":"proximity","near":true,"ts":123}
//	{"action":"inject","event":"pickup","picked_up":true}
//	{"action":"inject","event":"orientation"}
//	{"action":"inject","event":"display","on":false}
//	{"action":"inject","event":"config","key":"gesture_pocket","enabled":true}
type DebugCmd struct {
	Action   string `json:"action"`
	Event    string `json:"event,omitempty"`
	Near     bool   `json:"near,omitempty"`
	TS       int64  `json:"ts,omitempty"`
	PickedUp bool   `json:"picked_up,omitempty"`
	On       bool   `json:"on,omitempty"`
	Key      string `json:"key,omitempty"`
	Enabled  bool   `json:"enabled,omitempty"`
}

// DebugResponse is sent to websocket clients.
type DebugResponse struct {
	Type      string            `json:"type"` // "state", "status", "error"
	State     *gesture.Snapshot `json:"state,omitempty"`
	Message   string            `json:"message,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type debugSession struct {
	conn *websocket.Conn
	send chan DebugResponse
}

// DebugServer serves /api/state and streams engine snapshots over /ws.
type DebugServer struct {
	engine StateEngine
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[*debugSession]struct{}
}

func NewDebugServer(engine StateEngine, logger *zap.Logger) *DebugServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebugServer{
		engine:   engine,
		logger:   logger.Named("debug"),
		sessions: make(map[*debugSession]struct{}),
	}
}

// Handler returns the HTTP routes.
func (d *DebugServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", d.handleState)
	mux.HandleFunc("/ws", d.handleWS)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (d *DebugServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	d.logger.Info("debug server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (d *DebugServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d.engine.Snapshot()); err != nil {
		d.logger.Warn("json encode error", zap.Error(err))
	}
}

// Publish broadcasts a snapshot to every websocket client. Slow clients miss
// updates rather than stall the engine.
func (d *DebugServer) Publish(s gesture.Snapshot) {
	resp := stateResponse(s)

	d.mu.Lock()
	defer d.mu.Unlock()
	for sess := range d.sessions {
		select {
		case sess.send <- resp:
		default:
		}
	}
}

// Clients returns the number of connected websocket clients.
func (d *DebugServer) Clients() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func (d *DebugServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	sess := &debugSession{conn: conn, send: make(chan DebugResponse, 16)}
	sess.send <- stateResponse(d.engine.Snapshot())

	d.mu.Lock()
	d.sessions[sess] = struct{}{}
	d.mu.Unlock()

	done := make(chan struct{})
	go d.writeLoop(sess, done)

	defer func() {
		d.mu.Lock()
		delete(d.sessions, sess)
		d.mu.Unlock()
		close(done)
		conn.Close()
	}()

	for {
		var cmd DebugCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				d.logger.Warn("websocket error", zap.Error(err))
			}
			return
		}
		d.reply(sess, d.handleCmd(cmd))
	}
}

func (d *DebugServer) reply(sess *debugSession, resp DebugResponse) {
	select {
	case sess.send <- resp:
	default:
		d.logger.Warn("websocket client too slow, dropping reply")
	}
}

func (d *DebugServer) writeLoop(sess *debugSession, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case resp := <-sess.send:
			if err := sess.conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}
}

func (d *DebugServer) handleCmd(cmd DebugCmd) DebugResponse {
	switch cmd.Action {
	case "get_state":
		return stateResponse(d.engine.Snapshot())
	case "inject":
		ev, err := cmd.event()
		if err != nil {
			return errorResponse(err.Error())
		}
		if !d.engine.Post(ev) {
			return errorResponse("event queue full")
		}
		d.logger.Info("event injected", zap.String("event", cmd.Event))
		return DebugResponse{Type: "status", Message: "queued " + cmd.Event, Timestamp: now()}
	default:
		return errorResponse("unknown action: " + cmd.Action)
	}
}

func (c DebugCmd) event() (gesture.Event, error) {
	switch c.Event {
	case "proximity":
		return gesture.ProximityEvent{Near: c.Near, Timestamp: c.TS}, nil
	case "pickup":
		return gesture.PickUpEvent{PickedUp: c.PickedUp}, nil
	case "orientation":
		return gesture.OrientationEvent{}, nil
	case "display":
		return gesture.DisplayEvent{On: c.On}, nil
	case "config":
		if _, ok := (gesture.Config{}).Get(c.Key); !ok {
			return nil, errors.New("unknown gesture key: " + c.Key)
		}
		return gesture.ConfigChange{Key: c.Key, Enabled: c.Enabled}, nil
	}
	return nil, errors.New("unknown event: " + c.Event)
}

func stateResponse(s gesture.Snapshot) DebugResponse {
	return DebugResponse{Type: "state", State: &s, Timestamp: now()}
}

func errorResponse(msg string) DebugResponse {
	return DebugResponse{Type: "error", Message: msg, Timestamp: now()}
}

func now() string { return time.Now().Format(time.RFC3339Nano) }
