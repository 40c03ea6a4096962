package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/doze_gestures/internal/gesture"
)

type fakeStateEngine struct {
	mu     sync.Mutex
	snap   gesture.Snapshot
	posted []gesture.Event
	full   bool
}

func (e *fakeStateEngine) Snapshot() gesture.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

func (e *fakeStateEngine) Post(ev gesture.Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.full {
		return false
	}
	e.posted = append(e.posted, ev)
	return true
}

func (e *fakeStateEngine) events() []gesture.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]gesture.Event(nil), e.posted...)
}

func newDebugFixture(t *testing.T) (*DebugServer, *fakeStateEngine, *httptest.Server) {
	t.Helper()
	eng := &fakeStateEngine{snap: gesture.Snapshot{Pulses: 3, LastEvent: "display_off"}}
	d := NewDebugServer(eng, zaptest.NewLogger(t))
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)
	return d, eng, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func TestDebugServer_StateEndpoint(t *testing.T) {
	_, _, srv := newDebugFixture(t)

	resp, err := http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var s gesture.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, uint64(3), s.Pulses)
	assert.Equal(t, "display_off", s.LastEvent)
}

func TestDebugServer_StateEndpointRejectsPost(t *testing.T) {
	_, _, srv := newDebugFixture(t)
	resp, err := http.Post(srv.URL+"/api/state", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDebugServer_WebsocketInitialStateAndBroadcast(t *testing.T) {
	d, _, srv := newDebugFixture(t)
	conn := dial(t, srv)

	var first DebugResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "state", first.Type)
	require.NotNil(t, first.State)
	assert.Equal(t, uint64(3), first.State.Pulses)

	require.Eventually(t, func() bool { return d.Clients() == 1 }, time.Second, 5*time.Millisecond)
	d.Publish(gesture.Snapshot{Pulses: 4})

	var next DebugResponse
	require.NoError(t, conn.ReadJSON(&next))
	require.NotNil(t, next.State)
	assert.Equal(t, uint64(4), next.State.Pulses)
}

func TestDebugServer_Inject(t *testing.T) {
	_, eng, srv := newDebugFixture(t)
	conn := dial(t, srv)

	var resp DebugResponse
	require.NoError(t, conn.ReadJSON(&resp))

	cmds := []DebugCmd{
		{Action: "inject", Event: "display", On: false},
		{Action: "inject", Event: "proximity", Near: true, TS: 99},
		{Action: "inject", Event: "config", Key: gesture.KeyPocket, Enabled: true},
	}
	for _, c := range cmds {
		require.NoError(t, conn.WriteJSON(c))
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, "status", resp.Type)
	}

	assert.Equal(t, []gesture.Event{
		gesture.DisplayEvent{On: false},
		gesture.ProximityEvent{Near: true, Timestamp: 99},
		gesture.ConfigChange{Key: gesture.KeyPocket, Enabled: true},
	}, eng.events())
}

func TestDebugServer_Errors(t *testing.T) {
	_, eng, srv := newDebugFixture(t)
	conn := dial(t, srv)

	var resp DebugResponse
	require.NoError(t, conn.ReadJSON(&resp))

	for _, c := range []DebugCmd{
		{Action: "reboot"},
		{Action: "inject", Event: "temperature"},
		{Action: "inject", Event: "config", Key: "gesture_double_tap"},
	} {
		require.NoError(t, conn.WriteJSON(c))
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, "error", resp.Type, c)
	}

	eng.mu.Lock()
	eng.full = true
	eng.mu.Unlock()
	require.NoError(t, conn.WriteJSON(DebugCmd{Action: "inject", Event: "orientation"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "event queue full", resp.Message)
}

func TestDebugServer_GetState(t *testing.T) {
	_, _, srv := newDebugFixture(t)
	conn := dial(t, srv)

	var resp DebugResponse
	require.NoError(t, conn.ReadJSON(&resp))
	require.NoError(t, conn.WriteJSON(DebugCmd{Action: "get_state"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "state", resp.Type)
}
