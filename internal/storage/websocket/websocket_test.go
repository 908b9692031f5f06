package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyspect/inspection/pkg/core"
	"github.com/skyspect/inspection/pkg/streaming"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_mission/end_mission.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			// Ack start_mission and end_mission.
			if env.Type == streaming.TypeStartMission || env.Type == streaming.TypeEndMission {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) countType(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func surveyMission() *core.Mission {
	return &core.Mission{
		ID:        "m-007",
		Name:      "Deck Sweep",
		Site:      core.Site{Name: "Main Street Bridge", Latitude: 47.5596, Longitude: 7.5886},
		StartTime: time.Now(),
		Tag:       "bridge",
	}
}

func TestStartAndEndMission(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMission(surveyMission()))
	require.NoError(t, b.EndMission(&core.Report{TotalAnomalies: 0}))

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartMission, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndMission, msgs[len(msgs)-1].Type)
}

func TestStartMissionPayloadCarriesPlan(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"})
	require.NoError(t, b.Init())
	defer b.Close()

	mission := surveyMission()
	mission.Plan = []core.Waypoint{
		core.NewWaypoint(0, 0, 50, "start"),
		core.NewWaypoint(100, 0, 30, "deck"),
	}
	require.NoError(t, b.StartMission(mission))

	msgs := ml.all()
	require.NotEmpty(t, msgs)

	var payload streaming.StartMissionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	require.NotNil(t, payload.Mission)
	assert.Equal(t, "m-007", payload.Mission.ID)
	require.Len(t, payload.Mission.Plan, 2)
	assert.Equal(t, "deck", payload.Mission.Plan[1].InspectionType)
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMission(surveyMission()))

	for i := 0; i < 4; i++ {
		require.NoError(t, b.RecordTick(&core.TickRecord{Tick: i + 1, Flying: true}))
	}
	require.NoError(t, b.RecordAnomaly(&core.Anomaly{
		ID:       "crack_1",
		Category: core.CategoryCrack,
		Severity: core.SeverityHigh,
	}))

	require.NoError(t, b.EndMission(&core.Report{TotalAnomalies: 1}))

	assert.Eventually(t, func() bool {
		return ml.countType(streaming.TypeTickState) == 4 &&
			ml.countType(streaming.TypeAnomaly) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEndMissionTimesOutWithoutAck(t *testing.T) {
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		// Read but never ack.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"})
	require.NoError(t, b.Init())
	defer b.Close()

	err := b.stream.publishAndWait(streaming.Envelope{Type: streaming.TypeTickState}, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestReconnectReplaysMissionHeader(t *testing.T) {
	ml := &messageLog{}
	var mu sync.Mutex
	conns := 0

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		mu.Lock()
		conns++
		first := conns == 1
		mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if json.Unmarshal(msg, &env) != nil {
				continue
			}
			ml.add(env)
			if env.Type == streaming.TypeStartMission || env.Type == streaming.TypeEndMission {
				ack, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				if c.WriteMessage(ws.TextMessage, ack) != nil {
					return
				}
			}
			if first {
				// Drop the first connection right after the mission starts.
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"})
	require.NoError(t, b.Init())
	defer b.Close()
	b.stream.backoffBase = 10 * time.Millisecond

	require.NoError(t, b.StartMission(surveyMission()))

	// Keep ticks flowing so the dropped connection surfaces quickly and
	// the reconnect path runs.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			case <-time.After(5 * time.Millisecond):
				_ = b.RecordTick(&core.TickRecord{Tick: i, Flying: true})
			}
		}
	}()

	assert.Eventually(t, func() bool {
		return ml.countType(streaming.TypeStartMission) >= 2
	}, 5*time.Second, 20*time.Millisecond, "mission announcement must be replayed on the new connection")
}

func TestInitFailsOnBadURL(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1", Secret: "s"})
	assert.Error(t, b.Init())
}
