// Package websocket streams mission data live to a monitoring server.
// Ticks and anomalies are fire-and-forget; mission start and end wait
// for a server acknowledgement.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/skyspect/inspection/pkg/core"
	"github.com/skyspect/inspection/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams mission data over WebSocket.
type Backend struct {
	stream *stream
	cfg    Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	return &Backend{
		stream: newStream(slog.Default()),
		cfg:    cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.stream.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.stream.close()
}

// envelope wraps a payload in the stream's outer message format.
func envelope(msgType string, payload any) (streaming.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return streaming.Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return streaming.Envelope{Type: msgType, Payload: raw}, nil
}

// StartMission announces the mission and waits for the server ack. The
// announcement sticks to the stream so reconnects can replay it.
func (b *Backend) StartMission(mission *core.Mission) error {
	env, err := envelope(streaming.TypeStartMission, streaming.StartMissionPayload{Mission: mission})
	if err != nil {
		return err
	}
	b.stream.setHeader(env)
	return b.stream.publishAndWait(env, ackTimeout)
}

// RecordTick streams one tick state (fire-and-forget).
func (b *Backend) RecordTick(rec *core.TickRecord) error {
	env, err := envelope(streaming.TypeTickState, rec)
	if err != nil {
		return err
	}
	b.stream.publish(env)
	return nil
}

// RecordAnomaly streams one finding (fire-and-forget).
func (b *Backend) RecordAnomaly(a *core.Anomaly) error {
	env, err := envelope(streaming.TypeAnomaly, a)
	if err != nil {
		return err
	}
	b.stream.publish(env)
	return nil
}

// EndMission sends the final report and waits for the server ack. The
// mission announcement is dropped either way; a reconnect after the end
// of a mission has nothing to replay.
func (b *Backend) EndMission(report *core.Report) error {
	env, err := envelope(streaming.TypeEndMission, streaming.EndMissionPayload{Report: report})
	if err != nil {
		return err
	}

	ackErr := b.stream.publishAndWait(env, ackTimeout)
	b.stream.clearHeader()
	return ackErr
}
