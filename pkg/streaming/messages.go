package streaming

import (
	"encoding/json"

	"github.com/skyspect/inspection/pkg/core"
)

// Message type constants for the live inspection stream.
const (
	TypeStartMission = "start_mission"
	TypeEndMission   = "end_mission"
	TypeTickState    = "tick_state"
	TypeAnomaly      = "anomaly"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMissionPayload carries the mission header, including the site and
// the full flight plan.
type StartMissionPayload struct {
	Mission *core.Mission `json:"mission"`
}

// EndMissionPayload carries the final inspection report.
type EndMissionPayload struct {
	Report *core.Report `json:"report"`
}
