// pkg/core/mission.go
package core

import "time"

// Site describes the inspected structure and anchors site-local coordinates
// to a geographic origin.
type Site struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Mission describes one inspection run from flight-plan load to final
// waypoint arrival.
type Mission struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Site      Site       `json:"site"`
	StartTime time.Time  `json:"startTime"`
	Tag       string     `json:"tag"`
	Plan      []Waypoint `json:"plan"`
}

// TickRecord is the immutable per-tick observation handed to sinks
// (storage, telemetry, live stream). It carries copies only; sinks can
// never reach back into controller-owned state.
type TickRecord struct {
	Tick          int        `json:"tick"`
	Time          time.Time  `json:"time"`
	Position      Position3D `json:"position"`
	Velocity      Position3D `json:"velocity"`
	Battery       float64    `json:"battery"`
	WaypointIndex int        `json:"waypointIndex"`
	Flying        bool       `json:"flying"`
	Anomalies     []Anomaly  `json:"anomalies"` // findings from this tick only
}
