// internal/storage/storage.go
package storage

import "github.com/skyspect/inspection/pkg/core"

// Backend is the interface all recording sinks must satisfy. Mission data
// flows through it in order: StartMission once, then RecordTick and
// RecordAnomaly per tick, then EndMission with the final report.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Mission recording
	StartMission(mission *core.Mission) error
	RecordTick(rec *core.TickRecord) error
	RecordAnomaly(a *core.Anomaly) error
	EndMission(report *core.Report) error
}

// Exportable is an optional interface for backends that write a report
// artifact to disk at mission end.
type Exportable interface {
	LastExportPath() string
}
