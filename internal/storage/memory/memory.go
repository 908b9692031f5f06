// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/skyspect/inspection/internal/config"
	"github.com/skyspect/inspection/internal/geo"
	"github.com/skyspect/inspection/pkg/core"
)

// Backend accumulates mission data in memory and exports a JSON report
// document at mission end.
type Backend struct {
	cfg    config.MemoryConfig
	origin geo.Origin

	mission   *core.Mission
	ticks     []core.TickRecord
	anomalies []core.Anomaly
	report    *core.Report

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend anchored at the given site origin.
func New(cfg config.MemoryConfig, origin geo.Origin) *Backend {
	return &Backend{
		cfg:    cfg,
		origin: origin,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMission begins recording a new mission
func (b *Backend) StartMission(mission *core.Mission) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := *mission
	b.mission = &m
	b.ticks = nil
	b.anomalies = nil
	b.report = nil
	b.lastExportPath = ""

	return nil
}

// RecordTick appends one per-tick observation.
func (b *Backend) RecordTick(rec *core.TickRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mission == nil {
		return fmt.Errorf("no active mission")
	}
	b.ticks = append(b.ticks, *rec)
	return nil
}

// RecordAnomaly appends one detected finding.
func (b *Backend) RecordAnomaly(a *core.Anomaly) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mission == nil {
		return fmt.Errorf("no active mission")
	}
	b.anomalies = append(b.anomalies, *a)
	return nil
}

// EndMission stores the final report and exports the mission document.
func (b *Backend) EndMission(report *core.Report) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mission == nil {
		return fmt.Errorf("no active mission")
	}
	r := *report
	b.report = &r

	return b.exportJSON()
}

// LastExportPath returns the path of the most recent export, or an empty
// string if nothing has been exported yet.
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// TickCount reports how many tick records have been captured so far.
func (b *Backend) TickCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ticks)
}
