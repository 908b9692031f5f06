// Package gormstore implements the storage.Backend interface on GORM with
// internal queues and a background DB writer goroutine.
package gormstore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/skyspect/inspection/internal/database"
	"github.com/skyspect/inspection/internal/geo"
	"github.com/skyspect/inspection/internal/model"
	"github.com/skyspect/inspection/internal/model/convert"
	"github.com/skyspect/inspection/internal/queue"
	"github.com/skyspect/inspection/pkg/core"
)

const writeInterval = 500 * time.Millisecond

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	Manager *database.Manager
	Origin  geo.Origin
	Logger  *slog.Logger
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	TickStates *queue.Queue[model.TickState]
	Anomalies  *queue.Queue[model.Anomaly]
}

func newQueues() *queues {
	return &queues{
		TickStates: queue.New[model.TickState](),
		Anomalies:  queue.New[model.Anomaly](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	stopChan chan struct{}
	wg       sync.WaitGroup
	dbReady  bool

	mu        sync.Mutex
	missionID uint // DB row ID of the active mission
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init connects the database if needed, migrates the schema, and starts
// the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	mgr := b.deps.Manager
	if mgr == nil {
		return fmt.Errorf("no database manager configured")
	}
	if mgr.DB == nil {
		if err := mgr.Connect(); err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
	}
	if err := mgr.Setup(); err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}
	b.dbReady = true

	b.startDBWriter()
	return nil
}

// Close drains the queues one final time and stops the writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
	}
	b.flush()
	return nil
}

// StartMission creates the site and mission rows and remembers the
// mission's DB id for the writer goroutine.
func (b *Backend) StartMission(coreMission *core.Mission) error {
	db := b.deps.Manager.DB

	site := convert.CoreToSite(coreMission.Site)
	if err := db.Where(model.Site{Name: site.Name}).FirstOrCreate(&site).Error; err != nil {
		return fmt.Errorf("failed to get or insert site: %w", err)
	}

	gormMission := convert.CoreToMission(*coreMission)
	gormMission.Site = site
	gormMission.SiteID = site.ID
	if err := db.Create(&gormMission).Error; err != nil {
		return fmt.Errorf("failed to insert new mission: %w", err)
	}

	b.mu.Lock()
	b.missionID = gormMission.ID
	b.mu.Unlock()

	return nil
}

// RecordTick converts the tick record to its GORM row and queues it.
func (b *Backend) RecordTick(rec *core.TickRecord) error {
	row := convert.CoreToTickState(b.currentMissionID(), *rec)
	b.queues.TickStates.Push(row)
	return nil
}

// RecordAnomaly georeferences the finding and queues its GORM row.
func (b *Backend) RecordAnomaly(a *core.Anomaly) error {
	row := convert.CoreToAnomaly(b.currentMissionID(), b.deps.Origin, *a)
	b.queues.Anomalies.Push(row)
	return nil
}

// EndMission flushes the queues, writes the report row, and stamps the
// mission's end time and flight path geometry.
func (b *Backend) EndMission(report *core.Report) error {
	b.flush()

	db := b.deps.Manager.DB
	missionID := b.currentMissionID()

	gormReport := convert.CoreToReport(missionID, *report)
	if err := db.Create(&gormReport).Error; err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	updates := map[string]any{
		"end_time": sql.NullTime{Time: report.GeneratedAt, Valid: true},
	}
	if wkt, err := b.flightPathWKT(missionID); err == nil {
		updates["flight_path"] = wkt
	}
	if err := db.Model(&model.Mission{}).Where("id = ?", missionID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to finalize mission: %w", err)
	}

	return nil
}

// flightPathWKT rebuilds the georeferenced flight path from the stored
// tick states.
func (b *Backend) flightPathWKT(missionID uint) (string, error) {
	var rows []model.TickState
	err := b.deps.Manager.DB.
		Where("mission_id = ?", missionID).
		Order("tick asc").
		Find(&rows).Error
	if err != nil {
		return "", err
	}

	path := make([]core.Position3D, 0, len(rows))
	for _, row := range rows {
		path = append(path, core.Position3D{X: row.PosX, Y: row.PosY, Z: row.PosZ})
	}
	return geo.FlightPathWKT(b.deps.Origin, path)
}

func (b *Backend) currentMissionID() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.missionID
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, logger *slog.Logger) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.Drain()
	if err := tx.Create(&items).Error; err != nil {
		logger.Error("DB writer failed to create rows", "queue", name, "error", err)
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// flush drains all queues into the database once.
func (b *Backend) flush() {
	if !b.dbReady {
		return
	}
	db := b.deps.Manager.DB
	writeQueue(db, b.queues.TickStates, "tick_states", b.deps.Logger)
	writeQueue(db, b.queues.Anomalies, "anomalies", b.deps.Logger)
}

// startDBWriter starts the background goroutine that periodically drains
// the queues into the DB.
func (b *Backend) startDBWriter() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(writeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.flush()
			}
		}
	}()
}
