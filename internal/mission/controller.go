// Package mission drives the inspection lifecycle. The Controller owns
// the vehicle state and, once per tick, advances the motion model,
// captures a camera frame, runs the detection pipeline, and publishes
// the results to the event bus for the configured sinks.
package mission

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/skyspect/inspection/internal/detect"
	"github.com/skyspect/inspection/internal/dispatch"
	"github.com/skyspect/inspection/internal/sim"
	"github.com/skyspect/inspection/pkg/core"
)

// Phase is the mission lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// FrameSource produces the imagery the detection pipeline inspects.
type FrameSource interface {
	Capture() *image.RGBA
}

// Snapshot is a point-in-time copy of mission progress, safe to retain
// after the controller moves on.
type Snapshot struct {
	Phase     Phase
	Mission   core.Mission
	Vehicle   core.VehicleState
	Tick      int
	Anomalies []core.Anomaly
	LastTick  core.TickRecord
}

// Controller runs one mission at a time.
type Controller struct {
	motion   *sim.Model
	pipeline *detect.Pipeline
	frames   FrameSource
	bus      *dispatch.Bus
	logger   *slog.Logger
	now      func() time.Time

	ticksMetric     metric.Int64Counter
	anomaliesMetric metric.Int64Counter

	mu        sync.Mutex
	phase     Phase
	mission   core.Mission
	vehicle   *core.VehicleState
	tick      int
	anomalies []core.Anomaly
	lastTick  core.TickRecord
}

// NewController wires a controller from its collaborators. The bus may
// be nil when no sinks are configured; events are then discarded.
func NewController(motion *sim.Model, pipeline *detect.Pipeline, frames FrameSource, bus *dispatch.Bus, logger *slog.Logger) (*Controller, error) {
	if motion == nil {
		return nil, fmt.Errorf("mission: motion model is required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("mission: detection pipeline is required")
	}
	if frames == nil {
		return nil, fmt.Errorf("mission: frame source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		motion:   motion,
		pipeline: pipeline,
		frames:   frames,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
		phase:    PhaseIdle,
	}

	m := meter()
	var err error
	c.ticksMetric, err = m.Int64Counter(
		"mission.ticks",
		metric.WithDescription("Total simulation ticks executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	c.anomaliesMetric, err = m.Int64Counter(
		"mission.anomalies",
		metric.WithDescription("Total anomalies detected"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating anomaly counter: %w", err)
	}

	return c, nil
}

// Start arms the controller with a mission and resets vehicle state.
// Only an idle controller can start; a finished controller must be
// replaced, not restarted. An empty plan is accepted: the first tick
// lands the vehicle without motion or inspection and the mission
// completes with an empty anomaly log.
func (c *Controller) Start(m core.Mission) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return fmt.Errorf("mission: cannot start in phase %s", c.phase)
	}

	if m.StartTime.IsZero() {
		m.StartTime = c.now()
	}
	c.mission = m
	v := core.NewVehicleState()
	v.Flying = true
	c.vehicle = &v
	c.motion.SetFlightPath(m.Plan)
	c.tick = 0
	c.anomalies = nil
	c.phase = PhaseActive

	c.logger.Info("mission started",
		"mission", m.Name,
		"site", m.Site.Name,
		"waypoints", len(m.Plan),
	)
	c.publish(dispatch.Event{Topic: dispatch.TopicMissionStart, Payload: c.mission})
	return nil
}

// Tick advances the simulation by dt seconds. On the tick that lands
// the vehicle the frame is still captured and inspected before the
// controller transitions to complete; further ticks are no-ops.
func (c *Controller) Tick(ctx context.Context, dt float64) (Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseIdle:
		return PhaseIdle, fmt.Errorf("mission: tick before start")
	case PhaseComplete:
		return PhaseComplete, nil
	}
	if dt <= 0 {
		return c.phase, fmt.Errorf("mission: non-positive dt %v", dt)
	}

	c.tick++
	c.motion.Advance(c.vehicle, dt)

	// An empty plan lands on the first tick without covering any
	// ground; there is nothing to inspect, so no frame is taken.
	var found []core.Anomaly
	if len(c.mission.Plan) > 0 {
		frame := c.frames.Capture()
		found = c.pipeline.Detect(frame, c.vehicle.Position)
		c.anomalies = append(c.anomalies, found...)
	}

	c.ticksMetric.Add(ctx, 1)
	if len(found) > 0 {
		for _, a := range found {
			c.anomaliesMetric.Add(ctx, 1,
				metric.WithAttributes(
					attribute.String("category", string(a.Category)),
					attribute.String("severity", string(a.Severity)),
				))
			c.logger.Info("anomaly detected",
				"category", a.Category,
				"severity", a.Severity,
				"confidence", a.Confidence,
				"tick", c.tick,
			)
		}
	}

	rec := core.TickRecord{
		Tick:          c.tick,
		Time:          c.now(),
		Position:      c.vehicle.Position,
		Velocity:      c.vehicle.Velocity,
		Battery:       c.vehicle.Battery,
		WaypointIndex: c.vehicle.WaypointIndex,
		Flying:        c.vehicle.Flying,
		Anomalies:     found,
	}
	c.lastTick = rec

	c.publish(dispatch.Event{Topic: dispatch.TopicTick, Payload: rec, Timestamp: rec.Time})
	for _, a := range found {
		c.publish(dispatch.Event{Topic: dispatch.TopicAnomaly, Payload: a, Timestamp: a.DetectedAt})
	}

	if !c.vehicle.Flying {
		c.phase = PhaseComplete
		c.logger.Info("mission complete",
			"mission", c.mission.Name,
			"ticks", c.tick,
			"anomalies", len(c.anomalies),
			"battery", c.vehicle.Battery,
		)
		c.publish(dispatch.Event{Topic: dispatch.TopicMissionEnd, Payload: c.mission})
	}

	return c.phase, nil
}

// Snapshot returns a deep copy of the controller state. The copy shares
// nothing with the live state, so sinks may hold it indefinitely.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Phase:    c.phase,
		Mission:  c.mission,
		Tick:     c.tick,
		LastTick: c.lastTick,
	}
	if c.vehicle != nil {
		s.Vehicle = c.vehicle.Clone()
	}
	s.Anomalies = append([]core.Anomaly(nil), c.anomalies...)
	s.Mission.Plan = append([]core.Waypoint(nil), c.mission.Plan...)
	s.LastTick.Anomalies = append([]core.Anomaly(nil), c.lastTick.Anomalies...)
	return s
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Anomalies returns a copy of every anomaly detected so far.
func (c *Controller) Anomalies() []core.Anomaly {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Anomaly(nil), c.anomalies...)
}

func (c *Controller) publish(e dispatch.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(e); err != nil {
		c.logger.Error("event delivery failed", "topic", e.Topic, "error", err)
	}
}
