// Package sim implements the waypoint-following motion model for the
// inspection vehicle. The model owns the flight plan and tuning constants;
// the vehicle state itself is owned by the mission controller and passed in
// for each advance, so there is exactly one owner of mutable state.
package sim

import (
	"log/slog"

	"github.com/skyspect/inspection/pkg/core"
)

// Tuning constants for the kinematic model. Distances are metres, speeds m/s.
const (
	DefaultMaxSpeed      = 10.0
	DefaultArrivalRadius = 1.0
	DefaultBatteryDrain  = 0.1 // percent per second of flight
)

// Config holds the kinematic tuning for a motion model.
type Config struct {
	MaxSpeed      float64
	ArrivalRadius float64
	BatteryDrain  float64
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		MaxSpeed:      DefaultMaxSpeed,
		ArrivalRadius: DefaultArrivalRadius,
		BatteryDrain:  DefaultBatteryDrain,
	}
}

// Model advances vehicle state toward the active waypoint one time-step at
// a time.
type Model struct {
	cfg    Config
	plan   []core.Waypoint
	logger *slog.Logger

	batteryWarned bool
}

// New creates a motion model with the given tuning. A nil logger falls back
// to slog.Default.
func New(cfg Config, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{cfg: cfg, logger: logger}
}

// SetFlightPath installs the waypoint plan for the next mission and resets
// the model's per-mission bookkeeping. The plan is not copied; callers must
// not mutate it afterwards.
func (m *Model) SetFlightPath(plan []core.Waypoint) {
	m.plan = plan
	m.batteryWarned = false
}

// Plan returns the installed flight plan.
func (m *Model) Plan() []core.Waypoint {
	return m.plan
}

// Advance moves the vehicle one time-step of dt seconds toward the active
// waypoint, mutating st in place. dt must be positive.
//
// Speed follows a proportional-braking rule: min(maxSpeed, distance*2), so
// the vehicle decelerates smoothly on approach instead of overshooting.
// Reaching a waypoint (distance below the arrival radius) advances the
// index; exhausting the plan clears the flying flag. Battery drains
// linearly and is not clamped at zero. Depletion past zero logs a
// one-time warning and the mission carries on.
func (m *Model) Advance(st *core.VehicleState, dt float64) {
	if len(m.plan) == 0 || st.WaypointIndex >= len(m.plan) {
		st.Flying = false
		return
	}

	target := m.plan[st.WaypointIndex].Position
	direction := target.Sub(st.Position)
	distance := direction.Norm()

	if distance < m.cfg.ArrivalRadius {
		st.WaypointIndex++
		if st.WaypointIndex >= len(m.plan) {
			st.Flying = false
			return
		}
	}

	if distance > 0 {
		speed := distance * 2
		if speed > m.cfg.MaxSpeed {
			speed = m.cfg.MaxSpeed
		}
		st.Velocity = direction.Scale(speed / distance)
		st.Position = st.Position.Add(st.Velocity.Scale(dt))
	}

	st.Battery -= m.cfg.BatteryDrain * dt
	if st.Battery <= 0 && !m.batteryWarned {
		m.batteryWarned = true
		m.logger.Warn("battery depleted, vehicle in degraded state",
			"battery", st.Battery,
			"waypointIndex", st.WaypointIndex,
		)
	}

	st.FlightPath = append(st.FlightPath, st.Position)
}
