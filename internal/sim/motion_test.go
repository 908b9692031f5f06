package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyspect/inspection/pkg/core"
)

func newTestModel(plan []core.Waypoint) *Model {
	m := New(DefaultConfig(), nil)
	m.SetFlightPath(plan)
	return m
}

func TestAdvance_EmptyPlanLandsImmediately(t *testing.T) {
	m := newTestModel(nil)
	st := core.NewVehicleState()
	st.Flying = true

	m.Advance(&st, 0.1)

	assert.False(t, st.Flying)
	assert.Empty(t, st.FlightPath, "no motion should be recorded for an empty plan")
	assert.Equal(t, core.FullBattery, st.Battery)
}

func TestAdvance_DescendsToWaypointAndLands(t *testing.T) {
	// Plan from the vertical-descent scenario: start (0,0,100), one
	// waypoint at (0,0,50), dt=0.1, max speed 10.
	m := newTestModel([]core.Waypoint{core.NewWaypoint(0, 0, 50, "")})
	st := core.NewVehicleState()
	st.Flying = true

	ticks := 0
	for st.Flying && ticks < 10_000 {
		m.Advance(&st, 0.1)
		ticks++
	}

	require.False(t, st.Flying, "mission must terminate")
	assert.Less(t, st.Position.DistanceTo(core.Position3D{Z: 50}), 1.5)
	// Every moving tick appends exactly one path point; the landing tick
	// returns before logging.
	assert.Equal(t, ticks-1, len(st.FlightPath))
	assert.Less(t, st.Battery, core.FullBattery)
}

func TestAdvance_WaypointIndexMonotonic(t *testing.T) {
	plan := []core.Waypoint{
		core.NewWaypoint(0, 0, 50, "start"),
		core.NewWaypoint(10, 0, 50, "deck"),
		core.NewWaypoint(20, 0, 50, "end"),
	}
	m := newTestModel(plan)
	st := core.NewVehicleState()
	st.Flying = true

	prev := st.WaypointIndex
	for i := 0; i < 10_000 && st.Flying; i++ {
		m.Advance(&st, 0.1)
		require.GreaterOrEqual(t, st.WaypointIndex, prev, "index must never decrease")
		require.LessOrEqual(t, st.WaypointIndex, len(plan))
		prev = st.WaypointIndex
	}
	assert.False(t, st.Flying)
	assert.Equal(t, len(plan), st.WaypointIndex)
}

func TestAdvance_WaypointAtStartAdvancesWithoutMotion(t *testing.T) {
	m := newTestModel([]core.Waypoint{
		core.NewWaypoint(0, 0, core.StartAltitude, ""),
		core.NewWaypoint(0, 0, 50, ""),
	})
	st := core.NewVehicleState()
	st.Flying = true
	start := st.Position

	m.Advance(&st, 0.1)

	assert.Equal(t, 1, st.WaypointIndex, "arrival tie-break should advance on the first tick")
	assert.Equal(t, start, st.Position, "no net displacement on the tie-break tick")
	assert.True(t, st.Flying)
	assert.Len(t, st.FlightPath, 1, "the tick still logs the (unchanged) position")
}

func TestAdvance_ProportionalBrakingCapsSpeed(t *testing.T) {
	m := newTestModel([]core.Waypoint{core.NewWaypoint(1000, 0, core.StartAltitude, "")})
	st := core.NewVehicleState()
	st.Flying = true

	m.Advance(&st, 0.1)
	assert.InDelta(t, DefaultMaxSpeed, st.Speed(), 1e-9, "far from target the cap applies")

	// Near the target the speed is proportional to distance.
	near := newTestModel([]core.Waypoint{core.NewWaypoint(2, 0, core.StartAltitude, "")})
	st2 := core.NewVehicleState()
	st2.Flying = true
	near.Advance(&st2, 0.1)
	assert.InDelta(t, 4.0, st2.Speed(), 1e-9, "2m out the braking rule gives distance*2")
}

func TestAdvance_BatteryDrainsAndIsNotClamped(t *testing.T) {
	// A target far above keeps the vehicle flying long enough to fully
	// drain a tiny battery.
	m := newTestModel([]core.Waypoint{core.NewWaypoint(0, 0, 1e9, "")})
	st := core.NewVehicleState()
	st.Flying = true
	st.Battery = 0.05

	for i := 0; i < 20; i++ {
		m.Advance(&st, 0.1)
	}

	assert.Negative(t, st.Battery, "depletion past zero is allowed, not clamped")
	assert.True(t, st.Flying, "battery depletion alone does not end the mission")
}

func TestAdvance_TerminatesForAllPlans(t *testing.T) {
	plans := [][]core.Waypoint{
		{},
		{core.NewWaypoint(0, 0, 50, "")},
		{
			core.NewWaypoint(100, 0, 50, ""),
			core.NewWaypoint(200, 0, 30, ""),
			core.NewWaypoint(300, 0, 30, ""),
			core.NewWaypoint(400, 0, 30, ""),
			core.NewWaypoint(500, 0, 50, ""),
		},
	}

	for _, plan := range plans {
		m := newTestModel(plan)
		st := core.NewVehicleState()
		st.Flying = true

		ticks := 0
		for st.Flying && ticks < 200_000 {
			m.Advance(&st, 0.1)
			ticks++
		}
		require.False(t, st.Flying, "plan of %d waypoints did not terminate", len(plan))
	}
}
