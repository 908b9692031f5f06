// pkg/core/vehicle.go
package core

// Launch constants for the simulated vehicle.
const (
	StartAltitude = 100.0
	FullBattery   = 100.0
)

// VehicleState is the complete kinematic state of the inspection vehicle.
// It is owned exclusively by the mission controller and mutated once per
// tick by the motion model.
type VehicleState struct {
	Position      Position3D   `json:"position"`
	Velocity      Position3D   `json:"velocity"`
	Battery       float64      `json:"battery"` // percentage; not clamped at zero
	WaypointIndex int          `json:"waypointIndex"`
	Flying        bool         `json:"flying"`
	FlightPath    []Position3D `json:"flightPath"` // append-only position history
}

// NewVehicleState returns the launch state: hovering at the start altitude
// with a full battery.
func NewVehicleState() VehicleState {
	return VehicleState{
		Position: Position3D{X: 0, Y: 0, Z: StartAltitude},
		Battery:  FullBattery,
	}
}

// Speed returns the magnitude of the current velocity in m/s.
func (s *VehicleState) Speed() float64 {
	return s.Velocity.Norm()
}

// BatteryUsed returns the percentage of battery consumed since launch.
// It can exceed 100 because depletion past zero is not clamped.
func (s *VehicleState) BatteryUsed() float64 {
	return FullBattery - s.Battery
}

// Clone returns a deep copy, including the flight path history.
func (s *VehicleState) Clone() VehicleState {
	out := *s
	out.FlightPath = make([]Position3D, len(s.FlightPath))
	copy(out.FlightPath, s.FlightPath)
	return out
}
