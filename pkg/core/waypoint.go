// pkg/core/waypoint.go
package core

// DefaultInspectionType is used when a waypoint carries no explicit tag.
const DefaultInspectionType = "general"

// Waypoint is a target position in the flight plan with an inspection-type
// tag. Waypoints are constructed once at mission start and never mutated.
type Waypoint struct {
	Position       Position3D `json:"position"`
	InspectionType string     `json:"inspectionType"`
}

// NewWaypoint creates a waypoint at the given coordinates. An empty
// inspection type defaults to "general".
func NewWaypoint(x, y, z float64, inspectionType string) Waypoint {
	if inspectionType == "" {
		inspectionType = DefaultInspectionType
	}
	return Waypoint{
		Position:       Position3D{X: x, Y: y, Z: z},
		InspectionType: inspectionType,
	}
}
