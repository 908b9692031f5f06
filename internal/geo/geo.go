package geo

import (
	"errors"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/skyspect/inspection/pkg/core"
)

// Vehicle positions are simulated in a local east/north/up frame in
// metres, anchored at the inspected site. For storage and export they
// are georeferenced against the site origin in EPSG:3857, which keeps
// the metre-based offsets directly addable. WGS84 output is derived by
// transforming back to EPSG:4326.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Origin anchors the local simulation frame at a geographic site.
type Origin struct {
	// Site origin projected to EPSG:3857, in metres.
	X float64
	Y float64
}

// NewOrigin projects a WGS84 site location into EPSG:3857.
func NewOrigin(latitude, longitude float64) Origin {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return Origin{X: x, Y: y}
}

// Project maps a local vehicle position onto an EPSG:3857 point.
// Altitude passes through as Z.
func (o Origin) Project(p core.Position3D) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: o.X + p.X, Y: o.Y + p.Y},
			Z:    p.Z,
			Type: geom.DimXYZ,
		},
	)
}

// ToWGS84 maps a local vehicle position back to longitude/latitude.
func (o Origin) ToWGS84(p core.Position3D) (longitude, latitude, elevation float64) {
	f := wgs84.EPSG().Transform(3857, 4326)
	longitude, latitude, _ = f(o.X+p.X, o.Y+p.Y, 0)
	return longitude, latitude, p.Z
}

// ParsePosition parses an "x,y" or "x,y,z" string of local metre
// offsets into a core.Position3D.
func ParsePosition(coords string) (core.Position3D, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var z float64
	if len(parts) > 2 {
		z, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return core.Position3D{}, ErrInvalidCoordinates
		}
	}
	return core.Position3D{X: x, Y: y, Z: z}, nil
}

// ParseWaypoint parses an "x,y,z" or "x,y,z,tag" string into a
// waypoint. A missing tag falls back to the waypoint default.
func ParseWaypoint(s string) (core.Waypoint, error) {
	parts := strings.SplitN(s, ",", 4)
	if len(parts) < 3 {
		return core.Waypoint{}, ErrInvalidCoordinates
	}
	pos, err := ParsePosition(strings.Join(parts[:3], ","))
	if err != nil {
		return core.Waypoint{}, err
	}
	tag := ""
	if len(parts) == 4 {
		tag = strings.TrimSpace(parts[3])
	}
	return core.NewWaypoint(pos.X, pos.Y, pos.Z, tag), nil
}

// ParsePlan parses a list of waypoint strings into a flight plan.
func ParsePlan(specs []string) ([]core.Waypoint, error) {
	plan := make([]core.Waypoint, 0, len(specs))
	for _, s := range specs {
		wp, err := ParseWaypoint(s)
		if err != nil {
			return nil, err
		}
		plan = append(plan, wp)
	}
	return plan, nil
}
