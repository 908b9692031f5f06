package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/skyspect/inspection/pkg/core"
)

// FlightPathLine builds a 2D LineString from the vehicle's position
// history, georeferenced against the site origin.
func FlightPathLine(origin Origin, path []core.Position3D) (geom.LineString, error) {
	if len(path) < 2 {
		return geom.LineString{}, fmt.Errorf("flight path must have at least 2 points, got %d", len(path))
	}

	flat := make([]float64, 0, len(path)*2)
	for _, p := range path {
		flat = append(flat, origin.X+p.X, origin.Y+p.Y)
	}

	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// FlightPathWKT renders the flight path as WKT for storage backends
// without native geometry types.
func FlightPathWKT(origin Origin, path []core.Position3D) (string, error) {
	ls, err := FlightPathLine(origin, path)
	if err != nil {
		return "", err
	}
	return ls.AsText(), nil
}
