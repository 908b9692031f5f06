// pkg/core/types.go
package core

import "math"

// Position3D represents a site-local 3D coordinate in metres.
// X is easting, Y is northing, Z is altitude above the site datum.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns the vector from other to p.
func (p Position3D) Sub(other Position3D) Position3D {
	return Position3D{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

// Add returns p translated by other.
func (p Position3D) Add(other Position3D) Position3D {
	return Position3D{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Scale returns p scaled by f.
func (p Position3D) Scale(f float64) Position3D {
	return Position3D{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

// Norm returns the Euclidean length of p treated as a vector.
func (p Position3D) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// DistanceTo returns the Euclidean distance between p and other.
func (p Position3D) DistanceTo(other Position3D) float64 {
	return other.Sub(p).Norm()
}
