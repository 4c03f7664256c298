package geo

import "math"

// Vector is a planar vector where X points east and Y points north
type Vector struct {
	X float64
	Y float64
}

// HeadingVector converts a compass course (degrees clockwise from north) to a unit vector
func HeadingVector(course float64) Vector {
	angle := degreesToRadians(90 - course)

	return Vector{X: math.Cos(angle), Y: math.Sin(angle)}
}

func (v Vector) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Unit returns v scaled to length one. The zero vector has no direction so ok is false.
func (v Vector) Unit() (Vector, bool) {
	length := v.Length()
	if length == 0 || math.IsNaN(length) {
		return Vector{}, false
	}

	return Vector{X: v.X / length, Y: v.Y / length}, true
}

func (v Vector) Dot(other Vector) float64 {
	return v.X*other.X + v.Y*other.Y
}
