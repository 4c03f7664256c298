package location

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/travigo/railtracker/pkg/geo"
)

// Fix is a single GPS sample from a recorded or live trip
type Fix struct {
	ID        uuid.UUID `json:"id" groups:"basic"`
	Latitude  float64   `json:"latitude" groups:"basic"`
	Longitude float64   `json:"longitude" groups:"basic"`
	Timestamp time.Time `json:"timestamp" groups:"basic"`

	// Speed in metres per second
	Speed Optional `json:"speed" groups:"detailed"`
	// Course in degrees clockwise from true north
	Course             Optional `json:"course" groups:"detailed"`
	HorizontalAccuracy Optional `json:"horizontalAccuracy" groups:"detailed"`
}

func (f Fix) Point() geo.Point {
	return geo.Point{Latitude: f.Latitude, Longitude: f.Longitude}
}

// Heading returns the unit vector of the fix course, if the fix has one
func (f Fix) Heading() (geo.Vector, bool) {
	course, ok := f.Course.Get()
	if !ok {
		return geo.Vector{}, false
	}

	return geo.HeadingVector(course), true
}

// Optional is a measurement that may be absent
type Optional struct {
	Value float64
	Valid bool
}

func Some(value float64) Optional {
	return Optional{Value: value, Valid: true}
}

func None() Optional {
	return Optional{}
}

// FromSensor converts a raw device reading where negative numbers and NaN mean "no reading"
func FromSensor(value float64) Optional {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return None()
	}

	return Some(value)
}

func (o Optional) Get() (float64, bool) {
	return o.Value, o.Valid
}

// Or returns the value or fallback when absent
func (o Optional) Or(fallback float64) float64 {
	if !o.Valid {
		return fallback
	}

	return o.Value
}
