package railway

import (
	"github.com/travigo/railtracker/pkg/geo"
)

type RailwayID string
type StationID string
type CoordinateID int64

// Railway is one line of the reference dataset. Stations is the ascending order.
type Railway struct {
	ID       RailwayID   `json:"id" bson:"_id" groups:"basic"`
	Title    Title       `json:"title" bson:"title" groups:"basic"`
	Stations []StationID `json:"stations" bson:"stations" groups:"detailed"`
	Color    string      `json:"color" bson:"color" groups:"basic"`

	Ascending  RailDirection `json:"ascending" bson:"ascending" groups:"basic"`
	Descending RailDirection `json:"descending" bson:"descending" groups:"basic"`
}

// Direction maps the canonical travel direction to the line's display direction
func (r *Railway) Direction(direction TravelDirection) RailDirection {
	if direction == Descending {
		return r.Descending
	}

	return r.Ascending
}

// OrderedStations returns the station IDs in the order they are passed when travelling in direction
func (r *Railway) OrderedStations(direction TravelDirection) []StationID {
	ordered := make([]StationID, len(r.Stations))
	copy(ordered, r.Stations)

	if direction == Descending {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	return ordered
}

type Station struct {
	ID        StationID `json:"id" bson:"_id" groups:"basic"`
	RailwayID RailwayID `json:"railway" bson:"railway" groups:"basic"`
	Title     Title     `json:"title" bson:"title" groups:"basic"`
	Order     int       `json:"order" bson:"order" groups:"detailed"`
	Latitude  float64   `json:"latitude" bson:"latitude" groups:"basic"`
	Longitude float64   `json:"longitude" bson:"longitude" groups:"basic"`
}

func (s *Station) Point() geo.Point {
	return geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Coordinate is one vertex of a railway track polyline
type Coordinate struct {
	ID        CoordinateID `json:"id" groups:"detailed"`
	Latitude  float64      `json:"latitude" groups:"basic"`
	Longitude float64      `json:"longitude" groups:"basic"`
}

func (c Coordinate) Point() geo.Point {
	return geo.Point{Latitude: c.Latitude, Longitude: c.Longitude}
}

// Title holds the localised names of a railway or station
type Title struct {
	EN string `json:"en" bson:"en" yaml:"en" groups:"basic"`
	JA string `json:"ja" bson:"ja" yaml:"ja" groups:"basic"`
}

// Localised returns the english title for "en" and the japanese title otherwise
func (t Title) Localised(languageCode string) string {
	if languageCode == "en" {
		return t.EN
	}

	return t.JA
}
