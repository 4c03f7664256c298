package geo

import "math"

const earthRadiusMetres = 6371008.8

// Point is a WGS84 coordinate in degrees
type Point struct {
	Latitude  float64 `json:"latitude" groups:"basic"`
	Longitude float64 `json:"longitude" groups:"basic"`
}

// Distance is the great-circle (haversine) distance to other in metres
func (p Point) Distance(other Point) float64 {
	lat1 := degreesToRadians(p.Latitude)
	lat2 := degreesToRadians(other.Latitude)
	dLat := lat2 - lat1
	dLon := degreesToRadians(other.Longitude - p.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMetres * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// VectorTo is the local planar (east, north) offset in metres from p to other.
// Longitude is scaled by the cosine of the mean latitude.
func (p Point) VectorTo(other Point) Vector {
	meanLat := degreesToRadians((p.Latitude + other.Latitude) / 2)

	return Vector{
		X: degreesToRadians(other.Longitude-p.Longitude) * math.Cos(meanLat) * earthRadiusMetres,
		Y: degreesToRadians(other.Latitude-p.Latitude) * earthRadiusMetres,
	}
}

// BoundingBox is an axis aligned box in degrees
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// BoxAround returns the box extending delta degrees from p in every direction
func BoxAround(p Point, delta float64) BoundingBox {
	return BoundingBox{
		MinLatitude:  p.Latitude - delta,
		MaxLatitude:  p.Latitude + delta,
		MinLongitude: p.Longitude - delta,
		MaxLongitude: p.Longitude + delta,
	}
}

func (b BoundingBox) Contains(p Point) bool {
	return p.Latitude >= b.MinLatitude && p.Latitude <= b.MaxLatitude &&
		p.Longitude >= b.MinLongitude && p.Longitude <= b.MaxLongitude
}

func (b BoundingBox) Center() Point {
	return Point{
		Latitude:  (b.MinLatitude + b.MaxLatitude) / 2,
		Longitude: (b.MinLongitude + b.MaxLongitude) / 2,
	}
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
