package railway

import "fmt"

// TravelDirection is the canonical direction of travel along a line's station order
type TravelDirection string

const (
	Ascending  TravelDirection = "ascending"
	Descending TravelDirection = "descending"
)

func (d TravelDirection) Reversed() TravelDirection {
	if d == Ascending {
		return Descending
	}

	return Ascending
}

// RailDirection is the operator's name for a direction of travel. Besides the
// compass and loop names some operators name directions after their terminal station.
type RailDirection string

const (
	RailDirectionInbound    RailDirection = "Inbound"
	RailDirectionOutbound   RailDirection = "Outbound"
	RailDirectionNorthbound RailDirection = "Northbound"
	RailDirectionSouthbound RailDirection = "Southbound"
	RailDirectionEastbound  RailDirection = "Eastbound"
	RailDirectionWestbound  RailDirection = "Westbound"
	RailDirectionInnerLoop  RailDirection = "InnerLoop"
	RailDirectionOuterLoop  RailDirection = "OuterLoop"
)

var railDirectionTitlesJA = map[RailDirection]string{
	RailDirectionInbound:    "上り",
	RailDirectionOutbound:   "下り",
	RailDirectionNorthbound: "北行",
	RailDirectionSouthbound: "南行",
	RailDirectionEastbound:  "東行",
	RailDirectionWestbound:  "西行",
	RailDirectionInnerLoop:  "内回り",
	RailDirectionOuterLoop:  "外回り",
}

// IsTerminalAlias reports whether the direction is named after a terminal station (eg "TokyoMetro.Shibuya")
func (d RailDirection) IsTerminalAlias() bool {
	_, named := railDirectionTitlesJA[d]
	return !named && d != ""
}

func (d RailDirection) TitleJA() string {
	if title, ok := railDirectionTitlesJA[d]; ok {
		return title
	}

	return string(d)
}

// RailwayDirection is a line travelled in one direction, the unit the tracker reasons about
type RailwayDirection struct {
	RailwayID RailwayID       `json:"railway" groups:"basic"`
	Direction TravelDirection `json:"direction" groups:"basic"`
}

func (rd RailwayDirection) String() string {
	return fmt.Sprintf("%s:%s", rd.RailwayID, rd.Direction)
}

func (rd RailwayDirection) MarshalText() ([]byte, error) {
	return []byte(rd.String()), nil
}

// StationDirection is a station passed in one direction of travel
type StationDirection struct {
	StationID StationID       `json:"station" groups:"basic"`
	Direction TravelDirection `json:"direction" groups:"basic"`
}

func (sd StationDirection) String() string {
	return fmt.Sprintf("%s:%s", sd.StationID, sd.Direction)
}

func (sd StationDirection) MarshalText() ([]byte, error) {
	return []byte(sd.String()), nil
}
