package railwaydb

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/travigo/railtracker/pkg/railway"
	"gopkg.in/yaml.v3"
)

// Dataset is the YAML description of a small railway reference dataset
type Dataset struct {
	Railways []DatasetRailway `yaml:"railways" validate:"required,min=1,dive"`
}

type DatasetRailway struct {
	ID         string           `yaml:"id" validate:"required"`
	Title      railway.Title    `yaml:"title"`
	Color      string           `yaml:"color"`
	Ascending  string           `yaml:"ascending" validate:"required"`
	Descending string           `yaml:"descending" validate:"required"`
	Stations   []DatasetStation `yaml:"stations" validate:"required,min=2,dive"`
	Track      []DatasetPoint   `yaml:"track" validate:"dive"`
}

type DatasetStation struct {
	ID        string        `yaml:"id" validate:"required"`
	Title     railway.Title `yaml:"title"`
	Latitude  float64       `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64       `yaml:"longitude" validate:"gte=-180,lte=180"`
}

type DatasetPoint struct {
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
}

// LoadDataset reads and validates a YAML dataset file
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseDataset(data)
}

func ParseDataset(data []byte) (*Dataset, error) {
	var dataset Dataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	if err := validator.New().Struct(dataset); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}

	return &dataset, nil
}

// Index builds the in-memory index of the dataset. Stations are ordered as listed,
// starting from 1, and the track vertices are numbered in file order.
func (d *Dataset) Index() (*MemoryIndex, error) {
	var railways []*railway.Railway
	var stations []*railway.Station
	tracks := map[railway.RailwayID][]railway.Coordinate{}
	coordinateID := railway.CoordinateID(1)

	for _, datasetRailway := range d.Railways {
		line := &railway.Railway{
			ID:         railway.RailwayID(datasetRailway.ID),
			Title:      datasetRailway.Title,
			Color:      datasetRailway.Color,
			Ascending:  railway.RailDirection(datasetRailway.Ascending),
			Descending: railway.RailDirection(datasetRailway.Descending),
		}

		for i, datasetStation := range datasetRailway.Stations {
			line.Stations = append(line.Stations, railway.StationID(datasetStation.ID))
			stations = append(stations, &railway.Station{
				ID:        railway.StationID(datasetStation.ID),
				RailwayID: line.ID,
				Title:     datasetStation.Title,
				Order:     i + 1,
				Latitude:  datasetStation.Latitude,
				Longitude: datasetStation.Longitude,
			})
		}

		for _, point := range datasetRailway.Track {
			tracks[line.ID] = append(tracks[line.ID], railway.Coordinate{
				ID:        coordinateID,
				Latitude:  point.Latitude,
				Longitude: point.Longitude,
			})
			coordinateID++
		}

		railways = append(railways, line)
	}

	return NewMemoryIndex(railways, stations, tracks)
}
