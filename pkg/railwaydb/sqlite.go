package railwaydb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/travigo/railtracker/pkg/geo"
	"github.com/travigo/railtracker/pkg/railway"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is a railway.Index backed by a railway SQLite database with
// R-tree spatial indexes over stations and track coordinates
type SQLiteIndex struct {
	db *sql.DB
}

// OpenSQLiteIndex opens the railway database at path read-only
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open railway database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping railway database: %w", err)
	}

	return NewSQLiteIndex(db), nil
}

func NewSQLiteIndex(db *sql.DB) *SQLiteIndex {
	return &SQLiteIndex{db: db}
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

const nearestTrackPointsQuery = `
	WITH ranked AS (
		SELECT
			s.railway AS railway,
			c.id AS coordinate,
			c.latitude AS latitude,
			c.longitude AS longitude,
			ROW_NUMBER() OVER (
				PARTITION BY s.railway
				ORDER BY ((c.latitude - ?1) * (c.latitude - ?1)) + ((c.longitude - ?2) * (c.longitude - ?2))
			) AS rn
		FROM coordinate_rtree
		JOIN coordinate AS c ON c.id = coordinate_rtree.id
		JOIN segmentCoordinate AS sc ON sc.coordinate = c.id
		JOIN segment AS s ON s.id = sc.segment
		WHERE coordinate_rtree.minLat <= ?3 AND coordinate_rtree.maxLat >= ?4
			AND coordinate_rtree.minLon <= ?5 AND coordinate_rtree.maxLon >= ?6
			-- the R-tree keeps rounded boxes, so the exact box is checked before ranking
			AND c.latitude BETWEEN ?4 AND ?3
			AND c.longitude BETWEEN ?6 AND ?5
	)
	SELECT railway, coordinate, latitude, longitude
	FROM ranked
	WHERE rn = 1
	ORDER BY railway
`

func (s *SQLiteIndex) NearestTrackPoints(ctx context.Context, point geo.Point, box geo.BoundingBox) ([]railway.TrackPoint, error) {
	rows, err := s.db.QueryContext(ctx, nearestTrackPointsQuery,
		point.Latitude, point.Longitude,
		box.MaxLatitude, box.MinLatitude,
		box.MaxLongitude, box.MinLongitude,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	trackPoints := []railway.TrackPoint{}
	for rows.Next() {
		var trackPoint railway.TrackPoint
		if err := rows.Scan(&trackPoint.RailwayID, &trackPoint.Coordinate.ID, &trackPoint.Coordinate.Latitude, &trackPoint.Coordinate.Longitude); err != nil {
			return nil, err
		}

		trackPoints = append(trackPoints, trackPoint)
	}

	return trackPoints, rows.Err()
}

func (s *SQLiteIndex) NearestStations(ctx context.Context, point geo.Point, railwayIDs []railway.RailwayID, limit int) ([]railway.StationMatch, error) {
	matches := []railway.StationMatch{}
	if len(railwayIDs) == 0 || limit <= 0 {
		return matches, nil
	}

	placeholders := make([]string, len(railwayIDs))
	args := []any{point.Latitude, point.Longitude, limit}
	for i, railwayID := range railwayIDs {
		placeholders[i] = "?"
		args = append(args, string(railwayID))
	}

	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT
				id, railway, title, latitude, longitude, "order",
				ROW_NUMBER() OVER (
					PARTITION BY railway
					ORDER BY ((latitude - ?1) * (latitude - ?1)) + ((longitude - ?2) * (longitude - ?2))
				) AS rn
			FROM station
			WHERE railway IN (%s)
		)
		SELECT id, railway, title, latitude, longitude, "order"
		FROM ranked
		WHERE rn <= ?3
		ORDER BY railway, rn
	`, strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	byRailway := map[railway.RailwayID][]railway.Station{}
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		byRailway[station.RailwayID] = append(byRailway[station.RailwayID], *station)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, railwayID := range railwayIDs {
		for _, station := range byRailway[railwayID] {
			matches = append(matches, railway.StationMatch{RailwayID: railwayID, Station: station})
		}
	}

	return matches, nil
}

func (s *SQLiteIndex) RailwayByID(ctx context.Context, id railway.RailwayID) (*railway.Railway, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, stations, color, ascending, descending FROM railway WHERE id = ?`, string(id))

	var line railway.Railway
	var title, stations string
	err := row.Scan(&line.ID, &title, &stations, &line.Color, &line.Ascending, &line.Descending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("railway %s: %w", id, railway.ErrNotFound)
	} else if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(title), &line.Title); err != nil {
		return nil, fmt.Errorf("railway %s title: %w", id, err)
	}
	if err := json.Unmarshal([]byte(stations), &line.Stations); err != nil {
		return nil, fmt.Errorf("railway %s stations: %w", id, err)
	}

	return &line, nil
}

func (s *SQLiteIndex) StationByID(ctx context.Context, id railway.StationID) (*railway.Station, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, railway, title, latitude, longitude, "order" FROM station WHERE id = ?`, string(id))

	station, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("station %s: %w", id, railway.ErrNotFound)
	}

	return station, err
}

func (s *SQLiteIndex) StationsForRailway(ctx context.Context, id railway.RailwayID) ([]*railway.Station, error) {
	if _, err := s.RailwayByID(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, railway, title, latitude, longitude, "order" FROM station WHERE railway = ? ORDER BY "order"`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := []*railway.Station{}
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}

	return stations, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner) (*railway.Station, error) {
	var station railway.Station
	var title string

	if err := row.Scan(&station.ID, &station.RailwayID, &title, &station.Latitude, &station.Longitude, &station.Order); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(title), &station.Title); err != nil {
		return nil, fmt.Errorf("station %s title: %w", station.ID, err)
	}

	return &station, nil
}

var sqliteSchema = []string{
	`CREATE TABLE railway (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		stations TEXT NOT NULL,
		color TEXT NOT NULL,
		ascending TEXT NOT NULL,
		descending TEXT NOT NULL
	)`,
	`CREATE TABLE station (
		id TEXT PRIMARY KEY,
		railway TEXT NOT NULL REFERENCES railway(id),
		title TEXT NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		"order" INTEGER NOT NULL
	)`,
	`CREATE TABLE segment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		railway TEXT NOT NULL REFERENCES railway(id),
		underground BOOLEAN NOT NULL DEFAULT 0,
		"order" INTEGER NOT NULL
	)`,
	`CREATE TABLE coordinate (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		UNIQUE (latitude, longitude)
	)`,
	`CREATE TABLE segmentCoordinate (
		segment INTEGER NOT NULL REFERENCES segment(id),
		"order" INTEGER NOT NULL,
		coordinate INTEGER NOT NULL REFERENCES coordinate(id),
		PRIMARY KEY (segment, "order")
	)`,
	`CREATE INDEX station_on_latitude ON station(latitude)`,
	`CREATE INDEX station_on_longitude ON station(longitude)`,
	`CREATE INDEX coordinate_on_latitude ON coordinate(latitude)`,
	`CREATE INDEX coordinate_on_longitude ON coordinate(longitude)`,
	`CREATE VIRTUAL TABLE station_rtree USING rtree(id, minLat, maxLat, minLon, maxLon)`,
	`CREATE VIRTUAL TABLE coordinate_rtree USING rtree(id, minLat, maxLat, minLon, maxLon)`,
}

// WriteSQLite creates the railway schema in an empty database and fills it with
// the dataset, one track segment per railway
func WriteSQLite(ctx context.Context, db *sql.DB, dataset *Dataset) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, statement := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	for _, datasetRailway := range dataset.Railways {
		if err := writeRailway(ctx, tx, datasetRailway); err != nil {
			return fmt.Errorf("railway %s: %w", datasetRailway.ID, err)
		}
	}

	return tx.Commit()
}

func writeRailway(ctx context.Context, tx *sql.Tx, datasetRailway DatasetRailway) error {
	stationIDs := make([]string, 0, len(datasetRailway.Stations))
	for _, station := range datasetRailway.Stations {
		stationIDs = append(stationIDs, station.ID)
	}

	title, err := json.Marshal(datasetRailway.Title)
	if err != nil {
		return err
	}
	stations, err := json.Marshal(stationIDs)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO railway (id, title, stations, color, ascending, descending) VALUES (?, ?, ?, ?, ?, ?)`,
		datasetRailway.ID, string(title), string(stations), datasetRailway.Color, datasetRailway.Ascending, datasetRailway.Descending)
	if err != nil {
		return err
	}

	for i, station := range datasetRailway.Stations {
		stationTitle, err := json.Marshal(station.Title)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `INSERT INTO station (id, railway, title, latitude, longitude, "order") VALUES (?, ?, ?, ?, ?, ?)`,
			station.ID, datasetRailway.ID, string(stationTitle), station.Latitude, station.Longitude, i+1)
		if err != nil {
			return err
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO station_rtree (id, minLat, maxLat, minLon, maxLon) VALUES (?, ?, ?, ?, ?)`,
			rowID, station.Latitude, station.Latitude, station.Longitude, station.Longitude); err != nil {
			return err
		}
	}

	if len(datasetRailway.Track) == 0 {
		return nil
	}

	result, err := tx.ExecContext(ctx, `INSERT INTO segment (railway, underground, "order") VALUES (?, 0, 1)`, datasetRailway.ID)
	if err != nil {
		return err
	}
	segmentID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for i, point := range datasetRailway.Track {
		var coordinateID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO coordinate (latitude, longitude) VALUES (?, ?)
			ON CONFLICT (latitude, longitude) DO UPDATE SET latitude = excluded.latitude
			RETURNING id`, point.Latitude, point.Longitude).Scan(&coordinateID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO coordinate_rtree (id, minLat, maxLat, minLon, maxLon) VALUES (?, ?, ?, ?, ?)`,
			coordinateID, point.Latitude, point.Latitude, point.Longitude, point.Longitude); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO segmentCoordinate (segment, "order", coordinate) VALUES (?, ?, ?)`,
			segmentID, i+1, coordinateID); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteIndex) Railways(ctx context.Context) ([]railway.RailwayID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM railway ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []railway.RailwayID{}
	for rows.Next() {
		var id railway.RailwayID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
