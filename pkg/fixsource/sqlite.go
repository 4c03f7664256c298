package fixsource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/session"
	_ "modernc.org/sqlite"
)

// SessionInfo is one recorded trip of the session database
type SessionInfo struct {
	ID        string
	StartDate time.Time
	EndDate   *time.Time
	Notes     string
	OnTrain   bool
}

// SQLiteSessions reads trips recorded by the logging app
type SQLiteSessions struct {
	db *sql.DB
}

func OpenSQLiteSessions(path string) (*SQLiteSessions, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open session database %s: %w", path, err)
	}

	return NewSQLiteSessions(db), nil
}

func NewSQLiteSessions(db *sql.DB) *SQLiteSessions {
	return &SQLiteSessions{db: db}
}

func (s *SQLiteSessions) Close() error {
	return s.db.Close()
}

// Sessions lists the recorded trips, oldest first
func (s *SQLiteSessions) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, startDate, endDate, notes, isOnTrain FROM sessions ORDER BY startDate, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var startDate string
		var endDate, notes sql.NullString

		if err := rows.Scan(&info.ID, &startDate, &endDate, &notes, &info.OnTrain); err != nil {
			return nil, err
		}

		if info.StartDate, err = parseTimestamp(startDate); err != nil {
			return nil, fmt.Errorf("session %s: %w", info.ID, err)
		}
		if endDate.Valid {
			end, err := parseTimestamp(endDate.String)
			if err != nil {
				return nil, fmt.Errorf("session %s: %w", info.ID, err)
			}
			info.EndDate = &end
		}
		info.Notes = notes.String

		sessions = append(sessions, info)
	}

	return sessions, rows.Err()
}

// Fixes loads the fixes of one session ordered by timestamp
func (s *SQLiteSessions) Fixes(ctx context.Context, sessionID string) ([]location.Fix, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, latitude, longitude, timestamp, speed, course, horizontalAccuracy
		FROM locations
		WHERE sessionID = ?
		ORDER BY timestamp, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []location.Fix
	for rows.Next() {
		var id, timestamp string
		var fix location.Fix
		var speed, course, accuracy sql.NullFloat64

		if err := rows.Scan(&id, &fix.Latitude, &fix.Longitude, &timestamp, &speed, &course, &accuracy); err != nil {
			return nil, err
		}

		if fix.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("location %s: %w", id, err)
		}
		if fix.Timestamp, err = parseTimestamp(timestamp); err != nil {
			return nil, fmt.Errorf("location %s: %w", id, err)
		}
		fix.Speed = sensorValue(speed)
		fix.Course = sensorValue(course)
		fix.HorizontalAccuracy = sensorValue(accuracy)

		fixes = append(fixes, fix)
	}

	return fixes, rows.Err()
}

// Trip loads a session as a replayable trip
func (s *SQLiteSessions) Trip(ctx context.Context, sessionID string) (session.Trip, error) {
	fixes, err := s.Fixes(ctx, sessionID)
	if err != nil {
		return session.Trip{}, err
	}

	return session.Trip{SessionID: sessionID, Fixes: fixes}, nil
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY NOT NULL,
	startDate TEXT NOT NULL,
	endDate TEXT,
	notes TEXT,
	isFromColdLaunch INTEGER NOT NULL DEFAULT 0,
	isOnTrain INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_session_startDate ON sessions(startDate);

CREATE TABLE IF NOT EXISTS locations (
	id TEXT PRIMARY KEY NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	altitude REAL,
	timestamp TEXT NOT NULL,
	horizontalAccuracy REAL,
	verticalAccuracy REAL,
	course REAL,
	speed REAL,
	sessionID TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_location_timestamp ON locations(timestamp);
CREATE INDEX IF NOT EXISTS idx_location_sessionID ON locations(sessionID);
`

// WriteSQLiteSession stores a trip in the session database layout, creating the tables if needed
func WriteSQLiteSession(ctx context.Context, db *sql.DB, info SessionInfo, fixes []location.Fix) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sessionSchema); err != nil {
		return err
	}

	var endDate any
	if info.EndDate != nil {
		endDate = info.EndDate.UTC().Format(timestampLayout)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, startDate, endDate, notes, isOnTrain) VALUES (?, ?, ?, ?, ?)`,
		info.ID, info.StartDate.UTC().Format(timestampLayout), endDate, info.Notes, info.OnTrain,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", info.ID, err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO locations (id, latitude, longitude, timestamp, speed, course, horizontalAccuracy, sessionID)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for _, fix := range fixes {
		_, err := insert.ExecContext(ctx,
			fix.ID.String(), fix.Latitude, fix.Longitude, fix.Timestamp.UTC().Format(timestampLayout),
			fix.Speed.Or(-1), fix.Course.Or(-1), fix.HorizontalAccuracy.Or(-1), info.ID,
		)
		if err != nil {
			return fmt.Errorf("insert location %s: %w", fix.ID, err)
		}
	}

	return tx.Commit()
}

// Dates are stored as UTC text with millisecond precision
const timestampLayout = "2006-01-02 15:04:05.000"

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{timestampLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

func sensorValue(value sql.NullFloat64) location.Optional {
	if !value.Valid {
		return location.None()
	}

	return location.FromSensor(value.Float64)
}
