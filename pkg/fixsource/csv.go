package fixsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/travigo/railtracker/pkg/location"
)

type csvFix struct {
	ID                 string `csv:"id"`
	Latitude           string `csv:"latitude"`
	Longitude          string `csv:"longitude"`
	Timestamp          string `csv:"timestamp"`
	Speed              string `csv:"speed"`
	Course             string `csv:"course"`
	HorizontalAccuracy string `csv:"horizontal_accuracy"`
}

// ReadCSV reads fixes with a header row, keeping file order. Blank or negative
// speed, course and accuracy values are absent, blank ids get a new one.
func ReadCSV(reader io.Reader) ([]location.Fix, error) {
	var rows []*csvFix
	err := gocsv.UnmarshalCSV(lenientReader(reader), &rows)
	if err != nil {
		return nil, fmt.Errorf("parse fix csv: %w", err)
	}

	fixes := make([]location.Fix, 0, len(rows))
	for i, row := range rows {
		fix, err := row.fix()
		if err != nil {
			return nil, fmt.Errorf("fix csv row %d: %w", i+1, err)
		}
		fixes = append(fixes, fix)
	}

	return fixes, nil
}

// WriteCSV writes fixes in the layout ReadCSV reads
func WriteCSV(writer io.Writer, fixes []location.Fix) error {
	rows := make([]*csvFix, 0, len(fixes))
	for _, fix := range fixes {
		rows = append(rows, &csvFix{
			ID:                 fix.ID.String(),
			Latitude:           strconv.FormatFloat(fix.Latitude, 'f', -1, 64),
			Longitude:          strconv.FormatFloat(fix.Longitude, 'f', -1, 64),
			Timestamp:          fix.Timestamp.UTC().Format(time.RFC3339Nano),
			Speed:              formatOptional(fix.Speed),
			Course:             formatOptional(fix.Course),
			HorizontalAccuracy: formatOptional(fix.HorizontalAccuracy),
		})
	}

	return gocsv.Marshal(rows, writer)
}

// Allow rows with trailing optional columns missing
func lenientReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r
}

func (row *csvFix) fix() (location.Fix, error) {
	var fix location.Fix
	var err error

	if row.ID == "" {
		fix.ID = uuid.New()
	} else if fix.ID, err = uuid.Parse(row.ID); err != nil {
		return fix, fmt.Errorf("id: %w", err)
	}

	if fix.Latitude, err = strconv.ParseFloat(row.Latitude, 64); err != nil {
		return fix, fmt.Errorf("latitude: %w", err)
	}
	if fix.Longitude, err = strconv.ParseFloat(row.Longitude, 64); err != nil {
		return fix, fmt.Errorf("longitude: %w", err)
	}
	if fix.Timestamp, err = time.Parse(time.RFC3339Nano, row.Timestamp); err != nil {
		return fix, fmt.Errorf("timestamp: %w", err)
	}

	if fix.Speed, err = parseOptional(row.Speed); err != nil {
		return fix, fmt.Errorf("speed: %w", err)
	}
	if fix.Course, err = parseOptional(row.Course); err != nil {
		return fix, fmt.Errorf("course: %w", err)
	}
	if fix.HorizontalAccuracy, err = parseOptional(row.HorizontalAccuracy); err != nil {
		return fix, fmt.Errorf("horizontal_accuracy: %w", err)
	}

	return fix, nil
}

func parseOptional(value string) (location.Optional, error) {
	if value == "" {
		return location.None(), nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return location.None(), err
	}

	return location.FromSensor(parsed), nil
}

func formatOptional(value location.Optional) string {
	if v, ok := value.Get(); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
