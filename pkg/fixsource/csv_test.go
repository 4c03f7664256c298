package fixsource

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railtracker/pkg/location"
)

const fixCSV = `id,latitude,longitude,timestamp,speed,course,horizontal_accuracy
6f1c1d0e-5b1e-4b8e-9f3c-1b2a3c4d5e6f,35.6812,139.7671,2025-04-01T08:00:00Z,8.5,12,5
,35.6815,139.7672,2025-04-01T17:00:10+09:00,-1,-1,
`

func TestReadCSV(t *testing.T) {
	fixes, err := ReadCSV(strings.NewReader(fixCSV))
	require.NoError(t, err)
	require.Len(t, fixes, 2)

	assert.Equal(t, "6f1c1d0e-5b1e-4b8e-9f3c-1b2a3c4d5e6f", fixes[0].ID.String())
	assert.Equal(t, 35.6812, fixes[0].Latitude)
	assert.Equal(t, 139.7671, fixes[0].Longitude)
	assert.True(t, recordedAt.Equal(fixes[0].Timestamp))
	assert.Equal(t, location.Some(8.5), fixes[0].Speed)
	assert.Equal(t, location.Some(12), fixes[0].Course)
	assert.Equal(t, location.Some(5), fixes[0].HorizontalAccuracy)

	assert.NotEqual(t, fixes[0].ID, fixes[1].ID)
	assert.True(t, recordedAt.Add(10*time.Second).Equal(fixes[1].Timestamp))
	assert.False(t, fixes[1].Speed.Valid)
	assert.False(t, fixes[1].Course.Valid)
	assert.False(t, fixes[1].HorizontalAccuracy.Valid)
}

func TestReadCSVInvalidRow(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("id,latitude,longitude,timestamp\n,north,139.7,2025-04-01T08:00:00Z\n"))
	assert.ErrorContains(t, err, "row 1: latitude")

	_, err = ReadCSV(strings.NewReader("id,latitude,longitude,timestamp\n,35.6,139.7,08:00\n"))
	assert.ErrorContains(t, err, "timestamp")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	fixes := recordedFixes()

	var buffer bytes.Buffer
	require.NoError(t, WriteCSV(&buffer, fixes))

	read, err := ReadCSV(&buffer)
	require.NoError(t, err)
	require.Len(t, read, len(fixes))

	for i := range fixes {
		assert.Equal(t, fixes[i].ID, read[i].ID)
		assert.True(t, fixes[i].Timestamp.Equal(read[i].Timestamp))
		assert.Equal(t, fixes[i].Speed, read[i].Speed)
		assert.Equal(t, fixes[i].Course, read[i].Course)
	}
}
