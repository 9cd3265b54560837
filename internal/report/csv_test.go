package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/okravchenko/parking-api/internal/models"
)

func TestWriteCSV(t *testing.T) {
	entry := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(90 * time.Minute)

	records := []models.ParkingRecord{
		{EntryTime: entry, ExitTime: &exit, Duration: 90, Cost: 200},
		{EntryTime: entry.Add(2 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Entry Time,Exit Time,Duration (min),Cost", lines[0])
	require.Equal(t, "2025-03-01 10:00:00,2025-03-01 11:30:00,90,200", lines[1])
	require.Equal(t, "2025-03-01 12:00:00,,0,0", lines[2])
}

func TestFilename(t *testing.T) {
	id := uuid.New()
	name := Filename(id)
	require.True(t, strings.HasPrefix(name, "parking_report_"+id.String()+"_"))
	require.True(t, strings.HasSuffix(name, ".csv"))
}
