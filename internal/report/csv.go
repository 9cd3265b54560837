package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okravchenko/parking-api/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

func Filename(vehicleID uuid.UUID) string {
	return fmt.Sprintf("parking_report_%s_%s.csv", vehicleID, time.Now().Format("2006-01-02_15-04-05"))
}

// WriteCSV renders parking records as the report rows: entry time, exit
// time, duration in minutes, cost. Records still open have an empty exit
// column.
func WriteCSV(w io.Writer, records []models.ParkingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Entry Time", "Exit Time", "Duration (min)", "Cost"}); err != nil {
		return err
	}
	for _, rec := range records {
		exit := ""
		if rec.ExitTime != nil {
			exit = rec.ExitTime.Format(timeLayout)
		}
		row := []string{
			rec.EntryTime.Format(timeLayout),
			exit,
			strconv.Itoa(rec.Duration),
			strconv.Itoa(rec.Cost),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
