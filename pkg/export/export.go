package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/kerbrat/tripcast/core/schedule"
)

// WriteJSON writes the quote options to w in JSON format.
func WriteJSON(w io.Writer, options []schedule.QuoteOption) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(options)
}

// WriteCSV writes the quote options to w in CSV format, one row per vehicle
// with the trip dates joined by spaces.
func WriteCSV(w io.Writer, options []schedule.QuoteOption) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"vehicle_id", "vehicle_name", "trips_required", "start_date", "completion_date", "trip_dates"}); err != nil {
		return err
	}
	for _, o := range options {
		rec := []string{
			o.VehicleID,
			o.VehicleName,
			strconv.Itoa(o.TripsRequired),
			o.StartDate,
			o.CompletionDate,
			strings.Join(o.TripDates, " "),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
