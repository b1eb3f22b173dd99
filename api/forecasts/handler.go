package forecasts

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kerbrat/tripcast/core/logger"
	"github.com/kerbrat/tripcast/core/store"
)

// NewHandler returns an HTTP handler exposing the cached free-slot forecast
// of one vehicle via GET /api/forecasts.
func NewHandler(forecasts store.ForecastStore, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		orgID := r.URL.Query().Get("organization_id")
		vehicleID := r.URL.Query().Get("vehicle_id")
		if orgID == "" || vehicleID == "" {
			http.Error(w, "organization_id and vehicle_id are required", http.StatusBadRequest)
			return
		}
		fc, err := forecasts.Forecast(r.Context(), orgID, vehicleID)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "no forecast for vehicle", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Errorf("load forecast: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(fc); err != nil {
			log.Errorf("encode forecast response: %v", err)
		}
	})
}
