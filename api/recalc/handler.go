package recalc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kerbrat/tripcast/core/logger"
)

// Recomputer runs a per-vehicle schedule recompute.
type Recomputer interface {
	Recompute(ctx context.Context, orgID, vehicleID string) error
}

type request struct {
	OrgID     string `json:"organization_id"`
	VehicleID string `json:"vehicle_id"`
}

// NewHandler returns an HTTP handler forcing an immediate recompute of one
// vehicle via POST /api/recalc, bypassing the debounce queue.
func NewHandler(scheduler Recomputer, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.OrgID == "" || req.VehicleID == "" {
			http.Error(w, "organization_id and vehicle_id are required", http.StatusBadRequest)
			return
		}
		if err := scheduler.Recompute(r.Context(), req.OrgID, req.VehicleID); err != nil {
			log.Errorf("recompute vehicle %s: %v", req.VehicleID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
