package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kerbrat/tripcast/core/logger"
	"github.com/kerbrat/tripcast/core/schedule"
)

// Calculator is the slice of the quote engine the handler needs.
type Calculator interface {
	Quote(ctx context.Context, req schedule.QuoteRequest) ([]schedule.QuoteOption, error)
}

// NewHandler returns an HTTP handler evaluating delivery quotes via
// POST /api/quotes.
func NewHandler(calc Calculator, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req schedule.QuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		options, err := calc.Quote(r.Context(), req)
		if errors.Is(err, schedule.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Errorf("quote: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if options == nil {
			options = []schedule.QuoteOption{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(options); err != nil {
			log.Errorf("encode quote response: %v", err)
		}
	})
}
