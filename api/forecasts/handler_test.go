package forecasts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/infra/logger"
	"github.com/kerbrat/tripcast/infra/memstore"
)

func TestForecastHandler(t *testing.T) {
	st := memstore.New()
	_ = st.PutForecast(context.Background(), "org1", model.Forecast{
		VehicleID: "v1",
		FreeSlots: map[string]int{"2025-03-01": 4},
	})
	h := NewHandler(st, logger.NopLogger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/forecasts?organization_id=org1&vehicle_id=v1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var fc model.Forecast
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if fc.VehicleID != "v1" || fc.FreeSlots["2025-03-01"] != 4 {
		t.Fatalf("unexpected forecast %+v", fc)
	}
}

func TestForecastHandlerRejections(t *testing.T) {
	h := NewHandler(memstore.New(), logger.NopLogger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/forecasts", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/forecasts?organization_id=org1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/forecasts?organization_id=org1&vehicle_id=absent", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
