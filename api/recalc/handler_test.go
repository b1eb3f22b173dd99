package recalc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kerbrat/tripcast/infra/logger"
)

type fakeRecomputer struct {
	calls []string
	err   error
}

func (f *fakeRecomputer) Recompute(_ context.Context, orgID, vehicleID string) error {
	f.calls = append(f.calls, orgID+"/"+vehicleID)
	return f.err
}

func TestRecalcHandler(t *testing.T) {
	rec := &fakeRecomputer{}
	h := NewHandler(rec, logger.NopLogger{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/recalc",
		strings.NewReader(`{"organization_id":"org1","vehicle_id":"v1"}`)))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if len(rec.calls) != 1 || rec.calls[0] != "org1/v1" {
		t.Fatalf("unexpected calls %v", rec.calls)
	}
}

func TestRecalcHandlerRejections(t *testing.T) {
	h := NewHandler(&fakeRecomputer{}, logger.NopLogger{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recalc", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/recalc", strings.NewReader(`{}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecalcHandlerFailure(t *testing.T) {
	h := NewHandler(&fakeRecomputer{err: errors.New("boom")}, logger.NopLogger{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/recalc",
		strings.NewReader(`{"organization_id":"org1","vehicle_id":"v1"}`)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
