package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/jobs", nil))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "gearbox_http_requests_total") {
		t.Fatalf("expected body to contain gearbox_http_requests_total, got: %s", body)
	}
}

func TestRoutePatternFallsBackToUnknown(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := routePattern(req); got != "unknown" {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestRoutePatternUsesChiContext(t *testing.T) {
	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = []string{"/jobs/{id}"}
	req := httptest.NewRequest(http.MethodGet, "/jobs/1", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	if got := routePattern(req); got != "/jobs/{id}" {
		t.Fatalf("expected /jobs/{id}, got %s", got)
	}
}
