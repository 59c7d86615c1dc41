package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(checkins.WithLabelValues("attended"))
	CheckIn("attended")
	if got := testutil.ToFloat64(checkins.WithLabelValues("attended")); got != before+1 {
		t.Errorf("checkins = %v, want %v", got, before+1)
	}

	beforeCollisions := testutil.ToFloat64(codeCollisions)
	CodeCollision()
	if got := testutil.ToFloat64(codeCollisions); got != beforeCollisions+1 {
		t.Errorf("collisions = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	ObserveRequest("GET", "/api/events", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rsvp_http_requests_total") {
		t.Error("request counter not exposed")
	}
}
