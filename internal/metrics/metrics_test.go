package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("medassist")

	c.ObserveProviderAttempt("disease", "wikipedia", "success", 10*time.Millisecond)
	c.ObserveProviderAttempt("disease", "wikipedia", "success", 20*time.Millisecond)
	c.ObserveProviderAttempt("disease", "healthgov", "miss", time.Millisecond)
	c.ObserveTurn("reminder")
	c.ObserveReminderSaved()
	c.ObserveSessionReset("idle")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ProviderAttempts.WithLabelValues("disease", "wikipedia", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ProviderAttempts.WithLabelValues("disease", "healthgov", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Turns.WithLabelValues("reminder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RemindersSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SessionResets.WithLabelValues("idle")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("medassist")
	b := NewCollector("medassist")
	a.ObserveReminderSaved()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RemindersSaved))
}

func TestMiddlewareAndHandler(t *testing.T) {
	c := NewCollector("medassist")
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", c.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/things/{id}", "418")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "medassist_http_requests_total"))
}
