package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/coon/internal/telemetry"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	m := NewHTTPMetrics(tt.MeterProvider(), nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/components/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Param("id"))
	})
	e.POST("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "nope")
	})

	for _, target := range []string{"/components/a", "/components/b"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fail", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, int64(3), tt.CounterValue(t, "coon.http.requests_total"))
	assert.Equal(t, int64(2), tt.CounterValue(t, "coon.http.requests_total",
		attribute.String("endpoint", "/components/:id")))
	assert.Equal(t, int64(1), tt.CounterValue(t, "coon.http.requests_total",
		attribute.Int("status", http.StatusTeapot)))
	assert.Equal(t, uint64(3), tt.HistogramCount(t, "coon.http.request_duration_seconds"))

	_, ok := tt.Metric(t, "coon.http.response_size_bytes")
	assert.True(t, ok)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/api/v1/components/:id", normalizePath("/api/v1/components/:id"))
}

func TestLimiters(t *testing.T) {
	now := time.Unix(0, 0)
	l := newLimiters(0.001, 0)
	l.now = func() time.Time { return now }
	l.lastReset = now

	assert.True(t, l.get("10.0.0.1").Allow())
	assert.False(t, l.get("10.0.0.1").Allow())
	assert.True(t, l.get("10.0.0.2").Allow(), "buckets are per ip")

	now = now.Add(2 * time.Hour)
	l.get("10.0.0.3")
	assert.Len(t, l.byIP, 1, "buckets reset after an hour")
}
