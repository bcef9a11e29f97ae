package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/metrics"
)

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(Metrics(m))
	e.GET("/api/records/verify/:cid", func(c echo.Context) error {
		return httpx.NotFound("Record not found")
	})
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.NoContent(http.StatusNotFound)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records/verify/bafy123", nil))

	srv := httptest.NewRecorder()
	m.Handler().ServeHTTP(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := srv.Body.String()

	if !strings.Contains(body, `route="/api/records/verify/:cid"`) {
		t.Errorf("expected route template label, got:\n%s", body)
	}
	if !strings.Contains(body, `status="404"`) {
		t.Error("expected status label 404")
	}
	if strings.Contains(body, "bafy123") {
		t.Error("path parameter leaked into labels")
	}
}
