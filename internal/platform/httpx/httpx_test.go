package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func handle(t *testing.T, err error, expose bool) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/emergency", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(zerolog.Nop(), expose)(err, c)

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rec, body
}

func TestErrorHandler_Validation(t *testing.T) {
	rec, body := handle(t, Validation("Missing emergencyId or status"), false)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
	if body["error"] != "Missing emergencyId or status" {
		t.Errorf("unexpected error: %v", body["error"])
	}
}

func TestErrorHandler_ConflictField(t *testing.T) {
	rec, body := handle(t, Conflict("A user already exists with this email. Please try logging in instead.", "email"), false)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if body["conflictField"] != "email" {
		t.Errorf("expected conflictField email, got %v", body["conflictField"])
	}
}

func TestErrorHandler_WrappedNotFound(t *testing.T) {
	err := fmt.Errorf("update status: %w", NotFound("Emergency alert not found"))
	rec, body := handle(t, err, false)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if body["error"] != "Emergency alert not found" {
		t.Errorf("unexpected error: %v", body["error"])
	}
}

func TestErrorHandler_InternalHidesDetails(t *testing.T) {
	rec, body := handle(t, errors.New("pq: relation does not exist"), false)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body["error"] != "Internal server error" {
		t.Errorf("unexpected error: %v", body["error"])
	}
	if _, ok := body["details"]; ok {
		t.Error("details must be hidden when not exposed")
	}
}

func TestErrorHandler_InternalWithDetails(t *testing.T) {
	_, body := handle(t, Internal("Failed to create emergency alert", errors.New("connection reset")), true)
	if body["error"] != "Failed to create emergency alert" {
		t.Errorf("unexpected error: %v", body["error"])
	}
	if body["details"] != "connection reset" {
		t.Errorf("expected details, got %v", body["details"])
	}
}

func TestErrorHandler_UpstreamStatus(t *testing.T) {
	rec, body := handle(t, Upstream(http.StatusServiceUnavailable, "Flask API is not available", errors.New("dial tcp")), false)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if body["details"] != "dial tcp" {
		t.Errorf("upstream details should always be present, got %v", body["details"])
	}
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	rec, body := handle(t, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token"), false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if body["error"] != "Invalid or expired token" {
		t.Errorf("unexpected error: %v", body["error"])
	}
}

func TestErrorHandler_Extra(t *testing.T) {
	err := Upstream(http.StatusInternalServerError, "Model not available", nil).With("message", "The AI model is not currently loaded")
	_, body := handle(t, err, false)
	if body["message"] != "The AI model is not currently loaded" {
		t.Errorf("expected extra message field, got %v", body["message"])
	}
}

func TestUpstream_ClampsStatus(t *testing.T) {
	if got := Upstream(200, "odd", nil).Status; got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
	if got := Upstream(422, "bad", nil).Status; got != 422 {
		t.Errorf("expected 422, got %d", got)
	}
}

func TestKindOf(t *testing.T) {
	if !IsNotFound(fmt.Errorf("x: %w", NotFound("gone"))) {
		t.Error("expected not found")
	}
	if !IsConflict(Conflict("dup", "phone")) {
		t.Error("expected conflict")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("plain errors classify as internal")
	}
}

func TestOK(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := OK(c, map[string]string{"id": "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true {
		t.Errorf("expected success=true")
	}
	if body["data"].(map[string]interface{})["id"] != "1" {
		t.Errorf("unexpected data: %v", body["data"])
	}
}
