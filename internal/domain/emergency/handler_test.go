package emergency

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func TestHandler_CreateEmergency(t *testing.T) {
	h, e := newTestHandler()
	body := `{"emergencyId":"EMG-1","patientName":"Asha","symptoms":"chest pain","diagnosis":"critical: suspected MI","patientPhone":"9990001111"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/emergency", body), rec)

	if err := h.CreateEmergency(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	data := resp["data"].(map[string]interface{})
	if data["status"] != "PENDING" {
		t.Errorf("expected default status PENDING, got %v", data["status"])
	}
	if data["emergencyId"] != "EMG-1" || data["message"] != "Emergency alert created successfully" {
		t.Errorf("unexpected data: %v", data)
	}
	if data["alertId"] == "" {
		t.Error("expected alertId")
	}
}

func TestHandler_CreateEmergency_BadRequest(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/emergency", `{"emergencyId":"EMG-1"}`), rec)

	err := h.CreateEmergency(c)
	if !httpx.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_ListEmergencies(t *testing.T) {
	h, e := newTestHandler()
	for _, id := range []string{"EMG-1", "EMG-2"} {
		body := `{"emergencyId":"` + id + `","patientName":"Asha","symptoms":"fever","diagnosis":"flu"}`
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/emergency", body), httptest.NewRecorder())
		if err := h.CreateEmergency(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/emergency?emergencyId=EMG-2&limit=5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.ListEmergencies(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := decode(t, rec)
	if resp["count"].(float64) != 1 {
		t.Errorf("expected count 1, got %v", resp["count"])
	}
	items := resp["data"].([]interface{})
	if items[0].(map[string]interface{})["emergencyId"] != "EMG-2" {
		t.Errorf("unexpected item: %v", items[0])
	}
}

func TestHandler_ListEmergencies_Empty(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/emergency?limit=abc", nil), rec)
	if err := h.ListEmergencies(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := decode(t, rec)
	if resp["success"] != true || resp["count"].(float64) != 0 {
		t.Errorf("unexpected response: %v", resp)
	}
	if _, ok := resp["data"].([]interface{}); !ok {
		t.Errorf("expected an empty array, got %v", resp["data"])
	}
}

func TestHandler_UpdateEmergencyStatus_NotFound(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/api/emergency", `{"emergencyId":"EMG-404","status":"RESOLVED"}`), rec)

	err := h.UpdateEmergencyStatus(c)
	if !httpx.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestHandler_UpdateEmergencyStatus(t *testing.T) {
	h, e := newTestHandler()
	create := `{"emergencyId":"EMG-1","patientName":"Asha","symptoms":"fever","diagnosis":"flu"}`
	if err := h.CreateEmergency(e.NewContext(jsonRequest(http.MethodPost, "/", create), httptest.NewRecorder())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/api/emergency", `{"emergencyId":"EMG-1","status":"RESOLVED"}`), rec)
	if err := h.UpdateEmergencyStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := decode(t, rec)["data"].(map[string]interface{})
	if data["status"] != "RESOLVED" {
		t.Errorf("expected RESOLVED, got %v", data["status"])
	}
}

func TestHandler_SendToHospital(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patientId":"p1","patientName":"Asha","patientPhone":"9990001111","symptoms":"fever","diagnosis":"dengue"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/health-worker/send-to-hospital", body), rec)

	if err := h.SendToHospital(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := decode(t, rec)
	if resp["message"] != "Patient details successfully sent to hospital and ambulance" {
		t.Errorf("unexpected message: %v", resp["message"])
	}
	data := resp["data"].(map[string]interface{})
	if data["hospitalPhone"] != "8100752679" || data["status"] != "SENT" {
		t.Errorf("unexpected data: %v", data)
	}
}
