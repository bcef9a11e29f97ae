package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/platform/auth"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

func newTestEcho(svc *Service) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler(zerolog.Nop(), false)
	NewHandler(svc).RegisterRoutes(e.Group("/api"), nil)
	return e
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func TestHandler_ListDocuments(t *testing.T) {
	svc := newTestService()
	pid := uuid.New().String()
	if _, err := svc.Save(context.Background(), validSave(pid), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := newTestEcho(svc)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patient/documents?patientId="+pid+"&type=all", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	data := resp["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("expected 1 document, got %d", len(data))
	}
	doc := data[0].(map[string]interface{})
	if doc["size"] != "2.00 MB" {
		t.Errorf("unexpected size %v", doc["size"])
	}
	if doc["encrypted"] != true || doc["ipfsHash"] != "bafkreiabc" || doc["lighthouse_cid"] != "bafkreiabc" {
		t.Errorf("unexpected view %v", doc)
	}
}

func TestHandler_SaveMedicalRecord_WithToken(t *testing.T) {
	svc := newTestService()
	pid := uuid.New()
	svc.SetPatientResolver(&mockResolver{byUser: map[string]uuid.UUID{"user-7": pid}})
	tokens := auth.NewTokenIssuer([]byte("test-secret"), 0)
	token, err := tokens.Issue("user-7", "p@example.com", auth.UserTypePatient)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler(zerolog.Nop(), false)
	NewHandler(svc).RegisterRoutes(e.Group("/api", auth.OptionalJWT(tokens)), nil)

	body := `{"cid":"bafkreixyz","title":"Prescription","type":"prescription","fileName":"rx.pdf","fileSize":1024,"fileType":"application/pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patient/save-medical-record", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	if resp["recordId"] == nil {
		t.Error("expected recordId")
	}
}

func TestHandler_SaveMedicalRecord_NoPatient(t *testing.T) {
	e := newTestEcho(newTestService())
	body := `{"cid":"bafkreixyz","title":"Prescription","type":"prescription","fileName":"rx.pdf","fileSize":1024,"fileType":"application/pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/api/patient/save-medical-record", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_Upload(t *testing.T) {
	e := newTestEcho(newTestService())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="notes.txt"`)
	hdr.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("follow-up in two weeks"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/patient/upload-to-lighthouse", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	if resp["name"] != "notes.txt" {
		t.Errorf("unexpected name %v", resp["name"])
	}
	if !strings.HasPrefix(resp["ipfsUrl"].(string), testGateway+"/") {
		t.Errorf("unexpected url %v", resp["ipfsUrl"])
	}
}

func TestHandler_Upload_NoFile(t *testing.T) {
	e := newTestEcho(newTestService())
	req := httptest.NewRequest(http.MethodPost, "/api/patient/upload-to-lighthouse", strings.NewReader(""))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_DeleteDocument_NotFound(t *testing.T) {
	e := newTestEcho(newTestService())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/patient/documents?id="+uuid.New().String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
