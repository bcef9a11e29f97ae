package aiproxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/platform/cache"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/inference"
)

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Chat(context.Context, string, string) (string, error) { return f.reply, f.err }

func (f *fakeLLM) Vision(context.Context, string, []byte, string) (string, error) {
	return f.reply, f.err
}

type countingRecorder struct{ hits, misses int }

func (r *countingRecorder) CacheLookup(_ string, hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestService(classifierURL, symptomURL string) *Service {
	svc := NewService(
		inference.NewClassifier(classifierURL, time.Second, nil),
		inference.NewSymptomModel(symptomURL, time.Second, nil),
		zerolog.Nop(),
	)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestPredict_Enriched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"prediction": "Melanoma",
			"confidence": 88.5,
			"storage_info": map[string]interface{}{
				"image_id":        "img-9",
				"lighthouse_hash": "bafkreiimg",
				"gateway_url":     "https://gw/ipfs/bafkreiimg",
			},
		})
	}))
	defer srv.Close()

	out, err := newTestService(srv.URL, "").Predict(context.Background(), "lesion.jpg", strings.NewReader("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["prediction"] != "Melanoma" || out["confidence"] != 88.5 {
		t.Errorf("expected classifier fields passed through, got %v", out)
	}
	if out["prediction_id"] != "prediction_1719835200000" {
		t.Errorf("unexpected prediction id %v", out["prediction_id"])
	}
	if out["database_id"] != "img-9" {
		t.Errorf("unexpected database id %v", out["database_id"])
	}
	ipfs := out["ipfs"].(map[string]interface{})
	if ipfs["hash"] != "bafkreiimg" || ipfs["lighthouse_url"] != "https://gw/ipfs/bafkreiimg" {
		t.Errorf("unexpected ipfs block %v", ipfs)
	}
	info := out["treatment_info"].(TreatmentInfo)
	if info.Urgency != UrgencyHigh {
		t.Errorf("expected high urgency for melanoma, got %s", info.Urgency)
	}
}

func TestPredict_ModelNotLoaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false})
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL, "").Predict(context.Background(), "a.jpg", strings.NewReader("x"))
	var he *httpx.Error
	if !errors.As(err, &he) {
		t.Fatalf("expected *httpx.Error, got %v", err)
	}
	if he.Status != http.StatusInternalServerError || he.Message != "Model not available" {
		t.Errorf("unexpected error %d %q", he.Status, he.Message)
	}
	if he.Extra["message"] != "The AI model is not currently loaded" {
		t.Errorf("unexpected extra %v", he.Extra)
	}
}

func TestPredict_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"message": "model crashed"})
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL, "").Predict(context.Background(), "a.jpg", strings.NewReader("x"))
	var he *httpx.Error
	if !errors.As(err, &he) || he.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if !strings.Contains(err.Error(), "model crashed") {
		t.Errorf("expected upstream message in cause, got %q", err.Error())
	}
}

func TestClassifierHealth_Unavailable(t *testing.T) {
	svc := newTestService("http://127.0.0.1:1", "")
	_, err := svc.ClassifierHealth(context.Background())
	var he *httpx.Error
	if !errors.As(err, &he) || he.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

func TestSymptomPredict_Cached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req inference.DiagnoseRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Symptoms != "fever and cough" || req.Language != "hi" || req.ForceEnglish {
			t.Errorf("unexpected request %+v", req)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"diagnosis":       "Viral fever",
			"is_critical":     false,
			"language":        "hi",
			"english_version": "Viral fever",
		})
	}))
	defer srv.Close()

	svc := newTestService("", srv.URL)
	rec := &countingRecorder{}
	svc.SetCache(cache.NewLocal(cache.DefaultLocalConfig()), time.Minute, rec)

	in := &SymptomInput{Symptoms: "  fever and cough ", Language: "hi"}
	first, err := svc.SymptomPredict(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Diagnosis != "Viral fever" || first.Timestamp != "2024-07-01T12:00:00.000Z" || first.Disclaimer == "" {
		t.Errorf("unexpected result %+v", first)
	}

	second, err := svc.SymptomPredict(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Diagnosis != first.Diagnosis {
		t.Error("expected cached diagnosis")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected one upstream call, got %d", calls)
	}
	if rec.hits != 1 || rec.misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", rec.hits, rec.misses)
	}
}

func TestSymptomPredict_Validation(t *testing.T) {
	_, err := newTestService("", "").SymptomPredict(context.Background(), &SymptomInput{Symptoms: "   "})
	if !httpx.IsValidation(err) || err.Error() != "Please enter symptoms" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSymptomPredict_StatusPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{"error": "quota exceeded"})
	}))
	defer srv.Close()

	_, err := newTestService("", srv.URL).SymptomPredict(context.Background(), &SymptomInput{Symptoms: "headache"})
	var he *httpx.Error
	if !errors.As(err, &he) {
		t.Fatalf("expected *httpx.Error, got %v", err)
	}
	if he.Status != http.StatusTooManyRequests || he.Message != "quota exceeded" {
		t.Errorf("unexpected error %d %q", he.Status, he.Message)
	}
}

func TestVerifyDisease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req inference.DiagnoseRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.ForceEnglish || !strings.Contains(req.Symptoms, "AI Prediction: Eczema") ||
			!strings.Contains(req.Symptoms, "Confidence Level: 72.5%") {
			t.Errorf("unexpected prompt %+v", req)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"diagnosis": "[CONDITION VERIFICATION]\nLikely eczema\n\n[SEVERITY LEVEL]\nLow - mild irritation\n\n[MEDICAL TREATMENT REQUIRED]\nNO - home care suffices",
		})
	}))
	defer srv.Close()

	conf := 72.5
	out, err := newTestService("", srv.URL).VerifyDisease(context.Background(), &VerifyInput{Prediction: "Eczema", Confidence: &conf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Severity != "Low" || out.RequiresTreatment {
		t.Errorf("unexpected verification %+v", out)
	}
	if !out.Verified || out.OriginalPrediction != "Eczema" {
		t.Errorf("unexpected header %+v", out)
	}
}

func TestRequiresTreatment(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"urgent marker", "[URGENT] This condition requires immediate medical evaluation.", true},
		{"yes under heading", "[MEDICAL TREATMENT REQUIRED]\nYes - antibiotics", true},
		{"no", "[MEDICAL TREATMENT REQUIRED]\nNO - rest", false},
		{"yes without heading", "yes it is fine", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiresTreatment(tt.reply); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"[SEVERITY LEVEL]\nHigh - spreading infection", "High"},
		{"[SEVERITY LEVEL] Medium", "Medium"},
		{"no severity section", "Medium"},
		{"[SEVERITY LEVEL]\n - unclear", "Medium"},
	}
	for _, tt := range tests {
		if got := Severity(tt.reply); got != tt.want {
			t.Errorf("Severity(%q) = %q, want %q", tt.reply, got, tt.want)
		}
	}
}

func TestTextToSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/text-to-speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req inference.SpeechRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Lang != "en" || req.Text != "hello" {
			t.Errorf("unexpected request %+v", req)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"audio": "UklGRg=="})
	}))
	defer srv.Close()

	svc := newTestService("", srv.URL)
	out, err := svc.TextToSpeech(context.Background(), &SpeechInput{Text: " hello "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Audio != "UklGRg==" || out.Timestamp == "" {
		t.Errorf("unexpected result %+v", out)
	}

	if _, err := svc.TextToSpeech(context.Background(), &SpeechInput{}); !httpx.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestTreatmentFor(t *testing.T) {
	if TreatmentFor("  ECZEMA ").Urgency != UrgencyMedium {
		t.Error("expected case-insensitive lookup")
	}
	generic := TreatmentFor("unheard-of rash")
	if generic.Description != genericTreatment.Description || len(generic.NextSteps) == 0 {
		t.Error("expected generic guidance for unknown label")
	}
}

func TestCheckImage(t *testing.T) {
	svc := newTestService("", "")
	if _, err := svc.CheckImage(context.Background(), []byte("x"), "image/png"); err == nil {
		t.Fatal("expected error without an LLM")
	}

	tests := []struct {
		reply     string
		wantGroup bool
		wantErr   bool
	}{
		{"group", true, false},
		{"Single skin", false, false},
		{"other", true, true},
	}
	for _, tt := range tests {
		svc.SetLLM(&fakeLLM{reply: tt.reply})
		out, err := svc.CheckImage(context.Background(), []byte("x"), "image/png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.ContainsGroup != tt.wantGroup || (out.Error != "") != tt.wantErr {
			t.Errorf("reply %q: unexpected result %+v", tt.reply, out)
		}
	}

	svc.SetLLM(&fakeLLM{err: errors.New("rate limited")})
	if _, err := svc.CheckImage(context.Background(), []byte("x"), "image/png"); httpx.KindOf(err) != httpx.KindUpstream {
		t.Errorf("expected upstream error, got %v", err)
	}
}
