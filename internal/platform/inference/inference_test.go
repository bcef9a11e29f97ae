package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	calls []string
	errs  []error
}

func (f *fakeRecorder) Upstream(service string, err error, _ time.Duration) {
	f.calls = append(f.calls, service)
	f.errs = append(f.errs, err)
}

func TestClassifier_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/predict", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "skin.jpg", hdr.Filename)
		assert.Equal(t, "jpeg-bytes", string(b))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"prediction": "Eczema",
			"confidence": 91.2,
			"storage_info": map[string]interface{}{
				"image_id":        "img-1",
				"lighthouse_hash": "bafkreiabc",
				"gateway_url":     "https://gw/ipfs/bafkreiabc",
			},
		})
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := NewClassifier(srv.URL+"/", time.Second, rec)
	p, err := c.Predict(context.Background(), "skin.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	assert.True(t, p.Success())
	assert.Equal(t, "Eczema", p.Label())
	assert.Equal(t, "img-1", p.StorageInfo()["image_id"])
	assert.Equal(t, []string{"prediction"}, rec.calls)
	assert.NoError(t, rec.errs[0])
}

func TestClassifier_PredictUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"model not loaded"}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := NewClassifier(srv.URL, time.Second, rec)
	_, err := c.Predict(context.Background(), "a.jpg", strings.NewReader("x"))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, "model not loaded", se.Message)
	assert.Error(t, rec.errs[0])
}

func TestPrediction_LabelVariants(t *testing.T) {
	assert.Equal(t, "Acne", Prediction{"predicted_class": "Acne"}.Label())
	assert.Equal(t, "Melanoma", Prediction{"prediction": map[string]interface{}{"class": "Melanoma"}}.Label())
	assert.Equal(t, "", Prediction{}.Label())
	assert.False(t, Prediction{"success": true, "error": "x"}.Success())
}

func TestClassifier_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy","model_loaded":true}`))
	}))
	defer srv.Close()

	body, err := NewClassifier(srv.URL, time.Second, nil).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", body["status"])
}

func TestClassifier_Unreachable(t *testing.T) {
	c := NewClassifier("http://127.0.0.1:1", 200*time.Millisecond, nil)
	_, err := c.Health(context.Background())
	assert.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestSymptomModel_Diagnose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/diagnose", r.URL.Path)
		var in DiagnoseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "fever and cough", in.Symptoms)
		assert.Equal(t, "hi", in.Language)
		assert.False(t, in.ForceEnglish)

		_, _ = w.Write([]byte(`{"diagnosis":"viral fever","is_critical":false,"language":"hi","english_version":null}`))
	}))
	defer srv.Close()

	m := NewSymptomModel(srv.URL, time.Second, nil)
	d, err := m.Diagnose(context.Background(), DiagnoseRequest{Symptoms: "fever and cough", Language: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "viral fever", d.Diagnosis)
	assert.Equal(t, "", d.EnglishVersion)
}

func TestSymptomModel_StatusPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Gemini quota exceeded"}`))
	}))
	defer srv.Close()

	_, err := NewSymptomModel(srv.URL, time.Second, nil).Diagnose(context.Background(), DiagnoseRequest{Symptoms: "x"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, "Gemini quota exceeded", se.Message)
}

func TestSymptomModel_TextToSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/text-to-speech", r.URL.Path)
		var in SpeechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "bn", in.Lang)
		_, _ = w.Write([]byte(`{"audio":"UklGRg==","timestamp":"2024-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	sp, err := NewSymptomModel(srv.URL, time.Second, nil).TextToSpeech(context.Background(), SpeechRequest{Text: "hello", Lang: "bn"})
	require.NoError(t, err)
	assert.Equal(t, "UklGRg==", sp.Audio)
}

func TestStatusError_Message(t *testing.T) {
	assert.Equal(t, "prediction responded with status: 500", (&StatusError{Service: "prediction", Status: 500}).Error())
	assert.Contains(t, (&StatusError{Service: "symptom", Status: 400, Message: "bad"}).Error(), "bad")
}
