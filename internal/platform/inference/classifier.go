package inference

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Prediction is the classifier's response. The raw fields are kept so the
// proxy can pass them through untouched.
type Prediction map[string]interface{}

// Success reports the classifier's own success flag.
func (p Prediction) Success() bool {
	ok, _ := p["success"].(bool)
	return ok && p.String("error") == ""
}

// String returns a top-level string field, or "".
func (p Prediction) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Label returns the predicted class name. The classifier reports it as
// "prediction", "predicted_class" or "disease" depending on the model build.
func (p Prediction) Label() string {
	for _, k := range []string{"prediction", "predicted_class", "disease"} {
		if s := p.String(k); s != "" {
			return s
		}
		if m, ok := p[k].(map[string]interface{}); ok {
			if s, ok := m["class"].(string); ok {
				return s
			}
		}
	}
	return ""
}

// StorageInfo returns the classifier's storage_info object, if any.
func (p Prediction) StorageInfo() map[string]interface{} {
	m, _ := p["storage_info"].(map[string]interface{})
	return m
}

// Classifier calls the skin image classification service.
type Classifier struct {
	base
}

func NewClassifier(baseURL string, timeout time.Duration, rec Recorder) *Classifier {
	return &Classifier{base: newBase("prediction", baseURL, timeout, rec)}
}

// Predict uploads image as the multipart field "file" to /api/predict.
func (c *Classifier) Predict(ctx context.Context, filename string, image io.Reader) (Prediction, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/predict", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out Prediction
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health returns the classifier's /api/health body.
func (c *Classifier) Health(ctx context.Context) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
