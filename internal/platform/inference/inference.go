// Package inference talks to the external model services: the skin image
// classifier and the symptom/diagnosis model (which also serves
// text-to-speech).
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Recorder receives per-call outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	Upstream(service string, err error, d time.Duration)
}

// StatusError is returned when a model service answers with a non-2xx status.
// Message is the service's own error text when it sent one.
type StatusError struct {
	Service string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s responded with status: %d", e.Service, e.Status)
}

// base carries what both clients share.
type base struct {
	service string
	baseURL string
	http    *http.Client
	rec     Recorder
}

func newBase(service, baseURL string, timeout time.Duration, rec Recorder) base {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return base{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		rec:     rec,
	}
}

func (b base) observe(start time.Time, err error) {
	if b.rec != nil {
		b.rec.Upstream(b.service, err, time.Since(start))
	}
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses become
// a *StatusError carrying the "error" or "message" field of the body.
func (b base) do(req *http.Request, out interface{}) (err error) {
	start := time.Now()
	defer func() { b.observe(start, err) }()

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", b.service, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", b.service, err)
	}

	if resp.StatusCode/100 != 2 {
		return &StatusError{Service: b.service, Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", b.service, err)
	}
	return nil
}

func (b base) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, out)
}

func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
