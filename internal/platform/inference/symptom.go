package inference

import (
	"context"
	"time"
)

type DiagnoseRequest struct {
	Symptoms     string `json:"symptoms"`
	Language     string `json:"language"`
	ForceEnglish bool   `json:"force_english"`
}

type Diagnosis struct {
	Diagnosis      string `json:"diagnosis"`
	IsCritical     bool   `json:"is_critical"`
	Language       string `json:"language"`
	EnglishVersion string `json:"english_version"`
	Timestamp      string `json:"timestamp"`
}

type SpeechRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type Speech struct {
	Audio     string `json:"audio"`
	Timestamp string `json:"timestamp"`
}

// SymptomModel calls the symptom diagnosis service.
type SymptomModel struct {
	base
}

func NewSymptomModel(baseURL string, timeout time.Duration, rec Recorder) *SymptomModel {
	return &SymptomModel{base: newBase("symptom", baseURL, timeout, rec)}
}

// Diagnose posts to /api/diagnose.
func (s *SymptomModel) Diagnose(ctx context.Context, in DiagnoseRequest) (*Diagnosis, error) {
	var out Diagnosis
	if err := s.postJSON(ctx, "/api/diagnose", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TextToSpeech posts to /api/text-to-speech.
func (s *SymptomModel) TextToSpeech(ctx context.Context, in SpeechRequest) (*Speech, error) {
	var out Speech
	if err := s.postJSON(ctx, "/api/text-to-speech", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
