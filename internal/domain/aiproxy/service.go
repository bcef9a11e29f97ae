// Package aiproxy fronts the external inference services: the skin image
// classifier, the symptom model (which also serves text-to-speech) and the
// LLM used for the image pre-check.
package aiproxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/platform/cache"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/inference"
	"github.com/ankandalui/med-ai-sub001/internal/platform/llm"
)

const isoMillis = "2006-01-02T15:04:05.000Z"

const imageCheckPrompt = "Does this image contain a group of people or is it a close-up of a single person's skin? " +
	"Reply ONLY with one of these: 'group', 'single skin', or 'other'. " +
	"If group or other, do not allow for skin disease prediction."

var severityPattern = regexp.MustCompile(`\[SEVERITY LEVEL\]\s*([^\[\n]+)`)

type Classifier interface {
	Predict(ctx context.Context, filename string, image io.Reader) (inference.Prediction, error)
	Health(ctx context.Context) (map[string]interface{}, error)
}

type SymptomModel interface {
	Diagnose(ctx context.Context, in inference.DiagnoseRequest) (*inference.Diagnosis, error)
	TextToSpeech(ctx context.Context, in inference.SpeechRequest) (*inference.Speech, error)
}

// CacheRecorder receives diagnosis cache hits and misses. *metrics.Metrics
// satisfies it.
type CacheRecorder interface {
	CacheLookup(cache string, hit bool)
}

type Service struct {
	classifier Classifier
	symptoms   SymptomModel
	llm        llm.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	rec        CacheRecorder
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(classifier Classifier, symptoms SymptomModel, logger zerolog.Logger) *Service {
	return &Service{classifier: classifier, symptoms: symptoms, logger: logger, now: time.Now}
}

// SetCache enables caching of symptom diagnoses for ttl.
func (s *Service) SetCache(c cache.Cache, ttl time.Duration, rec CacheRecorder) {
	s.cache, s.cacheTTL, s.rec = c, ttl, rec
}

// SetLLM enables the image pre-check. A nil client leaves it disabled.
func (s *Service) SetLLM(c llm.Client) { s.llm = c }

func (s *Service) timestamp() string { return s.now().UTC().Format(isoMillis) }

// -- Image Classifier --

// Predict forwards image to the classifier and enriches a successful
// prediction with treatment guidance and storage links.
func (s *Service) Predict(ctx context.Context, filename string, image io.Reader) (map[string]interface{}, error) {
	pred, err := s.classifier.Predict(ctx, filename, image)
	if err != nil {
		return nil, httpx.Upstream(http.StatusInternalServerError, "Failed to connect to prediction service", err)
	}
	if !pred.Success() {
		msg := pred.String("error")
		if msg == "" {
			msg = "Model not available"
		}
		detail := pred.String("message")
		if detail == "" {
			detail = "The AI model is not currently loaded"
		}
		return nil, (&httpx.Error{Kind: httpx.KindUpstream, Status: http.StatusInternalServerError, Message: msg}).
			With("message", detail)
	}

	out := make(map[string]interface{}, len(pred)+5)
	for k, v := range pred {
		out[k] = v
	}
	out["prediction_id"] = fmt.Sprintf("prediction_%d", s.now().UnixMilli())
	out["disclaimer"] = predictionDisclaimer
	out["treatment_info"] = TreatmentFor(pred.Label())
	out["database_id"] = nil
	out["ipfs"] = nil
	if info := pred.StorageInfo(); info != nil {
		if id, ok := info["image_id"]; ok {
			out["database_id"] = id
		}
		out["ipfs"] = map[string]interface{}{
			"hash":           info["lighthouse_hash"],
			"url":            info["gateway_url"],
			"lighthouse_url": info["gateway_url"],
		}
	}
	s.logger.Info().Str("label", pred.Label()).Msg("image prediction served")
	return out, nil
}

// ClassifierHealth proxies the classifier's health endpoint.
func (s *Service) ClassifierHealth(ctx context.Context) (map[string]interface{}, error) {
	out, err := s.classifier.Health(ctx)
	if err != nil {
		return nil, httpx.Upstream(http.StatusServiceUnavailable, "Prediction service is not available", err)
	}
	return out, nil
}

// -- Symptom Model --

// SymptomPredict asks the symptom model for a diagnosis. Results are cached
// per language and symptom text.
func (s *Service) SymptomPredict(ctx context.Context, in *SymptomInput) (*SymptomResult, error) {
	symptoms := strings.TrimSpace(in.Symptoms)
	if symptoms == "" {
		return nil, httpx.Validation("Please enter symptoms")
	}
	lang := in.Language
	if lang == "" {
		lang = "en"
	}

	key := diagnosisKey(lang, symptoms)
	if s.cache != nil {
		var cached SymptomResult
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("diagnosis cache read failed")
		}
		s.observe(hit)
		if hit {
			return &cached, nil
		}
	}

	d, err := s.symptoms.Diagnose(ctx, inference.DiagnoseRequest{Symptoms: symptoms, Language: lang})
	if err != nil {
		return nil, symptomError(err, "Failed to analyze symptoms")
	}
	out := &SymptomResult{
		Success:        true,
		Diagnosis:      d.Diagnosis,
		IsCritical:     d.IsCritical,
		Language:       d.Language,
		EnglishVersion: d.EnglishVersion,
		Timestamp:      d.Timestamp,
		Disclaimer:     symptomDisclaimer,
	}
	if out.Timestamp == "" {
		out.Timestamp = s.timestamp()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("diagnosis cache write failed")
		}
	}
	return out, nil
}

func (s *Service) observe(hit bool) {
	if s.rec != nil {
		s.rec.CacheLookup("diagnosis", hit)
	}
}

func diagnosisKey(lang, symptoms string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(symptoms)))
	return "diagnosis:" + lang + ":" + hex.EncodeToString(sum[:16])
}

// symptomError keeps the model's status code and message; transport failures
// become 500.
func symptomError(err error, fallback string) error {
	var se *inference.StatusError
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = fallback
		}
		return httpx.Upstream(se.Status, msg, err)
	}
	return httpx.Upstream(http.StatusInternalServerError,
		"Failed to connect to symptom analysis service. Please ensure the symptom API server is running.", err)
}

// VerifyDisease asks the symptom model to review a classifier prediction and
// extracts whether treatment is needed and how severe the condition is.
func (s *Service) VerifyDisease(ctx context.Context, in *VerifyInput) (*VerifyResult, error) {
	if in.Prediction == "" {
		return nil, httpx.Validation("Disease prediction is required")
	}
	d, err := s.symptoms.Diagnose(ctx, inference.DiagnoseRequest{
		Symptoms:     verificationPrompt(in.Prediction, in.Confidence),
		Language:     "en",
		ForceEnglish: true,
	})
	if err != nil {
		return nil, symptomError(err, "Failed to verify disease prediction")
	}

	return &VerifyResult{
		Success:            true,
		Verified:           true,
		OriginalPrediction: in.Prediction,
		OriginalConfidence: in.Confidence,
		Analysis:           d.Diagnosis,
		RequiresTreatment:  RequiresTreatment(d.Diagnosis),
		Severity:           Severity(d.Diagnosis),
		Timestamp:          s.timestamp(),
		Disclaimer:         verifyDisclaimer,
	}, nil
}

// RequiresTreatment reports whether the review flags the condition as urgent
// or answers YES under MEDICAL TREATMENT REQUIRED.
func RequiresTreatment(reply string) bool {
	upper := strings.ToUpper(reply)
	return strings.Contains(upper, "[URGENT]") ||
		(strings.Contains(upper, "YES") && strings.Contains(upper, "MEDICAL TREATMENT REQUIRED"))
}

// Severity returns the first word group of the [SEVERITY LEVEL] section, or
// "Medium".
func Severity(reply string) string {
	m := severityPattern.FindStringSubmatch(reply)
	if m == nil {
		return "Medium"
	}
	level := strings.TrimSpace(strings.SplitN(m[1], "-", 2)[0])
	if level == "" {
		return "Medium"
	}
	return level
}

func verificationPrompt(prediction string, confidence *float64) string {
	conf := "Not provided"
	if confidence != nil {
		conf = fmt.Sprintf("%.1f%%", *confidence)
	}
	return fmt.Sprintf(`Act as a medical expert reviewing an AI skin disease prediction.

AI Prediction: %s
Confidence Level: %s

Please provide a comprehensive medical assessment in EXACTLY this format:

[CONDITION VERIFICATION]
Assessment of the AI prediction accuracy and additional considerations

[SEVERITY LEVEL]
Low/Medium/High - with medical justification

[MEDICAL TREATMENT REQUIRED]
YES/NO - with clear reasoning

[PRIMARY CARE STEPS]
1. Immediate care recommendation
2. Home care instructions
3. When to seek professional help

[TREATMENT RECOMMENDATIONS]
- Specific treatment options
- Medications (if applicable)
- Lifestyle modifications

[WHEN TO SEE A DOCTOR]
- Warning signs requiring immediate medical attention
- Follow-up recommendations

[HEALTH WORKER GUIDANCE]
Specific guidance for health workers on patient management

If this condition requires immediate medical attention, start with:
[URGENT] This condition requires immediate medical evaluation.

Keep the response professional and medically accurate.`, prediction, conf)
}

// TextToSpeech forwards text to the speech endpoint of the symptom service.
func (s *Service) TextToSpeech(ctx context.Context, in *SpeechInput) (*SpeechResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, httpx.Validation("No text provided")
	}
	lang := in.Lang
	if lang == "" {
		lang = "en"
	}
	sp, err := s.symptoms.TextToSpeech(ctx, inference.SpeechRequest{Text: text, Lang: lang})
	if err != nil {
		return nil, symptomError(err, "Failed to generate audio")
	}
	out := &SpeechResult{Success: true, Audio: sp.Audio, Timestamp: sp.Timestamp}
	if out.Timestamp == "" {
		out.Timestamp = s.timestamp()
	}
	return out, nil
}

// -- Image Pre-check --

// CheckImage asks the vision model whether image shows a group of people
// rather than a single patch of skin.
func (s *Service) CheckImage(ctx context.Context, image []byte, mimeType string) (*ImageCheck, error) {
	if s.llm == nil {
		return nil, httpx.Upstream(http.StatusServiceUnavailable, "Image check is not configured", nil)
	}
	reply, err := s.llm.Vision(ctx, imageCheckPrompt, image, mimeType)
	if err != nil {
		return nil, httpx.Upstream(http.StatusBadGateway, "Image check failed", err)
	}
	return ClassifyImageReply(reply), nil
}

// ClassifyImageReply maps the vision model's answer onto an ImageCheck.
func ClassifyImageReply(reply string) *ImageCheck {
	text := strings.ToLower(reply)
	switch {
	case strings.Contains(text, "group"):
		return &ImageCheck{Success: true, ContainsGroup: true}
	case strings.Contains(text, "single skin"):
		return &ImageCheck{Success: true, ContainsGroup: false}
	default:
		return &ImageCheck{Success: true, ContainsGroup: true, Error: "Image is not a valid skin image."}
	}
}
