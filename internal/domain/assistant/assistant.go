// Package assistant answers voice-assistant queries with an LLM when one is
// configured and falls back to localized keyword navigation.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/platform/auth"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/i18n"
	"github.com/ankandalui/med-ai-sub001/internal/platform/llm"
)

// Actions a Reply may ask the client to take.
const (
	ActionNavigation = "navigation"
	ActionTask       = "task"
	ActionAdvice     = "medical_advice"
	ActionEmergency  = "emergency"
	ActionRespond    = "respond"
	ActionError      = "error"
)

var validActions = map[string]bool{
	ActionNavigation: true, ActionTask: true, ActionAdvice: true,
	ActionEmergency: true, ActionRespond: true,
}

var validUrgency = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

var aiWord = regexp.MustCompile(`\bai\b`)

// Messages localizes message ids. *i18n.Translator satisfies it.
type Messages interface {
	T(lang, id string) string
}

// Query is the body of POST /voice-assistant.
type Query struct {
	Text        string `json:"text"`
	Language    string `json:"language"`
	UserType    string `json:"userType"`
	CurrentPage string `json:"currentPage"`
}

type Reply struct {
	Response      string  `json:"response"`
	Action        string  `json:"action"`
	NavigationURL *string `json:"navigationUrl"`
	TaskType      *string `json:"taskType"`
	UrgencyLevel  string  `json:"urgencyLevel"`
}

type Service struct {
	msgs   Messages
	llm    llm.Client
	logger zerolog.Logger
}

func NewService(msgs Messages, logger zerolog.Logger) *Service {
	return &Service{msgs: msgs, logger: logger}
}

// SetLLM enables model answers. A nil client keeps keyword routing only.
func (s *Service) SetLLM(c llm.Client) { s.llm = c }

// Respond answers q. Model failures and unparseable model output fall back
// to keyword routing.
func (s *Service) Respond(ctx context.Context, q *Query) (*Reply, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, httpx.Validation("Please provide a valid query")
	}
	lang := i18n.Normalize(q.Language)

	if s.llm != nil {
		raw, err := s.llm.Chat(ctx, systemPrompt(q.UserType, q.CurrentPage, lang), text)
		if err != nil {
			s.logger.Warn().Err(err).Msg("assistant model call failed")
		} else if r, ok := parseReply(raw); ok {
			return r, nil
		} else {
			s.logger.Warn().Msg("assistant model reply was not valid JSON")
		}
	}
	return s.route(text, lang, q.UserType), nil
}

func parseReply(raw string) (*Reply, bool) {
	body, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil, false
	}
	var r Reply
	if err := json.Unmarshal([]byte(body), &r); err != nil || strings.TrimSpace(r.Response) == "" {
		return nil, false
	}
	if !validActions[r.Action] {
		r.Action = ActionAdvice
	}
	if !validUrgency[r.UrgencyLevel] {
		r.UrgencyLevel = "low"
	}
	if r.NavigationURL != nil && !strings.HasPrefix(*r.NavigationURL, "/") {
		r.NavigationURL = nil
	}
	return &r, true
}

// route maps keywords in text onto a navigation target.
func (s *Service) route(text, lang, userType string) *Reply {
	lower := strings.ToLower(text)
	hw := userType == auth.UserTypeHealthWorker
	pick := func(hwURL, patientURL string) *string {
		if hw {
			return &hwURL
		}
		return &patientURL
	}
	nav := func(id string, url *string) *Reply {
		return &Reply{Response: s.msgs.T(lang, id), Action: ActionNavigation, NavigationURL: url, UrgencyLevel: "low"}
	}

	switch {
	case containsAny(lower, "dashboard", "डैशबोर्ड", "ড্যাশবোর্ড"):
		return nav("assistant.nav.dashboard", pick("/health-worker", "/patient/dashboard"))
	case containsAny(lower, "monitor", "मॉनिटर", "মনিটর"):
		return nav("assistant.nav.monitoring", pick("/health-worker/monitoring", "/monitoring"))
	case containsAny(lower, "record", "रिकॉर्ड", "রেকর্ড"):
		return nav("assistant.nav.records", pick("/health-worker/records", "/patient/locker"))
	case containsAny(lower, "emergency", "आपात", "জরুরী"):
		url := "/patient/emergency"
		return &Reply{
			Response:      s.msgs.T(lang, "assistant.emergency"),
			Action:        ActionEmergency,
			NavigationURL: &url,
			UrgencyLevel:  "critical",
		}
	case aiWord.MatchString(lower) || containsAny(lower, "diagnosis", "निदान", "নির্ণয়"):
		url := "/ai"
		return nav("assistant.nav.ai", &url)
	default:
		return &Reply{Response: s.msgs.T(lang, "assistant.help"), Action: ActionRespond, UrgencyLevel: "low"}
	}
}

// ErrorReply is the localized reply sent when a query cannot be answered.
func (s *Service) ErrorReply(lang string) *Reply {
	return &Reply{Response: s.msgs.T(i18n.Normalize(lang), "assistant.error"), Action: ActionError, UrgencyLevel: "low"}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var languageNames = map[string]string{"en": "English", "hi": "Hindi", "bn": "Bengali"}

func systemPrompt(userType, currentPage, lang string) string {
	audience, pages := "patients", `- /patient/dashboard (Patient Dashboard)
- /patient/locker (Medical Records)
- /patient/reminders (Medicine Reminders)
- /patient/emergency (Emergency Services)
- /ai (AI Consultation)`
	if userType == auth.UserTypeHealthWorker {
		audience, pages = "health workers", `- /health-worker (Dashboard)
- /health-worker/monitoring (Patient Monitoring)
- /health-worker/patients (Patient Management)
- /health-worker/records (Medical Records)
- /ai (AI Tools)`
	}
	if currentPage == "" {
		currentPage = "unknown"
	}
	if userType == "" {
		userType = auth.UserTypePatient
	}
	return fmt.Sprintf(`You are MedAI Voice Assistant for %s in rural India.

CURRENT CONTEXT:
- User Type: %s
- Current Page: %s
- Language: %s

NAVIGATION PAGES:
%s

Respond in %s using simple words. For medical advice use household terms and mention consulting a doctor.
For emergencies show urgency and guide to emergency services. Keep responses under 100 words.

Reply ONLY with a JSON object of this shape:
{"response": string, "action": "navigation"|"task"|"medical_advice"|"emergency", "navigationUrl": string|null, "taskType": string|null, "urgencyLevel": "low"|"medium"|"high"|"critical"}`,
		audience, userType, currentPage, lang, pages, languageNames[lang])
}
