// Package notification sends SMS and email messages rendered from named
// templates, and keeps a bounded history of recent sends for retry.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// NotificationType represents the channel used to deliver a notification.
type NotificationType string

const (
	TypeEmail NotificationType = "email"
	TypeSMS   NotificationType = "sms"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Template IDs used by the domain packages.
const (
	TemplateOTP             = "otp-code"
	TemplateHospitalAlert   = "hospital-alert"
	TemplateAmbulanceAlert  = "ambulance-alert"
	TemplateHealthReminder  = "health-reminder"
	TemplateCriticalPatient = "critical-patient"
)

var ErrNotFound = errors.New("notification not found")

// Notification represents a single outbound notification.
type Notification struct {
	ID           string            `json:"id"`
	Type         NotificationType  `json:"type"`
	Recipient    string            `json:"recipient"`
	Subject      string            `json:"subject,omitempty"`
	Body         string            `json:"body"`
	TemplateID   string            `json:"template_id,omitempty"`
	TemplateData map[string]string `json:"template_data,omitempty"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	SentAt       *time.Time        `json:"sent_at,omitempty"`
	Error        string            `json:"error,omitempty"`
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Template defines a reusable notification template.
type Template struct {
	ID      string           `json:"id"`
	Subject string           `json:"subject"`
	Body    string           `json:"body"`
	Type    NotificationType `json:"type"`
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:   TemplateOTP,
			Body: "Your MedAI verification code is {{otp}}. It expires in {{minutes}} minutes.",
			Type: TypeSMS,
		},
		{
			ID:   TemplateHospitalAlert,
			Body: "EMERGENCY {{emergency_id}}: {{patient_name}} ({{patient_phone}}) needs admission. Symptoms: {{symptoms}}. Diagnosis: {{diagnosis}}. Location: {{location}}. Health worker: {{health_worker_phone}}",
			Type: TypeSMS,
		},
		{
			ID:   TemplateAmbulanceAlert,
			Body: "AMBULANCE REQUEST {{emergency_id}}: pick up {{patient_name}} ({{patient_phone}}) at {{location}}. Health worker: {{health_worker_phone}}",
			Type: TypeSMS,
		},
		{
			ID:   TemplateHealthReminder,
			Body: "Reminder: {{title}} at {{time}}",
			Type: TypeSMS,
		},
		{
			ID:      TemplateCriticalPatient,
			Subject: "Critical patient: {{patient_name}}",
			Body:    "{{patient_name}} has been flagged critical. Symptoms: {{symptoms}}",
			Type:    TypeEmail,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

func (e *TemplateEngine) lookup(id string) (*Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[id]
	return t, ok
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	t, ok := e.lookup(templateID)
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// LogSender writes messages to the log instead of a gateway. It is the
// default sender until an SMS provider is configured.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) SendSMS(_ context.Context, to, body string) error {
	s.Logger.Info().Str("channel", "sms").Str("to", to).Str("body", body).Msg("notification sent")
	return nil
}

func (s LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.Logger.Info().Str("channel", "email").Str("to", to).Str("subject", subject).Msg("notification sent")
	return nil
}

// SMSCall records a single call to SendSMS.
type SMSCall struct {
	To   string
	Body string
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockSender is a test double for both channels.
type MockSender struct {
	mu         sync.Mutex
	sms        []SMSCall
	email      []EmailCall
	ShouldFail bool
	FailError  string
}

func (m *MockSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sms = append(m.sms, SMSCall{To: to, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

func (m *MockSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.email = append(m.email, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// SMSCalls returns a copy of recorded SMS calls.
func (m *MockSender) SMSCalls() []SMSCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SMSCall, len(m.sms))
	copy(out, m.sms)
	return out
}

// EmailCalls returns a copy of recorded email calls.
func (m *MockSender) EmailCalls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.email))
	copy(out, m.email)
	return out
}

// DefaultHistorySize bounds how many notifications the Manager remembers.
const DefaultHistorySize = 1000

// Manager renders templates, dispatches through the matching channel and
// remembers recent notifications so failed sends can be retried.
type Manager struct {
	email     EmailSender
	sms       SMSSender
	templates *TemplateEngine
	history   *lru.Cache[string, *Notification]
	mu        sync.Mutex
	now       func() time.Time
}

func NewManager(email EmailSender, sms SMSSender, tpl *TemplateEngine) *Manager {
	if tpl == nil {
		tpl = NewTemplateEngine()
	}
	history, _ := lru.New[string, *Notification](DefaultHistorySize)
	return &Manager{
		email:     email,
		sms:       sms,
		templates: tpl,
		history:   history,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Send dispatches n through its channel, assigns an ID and timestamps, and
// records the outcome.
func (m *Manager) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = m.now()
	n.Status = StatusPending

	err := m.deliver(ctx, n)
	m.history.Add(n.ID, n)
	return err
}

func (m *Manager) deliver(ctx context.Context, n *Notification) error {
	var sendErr error
	switch n.Type {
	case TypeEmail:
		if m.email == nil {
			sendErr = errors.New("no email sender configured")
		} else {
			sendErr = m.email.SendEmail(ctx, n.Recipient, n.Subject, n.Body)
		}
	case TypeSMS:
		if m.sms == nil {
			sendErr = errors.New("no sms sender configured")
		} else {
			sendErr = m.sms.SendSMS(ctx, n.Recipient, n.Body)
		}
	default:
		sendErr = fmt.Errorf("unsupported notification type: %s", n.Type)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sendErr != nil {
		n.Status = StatusFailed
		n.Error = sendErr.Error()
		return sendErr
	}
	n.Status = StatusSent
	n.Error = ""
	sentAt := m.now()
	n.SentAt = &sentAt
	return nil
}

// SendFromTemplate renders a template and sends the resulting notification.
func (m *Manager) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Notification, error) {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	tpl, _ := m.templates.lookup(templateID)

	n := &Notification{
		Type:         tpl.Type,
		Recipient:    recipient,
		Subject:      subject,
		Body:         body,
		TemplateID:   templateID,
		TemplateData: data,
	}
	if err := m.Send(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}

// Get retrieves a remembered notification by ID.
func (m *Manager) Get(id string) (*Notification, error) {
	n, ok := m.history.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// Retry re-sends a failed notification.
func (m *Manager) Retry(ctx context.Context, id string) error {
	n, ok := m.history.Get(id)
	if !ok {
		return ErrNotFound
	}
	m.mu.Lock()
	status := n.Status
	m.mu.Unlock()
	if status != StatusFailed {
		return fmt.Errorf("notification %q is not in failed status (current: %s)", id, status)
	}
	return m.deliver(ctx, n)
}

// RetryFailed re-sends every remembered failed notification and reports how
// many went through. The first delivery error is returned.
func (m *Manager) RetryFailed(ctx context.Context) (int, error) {
	var failed []*Notification
	m.mu.Lock()
	for _, id := range m.history.Keys() {
		if n, ok := m.history.Peek(id); ok && n.Status == StatusFailed {
			failed = append(failed, n)
		}
	}
	m.mu.Unlock()

	sent := 0
	var firstErr error
	for _, n := range failed {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := m.deliver(ctx, n); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("retry %s: %w", n.ID, err)
			}
			continue
		}
		sent++
	}
	return sent, firstErr
}

// Stats returns counts of remembered notifications grouped by status.
func (m *Manager) Stats() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make(map[string]int)
	for _, id := range m.history.Keys() {
		if n, ok := m.history.Peek(id); ok {
			stats[n.Status]++
		}
	}
	return stats
}
