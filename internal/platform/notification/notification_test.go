package notification

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		ID:      "test-tpl",
		Subject: "Hello {{name}}",
		Body:    "Dear {{name}}, your code is {{code}}.",
		Type:    TypeEmail,
	})

	subject, body, err := eng.Render("test-tpl", map[string]string{
		"name": "Asha",
		"code": "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hello Asha" {
		t.Errorf("subject = %q, want %q", subject, "Hello Asha")
	}
	if body != "Dear Asha, your code is 1234." {
		t.Errorf("body = %q, want %q", body, "Dear Asha, your code is 1234.")
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	eng := NewTemplateEngine()
	if _, _, err := eng.Render("nonexistent", nil); err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
}

func TestTemplateEngine_BuiltInTemplates(t *testing.T) {
	eng := NewTemplateEngine()
	for _, id := range []string{TemplateOTP, TemplateHospitalAlert, TemplateAmbulanceAlert, TemplateHealthReminder, TemplateCriticalPatient} {
		if _, _, err := eng.Render(id, nil); err != nil {
			t.Errorf("built-in template %q not found: %v", id, err)
		}
	}
}

func TestTemplateEngine_ReminderText(t *testing.T) {
	eng := NewTemplateEngine()
	_, body, err := eng.Render(TemplateHealthReminder, map[string]string{"title": "Take insulin", "time": "08:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "Reminder: Take insulin at 08:00" {
		t.Errorf("body = %q", body)
	}
}

func TestTemplateEngine_UnknownKeysLeftAsIs(t *testing.T) {
	eng := NewTemplateEngine()
	_, body, _ := eng.Render(TemplateHealthReminder, map[string]string{"title": "Walk"})
	if !strings.Contains(body, "{{time}}") {
		t.Errorf("expected unreplaced placeholder, got %q", body)
	}
}

func TestManager_SendSMS(t *testing.T) {
	sender := &MockSender{}
	mgr := NewManager(sender, sender, nil)

	n, err := mgr.SendFromTemplate(context.Background(), TemplateOTP, map[string]string{"otp": "482913", "minutes": "10"}, "9876543210")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Status != StatusSent || n.SentAt == nil {
		t.Errorf("expected sent status with timestamp, got %s", n.Status)
	}

	calls := sender.SMSCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 sms, got %d", len(calls))
	}
	if calls[0].To != "9876543210" || !strings.Contains(calls[0].Body, "482913") {
		t.Errorf("unexpected sms %+v", calls[0])
	}
	if len(sender.EmailCalls()) != 0 {
		t.Error("expected no email")
	}
}

func TestManager_SendEmail(t *testing.T) {
	sender := &MockSender{}
	mgr := NewManager(sender, sender, nil)

	_, err := mgr.SendFromTemplate(context.Background(), TemplateCriticalPatient, map[string]string{"patient_name": "Ravi", "symptoms": "chest pain"}, "hw@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := sender.EmailCalls()
	if len(calls) != 1 || calls[0].Subject != "Critical patient: Ravi" {
		t.Errorf("unexpected email calls %+v", calls)
	}
}

func TestManager_FailureRecordedAndRetried(t *testing.T) {
	sender := &MockSender{ShouldFail: true, FailError: "gateway down"}
	mgr := NewManager(sender, sender, nil)

	n, err := mgr.SendFromTemplate(context.Background(), TemplateHealthReminder, map[string]string{"title": "x", "time": "y"}, "1")
	if err == nil {
		t.Fatal("expected error")
	}
	if n.Status != StatusFailed || n.Error != "gateway down" {
		t.Errorf("expected failed status, got %s %q", n.Status, n.Error)
	}

	sender.ShouldFail = false
	if err := mgr.Retry(context.Background(), n.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	got, _ := mgr.Get(n.ID)
	if got.Status != StatusSent || got.Error != "" {
		t.Errorf("expected sent after retry, got %s %q", got.Status, got.Error)
	}

	if err := mgr.Retry(context.Background(), n.ID); err == nil {
		t.Error("expected error retrying a sent notification")
	}
}

func TestManager_RetryUnknown(t *testing.T) {
	mgr := NewManager(nil, nil, nil)
	if err := mgr.Retry(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_RetryFailed(t *testing.T) {
	sender := &MockSender{ShouldFail: true, FailError: "gateway down"}
	mgr := NewManager(sender, sender, nil)
	ctx := context.Background()

	for _, to := range []string{"1", "2"} {
		if _, err := mgr.SendFromTemplate(ctx, TemplateHealthReminder, map[string]string{"title": "x", "time": "y"}, to); err == nil {
			t.Fatal("expected error")
		}
	}

	n, err := mgr.RetryFailed(ctx)
	if err == nil || n != 0 {
		t.Fatalf("expected failures while gateway is down, got n=%d err=%v", n, err)
	}

	sender.ShouldFail = false
	n, err = mgr.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 retried, got %d", n)
	}
	if stats := mgr.Stats(); stats[StatusSent] != 2 || stats[StatusFailed] != 0 {
		t.Errorf("unexpected stats after retry %v", stats)
	}

	if n, _ := mgr.RetryFailed(ctx); n != 0 {
		t.Errorf("expected nothing left to retry, got %d", n)
	}
}

func TestManager_NoSenderConfigured(t *testing.T) {
	mgr := NewManager(nil, nil, nil)
	err := mgr.Send(context.Background(), &Notification{Type: TypeSMS, Recipient: "1", Body: "x"})
	if err == nil {
		t.Fatal("expected error without sms sender")
	}
}

func TestManager_UnsupportedType(t *testing.T) {
	mgr := NewManager(&MockSender{}, &MockSender{}, nil)
	if err := mgr.Send(context.Background(), &Notification{Type: "pigeon"}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestManager_Stats(t *testing.T) {
	ok := &MockSender{}
	bad := &MockSender{ShouldFail: true, FailError: "x"}
	mgr := NewManager(ok, bad, nil)
	ctx := context.Background()

	_ = mgr.Send(ctx, &Notification{Type: TypeEmail, Recipient: "a", Body: "x"})
	_ = mgr.Send(ctx, &Notification{Type: TypeSMS, Recipient: "b", Body: "x"})
	_ = mgr.Send(ctx, &Notification{Type: TypeSMS, Recipient: "c", Body: "x"})

	stats := mgr.Stats()
	if stats[StatusSent] != 1 || stats[StatusFailed] != 2 {
		t.Errorf("unexpected stats %v", stats)
	}
}

func TestManager_ConcurrentSends(t *testing.T) {
	sender := &MockSender{}
	mgr := NewManager(sender, sender, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.Send(context.Background(), &Notification{Type: TypeSMS, Recipient: "1", Body: "x"})
		}()
	}
	wg.Wait()

	if len(sender.SMSCalls()) != 50 {
		t.Errorf("expected 50 sms, got %d", len(sender.SMSCalls()))
	}
}

func TestLogSender(t *testing.T) {
	s := LogSender{Logger: zerolog.Nop()}
	if err := s.SendSMS(context.Background(), "1", "x"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := s.SendEmail(context.Background(), "a@b", "s", "x"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
