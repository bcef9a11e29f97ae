package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/notification"
)

// Notifier delivers templated SMS messages.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	repo     Repository
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetClock overrides the time source used for due checks and stamps.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) List(ctx context.Context, patientID, status string) ([]*Reminder, error) {
	if patientID == "" {
		return nil, httpx.Validation("Patient ID is required")
	}
	id, err := uuid.Parse(patientID)
	if err != nil {
		return nil, httpx.Validation("Invalid patient ID")
	}
	return s.repo.ListByPatient(ctx, id, status)
}

// ActiveForPatient returns the patient's active reminders.
func (s *Service) ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*Reminder, error) {
	return s.repo.ListByPatient(ctx, patientID, StatusActive)
}

func (s *Service) Create(ctx context.Context, in *CreateInput) (*Reminder, error) {
	if in.PatientID == "" || in.Type == "" || in.Title == "" || in.Date == "" || in.Time == "" {
		return nil, httpx.Validation("Patient ID, type, title, date, and time are required")
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		return nil, httpx.Validation("Invalid patient ID")
	}
	if err := checkSchedule(in.Date, in.Time); err != nil {
		return nil, err
	}

	r := &Reminder{
		PatientID:   patientID,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Frequency:   orDefault(in.Frequency, FrequencyOnce),
		Priority:    orDefault(in.Priority, PriorityMedium),
		Status:      StatusActive,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info().Str("reminder_id", r.ID.String()).Str("patient_id", r.PatientID.String()).Msg("reminder created")
	return r, nil
}

func (s *Service) Update(ctx context.Context, in *UpdateInput) (*Reminder, error) {
	if in.ID == "" {
		return nil, httpx.Validation("Reminder ID is required")
	}
	id, err := uuid.Parse(in.ID)
	if err != nil {
		return nil, httpx.NotFound("Reminder not found")
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	setIfPresent(&r.Type, in.Type)
	setIfPresent(&r.Title, in.Title)
	if in.Description != nil {
		r.Description = *in.Description
	}
	setIfPresent(&r.Date, in.Date)
	setIfPresent(&r.Time, in.Time)
	setIfPresent(&r.Frequency, in.Frequency)
	setIfPresent(&r.Priority, in.Priority)
	setIfPresent(&r.Status, in.Status)
	if in.Status != nil && *in.Status == StatusCompleted {
		now := s.now()
		r.LastNotified = &now
	}
	if err := checkSchedule(r.Date, r.Time); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return httpx.Validation("Reminder ID is required")
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return httpx.NotFound("Reminder not found")
	}
	return s.repo.Delete(ctx, uid)
}

// DispatchDue texts every patient whose reminder is due and stamps it.
// One-time reminders are completed once sent. A failed send leaves the
// reminder pending for the next run.
func (s *Service) DispatchDue(ctx context.Context) (int, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	sent := 0
	for _, r := range items {
		if _, ok := r.Pending(now); !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		log := s.logger.With().Str("reminder_id", r.ID.String()).Logger()

		if s.notifier != nil && r.PatientPhone != "" {
			data := map[string]string{"title": r.Title, "time": r.Time}
			if _, err := s.notifier.SendFromTemplate(ctx, notification.TemplateHealthReminder, data, r.PatientPhone); err != nil {
				log.Warn().Err(err).Msg("reminder delivery failed")
				continue
			}
		}

		status := r.Status
		if r.Frequency == FrequencyOnce || r.Frequency == "" {
			status = StatusCompleted
		}
		if err := s.repo.MarkNotified(ctx, r.ID, now, status); err != nil {
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		s.logger.Info().Int("sent", sent).Msg("due reminders dispatched")
	}
	return sent, nil
}

func checkSchedule(date, clock string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return httpx.Validation("Date must be in YYYY-MM-DD format")
	}
	if _, err := time.Parse(TimeLayout, clock); err != nil {
		return httpx.Validation("Time must be in HH:MM format")
	}
	return nil
}

func setIfPresent(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
