package emergency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/metrics"
	"github.com/ankandalui/med-ai-sub001/internal/platform/notification"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// Recorder receives emergency intake metrics.
type Recorder interface {
	EmergencyRecorded(status string)
	Escalation(outcome string)
}

// Notifier delivers templated SMS messages.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

// Service is the emergency intake orchestrator.
type Service struct {
	alerts   AlertRepository
	patients PatientDirectory
	cases    CaseBoard
	tx       Transactor
	notifier Notifier
	rec      Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(alerts AlertRepository, logger zerolog.Logger) *Service {
	return &Service{alerts: alerts, logger: logger, now: time.Now}
}

// SetEscalation wires the collaborators used to file critical emergencies
// on the health-worker dashboard. Without them no escalation happens.
func (s *Service) SetEscalation(tx Transactor, patients PatientDirectory, cases CaseBoard) {
	s.tx = tx
	s.patients = patients
	s.cases = cases
}

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) SetRecorder(r Recorder) { s.rec = r }

// CreateEmergency stores the alert and, for critical cases, escalates it.
// Only the alert insert decides the outcome; escalation failures are logged
// and counted but never returned.
func (s *Service) CreateEmergency(ctx context.Context, in *CreateInput) (*Alert, error) {
	if in.EmergencyID == "" || in.PatientName == "" || in.Symptoms == "" || in.Diagnosis == "" {
		return nil, httpx.Validation("Missing required fields: emergencyId, patientName, symptoms, diagnosis")
	}

	a := &Alert{
		EmergencyID:       in.EmergencyID,
		PatientName:       in.PatientName,
		PatientPhone:      orDefault(in.PatientPhone, DefaultPatientPhone),
		Symptoms:          in.Symptoms,
		Diagnosis:         in.Diagnosis,
		HealthWorkerPhone: orDefault(in.HealthWorkerPhone, DefaultHealthWorkerPhone),
		HospitalPhone:     DefaultHospitalPhone,
		AmbulancePhone:    DefaultAmbulancePhone,
		Status:            orDefault(in.Status, StatusPending),
		SentAt:            s.now(),
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, err
	}
	if s.rec != nil {
		s.rec.EmergencyRecorded(a.Status)
	}

	log := s.logger.With().Str("emergency_id", a.EmergencyID).Str("alert_id", a.ID.String()).Logger()
	log.Info().Str("status", a.Status).Msg("emergency alert created")

	if a.Critical() {
		if err := s.escalate(ctx, a, in); err != nil {
			log.Error().Err(err).Msg("critical escalation failed")
			s.recordEscalation(metrics.OutcomeFailed)
		} else {
			s.recordEscalation(metrics.OutcomeSucceeded)
		}
	}
	return a, nil
}

func (s *Service) escalate(ctx context.Context, a *Alert, in *CreateInput) error {
	if s.patients == nil || s.cases == nil {
		return fmt.Errorf("escalation is not configured")
	}

	phone := in.PatientPhone
	if phone == "" {
		phone = fmt.Sprintf("EMG-%d", s.now().UnixMilli())
	}
	seed := PatientSeed{
		Phone: phone,
		Email: strings.ToLower(in.EmergencyID) + "@emergency.temp",
		Name:  in.PatientName,
		Age:   in.Age,
	}
	if in.Location != "" {
		loc := in.Location
		seed.Address = &loc
	}

	run := func(ctx context.Context) error {
		patientID, err := s.patients.EnsurePatient(ctx, seed)
		if err != nil {
			return fmt.Errorf("ensure patient: %w", err)
		}
		err = s.cases.OpenCriticalCase(ctx, CriticalCase{
			PatientID:         patientID,
			PatientName:       a.PatientName,
			EmergencyID:       a.EmergencyID,
			Symptoms:          a.Symptoms,
			Diagnosis:         a.Diagnosis,
			HealthWorkerPhone: a.HealthWorkerPhone,
			Location:          orDefault(in.Location, DefaultLocation),
			Age:               in.Age,
		})
		if err != nil {
			return fmt.Errorf("open critical case: %w", err)
		}
		return nil
	}
	if s.tx == nil {
		return run(ctx)
	}
	return s.tx.InTx(ctx, run)
}

func (s *Service) recordEscalation(outcome string) {
	if s.rec != nil {
		s.rec.Escalation(outcome)
	}
}

// ListEmergencies returns alerts newest first. The limit is clamped to
// [1, MaxListLimit] with DefaultListLimit for non-positive values.
func (s *Service) ListEmergencies(ctx context.Context, f ListFilter) ([]*Alert, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return s.alerts.List(ctx, f)
}

// AlertsForPhone returns every alert filed under a patient phone.
func (s *Service) AlertsForPhone(ctx context.Context, phone string) ([]*Alert, error) {
	return s.alerts.List(ctx, ListFilter{PatientPhone: phone})
}

// AllAlerts returns every alert, newest first.
func (s *Service) AllAlerts(ctx context.Context) ([]*Alert, error) {
	return s.alerts.List(ctx, ListFilter{})
}

func (s *Service) UpdateStatus(ctx context.Context, emergencyID, status string) (*Alert, error) {
	if emergencyID == "" || status == "" {
		return nil, httpx.Validation("Missing emergencyId or status")
	}
	a, err := s.alerts.UpdateStatus(ctx, emergencyID, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("emergency_id", emergencyID).Str("status", status).Msg("emergency status updated")
	return a, nil
}

// SendToHospital records a manual dispatch and texts the hospital and
// ambulance contacts. Delivery failures are logged only.
func (s *Service) SendToHospital(ctx context.Context, req *HospitalRequest) (*Alert, error) {
	if req.PatientID == "" || req.PatientName == "" || req.PatientPhone == "" || req.Symptoms == "" || req.Diagnosis == "" {
		return nil, httpx.Validation("Missing required fields")
	}

	a := &Alert{
		EmergencyID:       req.EmergencyID,
		PatientName:       req.PatientName,
		PatientPhone:      req.PatientPhone,
		Symptoms:          req.Symptoms,
		Diagnosis:         req.Diagnosis,
		HealthWorkerPhone: orDefault(req.HealthWorkerPhone, DispatchHealthWorkerPhone),
		HospitalPhone:     DispatchHospitalPhone,
		AmbulancePhone:    DispatchAmbulancePhone,
		Status:            StatusSent,
		SentAt:            s.now(),
	}
	if a.EmergencyID == "" {
		a.EmergencyID = fmt.Sprintf("MANUAL-%d", a.SentAt.UnixMilli())
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, err
	}
	if s.rec != nil {
		s.rec.EmergencyRecorded(a.Status)
	}
	s.logger.Info().Str("emergency_id", a.EmergencyID).Str("patient_id", req.PatientID).Msg("patient sent to hospital")

	s.dispatch(ctx, a, orDefault(req.Location, DefaultLocation))
	return a, nil
}

func (s *Service) dispatch(ctx context.Context, a *Alert, location string) {
	if s.notifier == nil {
		return
	}
	data := map[string]string{
		"emergency_id":        a.EmergencyID,
		"patient_name":        a.PatientName,
		"patient_phone":       a.PatientPhone,
		"symptoms":            a.Symptoms,
		"diagnosis":           a.Diagnosis,
		"location":            location,
		"health_worker_phone": a.HealthWorkerPhone,
	}
	targets := []struct{ template, phone string }{
		{notification.TemplateHospitalAlert, a.HospitalPhone},
		{notification.TemplateAmbulanceAlert, a.AmbulancePhone},
	}
	for _, t := range targets {
		if _, err := s.notifier.SendFromTemplate(ctx, t.template, data, t.phone); err != nil {
			s.logger.Warn().Err(err).Str("emergency_id", a.EmergencyID).Str("recipient", t.phone).Msg("dispatch notification failed")
		}
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
