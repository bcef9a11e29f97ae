package monitoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/domain/emergency"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/notification"
)

// Dispatcher alerts the hospital and ambulance contacts for a patient.
type Dispatcher interface {
	SendToHospital(ctx context.Context, req *emergency.HospitalRequest) (*emergency.Alert, error)
}

// Notifier delivers templated messages.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	repo     Repository
	patients emergency.PatientDirectory
	tx       Transactor
	hospital Dispatcher
	notifier Notifier
	onCall   string
	logger   zerolog.Logger
}

func NewService(repo Repository, patients emergency.PatientDirectory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, logger: logger}
}

func (s *Service) SetTransactor(tx Transactor) { s.tx = tx }

func (s *Service) SetDispatcher(d Dispatcher) { s.hospital = d }

// SetNotifier enables the critical-patient email to the on-call address.
// An empty address disables it.
func (s *Service) SetNotifier(n Notifier, onCallEmail string) {
	s.notifier = n
	s.onCall = onCallEmail
}

// Dashboard returns every monitored patient with their latest alerts.
func (s *Service) Dashboard(ctx context.Context) ([]*Monitoring, error) {
	items, err := s.repo.List(ctx, DashboardAlertLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Monitoring{}
	}
	return items, nil
}

// All returns every monitoring row with its full alert history.
func (s *Service) All(ctx context.Context) ([]*Monitoring, error) {
	return s.repo.List(ctx, 0)
}

// ForPatient returns the patient's monitoring row, or nil when the patient
// has never been monitored.
func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID) (*Monitoring, error) {
	return s.repo.GetByPatient(ctx, patientID)
}

// OpenCriticalCase files an escalated emergency on the dashboard. It runs in
// the caller's transaction.
func (s *Service) OpenCriticalCase(ctx context.Context, cc emergency.CriticalCase) error {
	m := &Monitoring{
		PatientID:   cc.PatientID,
		Symptoms:    cc.Symptoms,
		Diagnosis:   cc.Diagnosis,
		Status:      StatusCritical,
		EmergencyID: optional(cc.EmergencyID),
		HealthWorkerPhone: optional(
			orDefault(cc.HealthWorkerPhone, emergency.DefaultHealthWorkerPhone)),
		Location: optional(orDefault(cc.Location, emergency.DefaultLocation)),
		Age:      cc.Age,
	}
	zeroVitals(m)
	if err := s.repo.Upsert(ctx, m); err != nil {
		return fmt.Errorf("upsert monitoring: %w", err)
	}
	alert := &Alert{
		MonitoringID: m.ID,
		Type:         AlertCritical,
		Message: fmt.Sprintf("EMERGENCY: %s requires immediate attention. Symptoms: %s",
			cc.PatientName, cc.Symptoms),
	}
	if err := s.repo.AddAlert(ctx, alert); err != nil {
		return fmt.Errorf("add alert: %w", err)
	}
	s.logger.Info().Str("patient_id", cc.PatientID.String()).Str("emergency_id", cc.EmergencyID).
		Msg("critical case opened")
	s.emailOnCall(ctx, cc.PatientName, cc.Symptoms)
	return nil
}

// AddPatient puts a patient under monitoring, resolving or creating their
// account by phone. Critical cases are also sent to the hospital; a failed
// dispatch is logged and reported as authoritiesNotified=false.
func (s *Service) AddPatient(ctx context.Context, in *AddPatientInput) (*AddPatientResult, error) {
	if in.PatientName == "" || in.PatientPhone == "" || in.Symptoms == "" || in.Diagnosis == "" || in.Status == "" {
		return nil, httpx.Validation("Missing required fields: patientName, patientPhone, symptoms, diagnosis, status")
	}

	seed := emergency.PatientSeed{
		Phone:   in.PatientPhone,
		Email:   in.PatientPhone + "@temp.medai.com",
		Name:    in.PatientName,
		Age:     in.PatientAge,
		Address: optional(in.PatientLocation),
	}
	m := &Monitoring{
		Symptoms:          in.Symptoms,
		Diagnosis:         in.Diagnosis,
		Status:            in.Status,
		EmergencyID:       optional(in.EmergencyID),
		HealthWorkerPhone: optional(in.HealthWorkerPhone),
		Location:          optional(in.PatientLocation),
		Age:               in.PatientAge,
	}
	zeroVitals(m)
	alert := statusAlert(in)

	run := func(ctx context.Context) error {
		patientID, err := s.patients.EnsurePatient(ctx, seed)
		if err != nil {
			return err
		}
		m.PatientID = patientID
		if err := s.repo.Upsert(ctx, m); err != nil {
			return err
		}
		alert.MonitoringID = m.ID
		return s.repo.AddAlert(ctx, alert)
	}
	var err error
	if s.tx == nil {
		err = run(ctx)
	} else {
		err = s.tx.InTx(ctx, run)
	}
	if err != nil {
		return nil, err
	}
	m.Patient = &PatientRef{ID: m.PatientID, Name: in.PatientName, Phone: in.PatientPhone, Email: seed.Email}
	m.Alerts = []*Alert{alert}

	res := &AddPatientResult{Monitoring: m, Alert: alert}
	if strings.EqualFold(in.Status, StatusCritical) {
		res.AuthoritiesNotified = s.notifyAuthorities(ctx, m, in)
		s.emailOnCall(ctx, in.PatientName, in.Symptoms)
	}
	return res, nil
}

func (s *Service) notifyAuthorities(ctx context.Context, m *Monitoring, in *AddPatientInput) bool {
	if s.hospital == nil {
		return false
	}
	_, err := s.hospital.SendToHospital(ctx, &emergency.HospitalRequest{
		PatientID:         m.PatientID.String(),
		PatientName:       in.PatientName,
		PatientPhone:      in.PatientPhone,
		Symptoms:          in.Symptoms,
		Diagnosis:         in.Diagnosis,
		EmergencyID:       in.EmergencyID,
		HealthWorkerPhone: in.HealthWorkerPhone,
		Location:          in.PatientLocation,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("patient_id", m.PatientID.String()).Msg("notify authorities failed")
		return false
	}
	return true
}

// emailOnCall is best effort; failures stay in the notification history
// for the retry job.
func (s *Service) emailOnCall(ctx context.Context, patientName, symptoms string) {
	if s.notifier == nil || s.onCall == "" {
		return
	}
	data := map[string]string{"patient_name": patientName, "symptoms": symptoms}
	if _, err := s.notifier.SendFromTemplate(ctx, notification.TemplateCriticalPatient, data, s.onCall); err != nil {
		s.logger.Warn().Err(err).Str("patient_name", patientName).Msg("critical patient email failed")
	}
}

func statusAlert(in *AddPatientInput) *Alert {
	switch strings.ToLower(in.Status) {
	case StatusCritical:
		return &Alert{Type: AlertCritical, Message: "Critical emergency detected: " + in.Symptoms}
	case StatusAttention:
		return &Alert{Type: AlertWarning, Message: "Patient needs attention: " + truncate(in.Symptoms, 100) + "..."}
	default:
		return &Alert{Type: AlertInfo, Message: "Patient status update: " + in.Status}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
