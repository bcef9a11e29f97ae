package emergency

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Alert statuses recognised by the orchestrator. Callers may store any
// other status string; only CRITICAL has behaviour attached.
const (
	StatusPending  = "PENDING"
	StatusCritical = "CRITICAL"
	StatusSent     = "SENT"
)

const (
	DefaultPatientPhone      = "Unknown"
	DefaultHealthWorkerPhone = "Not specified"
	DefaultHospitalPhone     = "Emergency: 102"
	DefaultAmbulancePhone    = "Ambulance: 108"
	DefaultLocation          = "Unknown"
)

// Contacts used when a health worker manually forwards a patient.
const (
	DispatchHospitalPhone     = "8100752679"
	DispatchAmbulancePhone    = "8653015622"
	DispatchHealthWorkerPhone = "7074757878"
)

// Alert is a reported urgent patient event routed toward hospital and
// ambulance contacts.
type Alert struct {
	ID                uuid.UUID `db:"id" json:"id"`
	EmergencyID       string    `db:"emergency_id" json:"emergencyId"`
	PatientName       string    `db:"patient_name" json:"patientName"`
	PatientPhone      string    `db:"patient_phone" json:"patientPhone"`
	Symptoms          string    `db:"symptoms" json:"symptoms"`
	Diagnosis         string    `db:"diagnosis" json:"diagnosis"`
	HealthWorkerPhone string    `db:"health_worker_phone" json:"healthWorkerPhone"`
	HospitalPhone     string    `db:"hospital_phone" json:"hospitalPhone"`
	AmbulancePhone    string    `db:"ambulance_phone" json:"ambulancePhone"`
	Status            string    `db:"status" json:"status"`
	SentAt            time.Time `db:"sent_at" json:"sentAt"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Critical reports whether the alert must be escalated to the health-worker
// dashboard.
func (a *Alert) Critical() bool {
	return a.Status == StatusCritical || strings.Contains(strings.ToLower(a.Diagnosis), "critical")
}

// CreateInput is the body of POST /emergency.
type CreateInput struct {
	EmergencyID       string `json:"emergencyId"`
	PatientName       string `json:"patientName"`
	PatientPhone      string `json:"patientPhone"`
	Symptoms          string `json:"symptoms"`
	Diagnosis         string `json:"diagnosis"`
	HealthWorkerPhone string `json:"healthWorkerPhone"`
	Location          string `json:"location"`
	Age               *int   `json:"age"`
	Status            string `json:"status"`
}

// StatusUpdate is the body of PATCH /emergency.
type StatusUpdate struct {
	EmergencyID string `json:"emergencyId"`
	Status      string `json:"status"`
}

// HospitalRequest is a health worker's manual hand-off of a patient to the
// hospital and ambulance contacts.
type HospitalRequest struct {
	PatientID         string `json:"patientId"`
	PatientName       string `json:"patientName"`
	PatientPhone      string `json:"patientPhone"`
	Symptoms          string `json:"symptoms"`
	Diagnosis         string `json:"diagnosis"`
	EmergencyID       string `json:"emergencyId"`
	HealthWorkerPhone string `json:"healthWorkerPhone"`
	Location          string `json:"location"`
}

// ListFilter selects alerts. EmergencyID, when set, is the only filter
// applied. A zero Limit means no limit.
type ListFilter struct {
	Status       string
	EmergencyID  string
	PatientPhone string
	Limit        int
}

// PatientSeed identifies the patient an escalated emergency is filed
// against. Phone is the lookup key.
type PatientSeed struct {
	Phone   string
	Email   string
	Name    string
	Age     *int
	Address *string
}

// CriticalCase is the dashboard entry opened for an escalated emergency.
type CriticalCase struct {
	PatientID         uuid.UUID
	PatientName       string
	EmergencyID       string
	Symptoms          string
	Diagnosis         string
	HealthWorkerPhone string
	Location          string
	Age               *int
}
