package monitoring

import (
	"time"

	"github.com/google/uuid"
)

// Alert types.
const (
	AlertCritical = "CRITICAL"
	AlertWarning  = "WARNING"
	AlertInfo     = "INFO"
)

// Monitoring statuses with attached behaviour.
const (
	StatusCritical  = "critical"
	StatusAttention = "attention"
)

// DashboardAlertLimit is the number of alerts shown per patient on the
// health-worker dashboard.
const DashboardAlertLimit = 5

// Monitoring maps to the patient_monitoring table, one row per patient.
type Monitoring struct {
	ID                uuid.UUID `db:"id" json:"id"`
	PatientID         uuid.UUID `db:"patient_id" json:"patientId"`
	Symptoms          string    `db:"symptoms" json:"symptoms"`
	Diagnosis         string    `db:"diagnosis" json:"diagnosis"`
	Status            string    `db:"status" json:"status"`
	EmergencyID       *string   `db:"emergency_id" json:"emergencyId"`
	HealthWorkerPhone *string   `db:"health_worker_phone" json:"healthWorkerPhone"`
	Location          *string   `db:"location" json:"location"`
	Age               *int      `db:"age" json:"age"`
	HeartRate         *int      `db:"heart_rate" json:"heartRate"`
	BloodPressure     *string   `db:"blood_pressure" json:"bloodPressure"`
	Temperature       *float64  `db:"temperature" json:"temperature"`
	Weight            *float64  `db:"weight" json:"weight"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`

	Patient *PatientRef `json:"patient,omitempty"`
	Alerts  []*Alert    `json:"alerts"`
}

// PatientRef is the patient contact shown next to a monitoring row.
type PatientRef struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	EmergencyContact *string   `json:"emergencyContact"`
}

// Alert maps to the patient_alerts table.
type Alert struct {
	ID           uuid.UUID `db:"id" json:"id"`
	MonitoringID uuid.UUID `db:"monitoring_id" json:"patientMonitoringId"`
	Type         string    `db:"type" json:"type"`
	Message      string    `db:"message" json:"message"`
	IsRead       bool      `db:"is_read" json:"isRead"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// AddPatientInput is the body of POST /health-worker/monitoring.
type AddPatientInput struct {
	PatientName       string `json:"patientName"`
	PatientPhone      string `json:"patientPhone"`
	PatientAge        *int   `json:"patientAge"`
	PatientLocation   string `json:"patientLocation"`
	Symptoms          string `json:"symptoms"`
	Diagnosis         string `json:"diagnosis"`
	Status            string `json:"status"`
	EmergencyID       string `json:"emergencyId"`
	HealthWorkerPhone string `json:"healthWorkerPhone"`
}

// AddPatientResult is returned by AddPatient.
type AddPatientResult struct {
	Monitoring          *Monitoring `json:"monitoring"`
	Alert               *Alert      `json:"alert"`
	AuthoritiesNotified bool        `json:"authoritiesNotified"`
}

// zeroVitals resets the vitals of m to the placeholder values used until a
// real reading arrives.
func zeroVitals(m *Monitoring) {
	hr := 0
	bp := "0/0"
	temp := 0.0
	weight := 0.0
	m.HeartRate = &hr
	m.BloodPressure = &bp
	m.Temperature = &temp
	m.Weight = &weight
}
