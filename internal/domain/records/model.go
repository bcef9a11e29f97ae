package records

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ankandalui/med-ai-sub001/internal/domain/documents"
	"github.com/ankandalui/med-ai-sub001/internal/domain/emergency"
	"github.com/ankandalui/med-ai-sub001/internal/domain/monitoring"
	"github.com/ankandalui/med-ai-sub001/internal/domain/reminders"
)

// DocumentTypeMedicalRecord marks content-store documents produced from a
// medical record.
const DocumentTypeMedicalRecord = "MEDICAL_RECORD"

// MedicalRecord maps to the medical_records table. The name and phone fields
// are joined from users for display.
type MedicalRecord struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patientId"`
	HealthWorkerID   uuid.UUID `db:"health_worker_id" json:"healthWorkerId"`
	Diagnosis        string    `db:"diagnosis" json:"diagnosis"`
	Symptoms         []string  `db:"symptoms" json:"symptoms"`
	Treatment        *string   `db:"treatment" json:"treatment"`
	Medications      []string  `db:"medications" json:"medications"`
	Notes            *string   `db:"notes" json:"notes"`
	BlockchainCID    *string   `db:"blockchain_cid" json:"blockchainCid"`
	VerificationHash *string   `db:"verification_hash" json:"verificationHash"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`

	PatientName       string `json:"patientName,omitempty"`
	PatientPhone      string `json:"patientPhone,omitempty"`
	PatientAge        *int   `json:"patientAge,omitempty"`
	HealthWorkerName  string `json:"healthWorkerName,omitempty"`
	HealthWorkerPhone string `json:"healthWorkerPhone,omitempty"`
}

// EmergencyInfo maps to the emergency_info table, one row per patient.
type EmergencyInfo struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	PatientID         uuid.UUID       `db:"patient_id" json:"patientId"`
	BloodType         *string         `db:"blood_type" json:"bloodType"`
	Allergies         []string        `db:"allergies" json:"allergies"`
	Medications       []string        `db:"medications" json:"medications"`
	Conditions        []string        `db:"conditions" json:"conditions"`
	EmergencyContacts json.RawMessage `db:"emergency_contacts" json:"emergencyContacts"`
	DoctorName        *string         `db:"doctor_name" json:"doctorName"`
	DoctorPhone       *string         `db:"doctor_phone" json:"doctorPhone"`
	Hospital          *string         `db:"hospital" json:"hospital"`
	InsuranceInfo     *string         `db:"insurance_info" json:"insuranceInfo"`
	OrganDonor        bool            `db:"organ_donor" json:"organDonor"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`
}

// EmergencyInfoInput is the body of POST /patient/emergency-info.
type EmergencyInfoInput struct {
	PatientID         string          `json:"patientId"`
	BloodType         string          `json:"bloodType"`
	Allergies         []string        `json:"allergies"`
	Medications       []string        `json:"medications"`
	Conditions        []string        `json:"conditions"`
	EmergencyContacts json.RawMessage `json:"emergencyContacts"`
	DoctorName        string          `json:"doctorName"`
	DoctorPhone       string          `json:"doctorPhone"`
	Hospital          string          `json:"hospital"`
	InsuranceInfo     string          `json:"insuranceInfo"`
	OrganDonor        bool            `json:"organDonor"`
}

// CreateRecordInput is the body of POST /health-worker/records.
type CreateRecordInput struct {
	PatientID   string   `json:"patientId"`
	Diagnosis   string   `json:"diagnosis"`
	Symptoms    []string `json:"symptoms"`
	Treatment   string   `json:"treatment"`
	Medications []string `json:"medications"`
	Notes       string   `json:"notes"`
}

// Author describes the health worker writing a record.
type Author struct {
	HealthWorkerID uuid.UUID
	Name           string
	Phone          string
	Specialization string
	Hospital       *string
}

// PatientSummary is the patient header of the patient records view.
type PatientSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone"`
	Email   string    `json:"email"`
	Age     *int      `json:"age"`
	Address *string   `json:"address"`
}

// PatientRecords is everything held about one patient.
type PatientRecords struct {
	Patient           *PatientSummary        `json:"patient"`
	MedicalRecords    []*MedicalRecord       `json:"medicalRecords"`
	Monitoring        *monitoring.Monitoring `json:"monitoring"`
	EmergencyAlerts   []*emergency.Alert     `json:"emergencyAlerts"`
	EmergencyInfo     *EmergencyInfo         `json:"emergencyInfo"`
	HealthReminders   []*reminders.Reminder  `json:"healthReminders"`
	UploadedDocuments []*documents.Document  `json:"uploadedDocuments"`
}

// Record types in the merged health-worker view.
const (
	TypeMedicalRecord = "medical_record"
	TypeMonitoring    = "monitoring"
	TypeEmergency     = "emergency"
)

// Entry is one row of the merged health-worker records view.
type Entry struct {
	ID                uuid.UUID           `json:"id"`
	PatientName       string              `json:"patientName"`
	PatientID         uuid.UUID           `json:"patientId"`
	PatientPhone      string              `json:"patientPhone"`
	RecordType        string              `json:"recordType"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Diagnosis         string              `json:"diagnosis"`
	Status            string              `json:"status"`
	Date              time.Time           `json:"date"`
	LastAccessed      time.Time           `json:"lastAccessed"`
	HealthWorkerPhone string              `json:"healthWorkerPhone,omitempty"`
	Treatment         *string             `json:"treatment,omitempty"`
	Medications       []string            `json:"medications,omitempty"`
	Notes             *string             `json:"notes,omitempty"`
	HealthWorker      string              `json:"healthWorker,omitempty"`
	Symptoms          string              `json:"symptoms,omitempty"`
	Location          string              `json:"location,omitempty"`
	Age               *int                `json:"age,omitempty"`
	EmergencyID       string              `json:"emergencyId,omitempty"`
	HeartRate         *int                `json:"heartRate,omitempty"`
	BloodPressure     string              `json:"bloodPressure,omitempty"`
	Temperature       *float64            `json:"temperature,omitempty"`
	Weight            *float64            `json:"weight,omitempty"`
	Alerts            []*monitoring.Alert `json:"alerts,omitempty"`
	HospitalPhone     string              `json:"hospitalPhone,omitempty"`
	AmbulancePhone    string              `json:"ambulancePhone,omitempty"`
	BlockchainCID     *string             `json:"blockchainCid,omitempty"`
}

// MergedFilter narrows the merged view. Type is all, recent, or one of the
// record types.
type MergedFilter struct {
	Type   string
	Search string
}

// MergedView is the result of the health-worker records query.
type MergedView struct {
	Entries           []*Entry
	MedicalRecords    int
	MonitoringRecords int
	EmergencyAlerts   int
}

// Document is the JSON published to the content store for a medical record.
type Document struct {
	DocumentType  string           `json:"documentType"`
	Version       string           `json:"version"`
	GeneratedAt   time.Time        `json:"generatedAt"`
	MedicalRecord DocumentRecord   `json:"medicalRecord"`
	HealthWorker  DocumentAuthor   `json:"healthWorker"`
	Patient       DocumentPatient  `json:"patient"`
	Security      DocumentSecurity `json:"security"`
}

type DocumentRecord struct {
	ID          uuid.UUID `json:"id"`
	Diagnosis   string    `json:"diagnosis"`
	Symptoms    []string  `json:"symptoms"`
	Treatment   *string   `json:"treatment"`
	Medications []string  `json:"medications"`
	Notes       *string   `json:"notes"`
	DateCreated time.Time `json:"dateCreated"`
}

type DocumentAuthor struct {
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Specialization string  `json:"specialization"`
	Hospital       *string `json:"hospital"`
}

// DocumentPatient carries only the record id and age; names and phones
// stay off the content store.
type DocumentPatient struct {
	RecordID uuid.UUID `json:"recordId"`
	Age      *int      `json:"age"`
}

type DocumentSecurity struct {
	Encrypted        bool   `json:"encrypted"`
	Blockchain       string `json:"blockchain"`
	VerificationHash string `json:"verificationHash"`
}

// Publication is the outcome of publishing a record to the content store.
type Publication struct {
	CID              string `json:"cid"`
	IPFSURL          string `json:"ipfsUrl"`
	VerificationHash string `json:"verificationHash"`
}

// Verification is the result of fetching a published record.
type Verification struct {
	Document *Document `json:"document"`
	// HashValid is true when the embedded hash matches the document body.
	HashValid bool `json:"hashValid"`
	// Matches is true when a stored record carries the same cid and hash.
	Matches bool `json:"matchesRecord"`
}
