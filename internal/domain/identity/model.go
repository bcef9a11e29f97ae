package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ankandalui/med-ai-sub001/internal/domain/records"
)

// User maps to the users table. Exactly one of Patient and HealthWorker is
// loaded, matching UserType.
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	Name       string    `db:"name" json:"name"`
	UserType   string    `db:"user_type" json:"userType"`
	IsVerified bool      `db:"is_verified" json:"isVerified"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`

	Patient      *Patient      `json:"patient,omitempty"`
	HealthWorker *HealthWorker `json:"healthWorker,omitempty"`
}

// Patient maps to the patients table.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"userId"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"dateOfBirth"`
	Gender           *string    `db:"gender" json:"gender"`
	Age              *int       `db:"age" json:"age"`
	Address          *string    `db:"address" json:"address"`
	AadharNumber     *string    `db:"aadhar_number" json:"aadharNumber"`
	FamilyID         *string    `db:"family_id" json:"familyId"`
	BloodGroup       *string    `db:"blood_group" json:"bloodGroup"`
	Allergies        []string   `db:"allergies" json:"allergies"`
	MedicalHistory   *string    `db:"medical_history" json:"medicalHistory"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergencyContact"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`

	Records []*records.MedicalRecord `json:"records,omitempty"`
}

// HealthWorker maps to the health_workers table.
type HealthWorker struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"userId"`
	LicenseNumber  string    `db:"license_number" json:"licenseNumber"`
	Specialization string    `db:"specialization" json:"specialization"`
	Hospital       *string   `db:"hospital" json:"hospital"`
	AreaVillage    *string   `db:"area_village" json:"areaVillage"`
	AadharNumber   *string   `db:"aadhar_number" json:"aadharNumber"`
	Experience     *int      `db:"experience" json:"experience"`
	Qualification  *string   `db:"qualification" json:"qualification"`
	Department     *string   `db:"department" json:"department"`
	IsActive       bool      `db:"is_active" json:"isActive"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`

	RecordsCreated []*records.MedicalRecord `json:"recordsCreated,omitempty"`
}

// OTPVerification maps to the otp_verifications table. Codes are stored as
// bcrypt hashes.
type OTPVerification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CodeHash  string    `db:"code_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	Verified  bool      `db:"verified" json:"verified"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type PatientSignup struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	DateOfBirth  string `json:"dateOfBirth"`
	Gender       string `json:"gender"`
	Age          *int   `json:"age"`
	Address      string `json:"address"`
	AadharNumber string `json:"aadharNumber"`
	FamilyID     string `json:"familyId"`
}

type HealthWorkerSignup struct {
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Name           string `json:"name"`
	LicenseNumber  string `json:"licenseNumber"`
	Specialization string `json:"specialization"`
	AreaVillage    string `json:"areaVillage"`
	Hospital       string `json:"hospital"`
	AadharNumber   string `json:"aadharNumber"`
}

// SignupResult is returned by both signup flows.
type SignupResult struct {
	User      *User
	Token     string
	OTPBypass bool
}

type LoginInput struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type VerifyOTPInput struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// ProfileUpdate carries the editable profile fields. Nil and empty values
// leave the stored value unchanged.
type ProfileUpdate struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`

	DateOfBirth      *string  `json:"dateOfBirth"`
	Gender           *string  `json:"gender"`
	BloodGroup       *string  `json:"bloodGroup"`
	Allergies        []string `json:"allergies"`
	MedicalHistory   *string  `json:"medicalHistory"`
	EmergencyContact *string  `json:"emergencyContact"`
	Address          *string  `json:"address"`

	Specialization *string `json:"specialization"`
	Experience     *int    `json:"experience"`
	Qualification  *string `json:"qualification"`
	Hospital       *string `json:"hospital"`
	Department     *string `json:"department"`
	IsActive       *bool   `json:"isActive"`
}

// PatientSeed is the input of EnsurePatient. Phone is the lookup key; the
// other fields are used only when rows have to be created.
type PatientSeed struct {
	Phone   string
	Email   string
	Name    string
	Age     *int
	Address *string
}

type Stats struct {
	TotalUsers    int `json:"totalUsers"`
	Patients      int `json:"patients"`
	HealthWorkers int `json:"healthWorkers"`
}
