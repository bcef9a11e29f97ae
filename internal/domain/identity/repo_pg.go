package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankandalui/med-ai-sub001/internal/platform/db"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/phi"
)

// -- User Repository --

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const userCols = `id, email, phone, name, user_type, is_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.Name, &u.UserType, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound("User not found")
	}
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, phone, name, user_type, is_verified)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Phone, u.Name, u.UserType, u.IsVerified,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	switch {
	case db.IsUniqueViolation(err, "users_email_key"):
		return conflictFor("email")
	case db.IsUniqueViolation(err, "users_phone_key"):
		return conflictFor("phone")
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) FindByEmailOrPhone(ctx context.Context, email, phone string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `
		SELECT `+userCols+` FROM users
		WHERE ($1 <> '' AND email = $1) OR ($2 <> '' AND phone = $2)
		ORDER BY created_at
		LIMIT 1`, email, phone))
}

func (r *userRepoPG) UpdateContact(ctx context.Context, id uuid.UUID, name, phone string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET
			name = COALESCE(NULLIF($2, ''), name),
			phone = COALESCE(NULLIF($3, ''), phone),
			updated_at = NOW()
		WHERE id = $1`, id, name, phone)
	if db.IsUniqueViolation(err, "users_phone_key") {
		return conflictFor("phone")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.NotFound("User not found")
	}
	return nil
}

func (r *userRepoPG) MarkVerified(ctx context.Context, email, phone string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET is_verified = TRUE, updated_at = NOW()
		WHERE ($1 <> '' AND email = $1) OR ($2 <> '' AND phone = $2)`, email, phone)
	return err
}

func (r *userRepoPG) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM patients),
		       (SELECT COUNT(*) FROM health_workers)`).Scan(&s.TotalUsers, &s.Patients, &s.HealthWorkers)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	return &s, nil
}

// -- Patient Repository --

type patientRepoPG struct {
	pool   *pgxpool.Pool
	cipher phi.Cipher
}

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

// NewPatientRepoWithEncryption encrypts Aadhaar numbers with cipher before
// storage and decrypts them after retrieval. A nil cipher disables it.
func NewPatientRepoWithEncryption(pool *pgxpool.Pool, cipher phi.Cipher) PatientRepository {
	return &patientRepoPG{pool: pool, cipher: cipher}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const patientCols = `id, user_id, date_of_birth, gender, age, address, aadhar_number, family_id,
	blood_group, allergies, medical_history, emergency_contact, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.DateOfBirth, &p.Gender, &p.Age, &p.Address, &p.AadharNumber, &p.FamilyID,
		&p.BloodGroup, &p.Allergies, &p.MedicalHistory, &p.EmergencyContact, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound("Patient not found")
	}
	if err != nil {
		return nil, err
	}
	if p.AadharNumber, err = decryptField(r.cipher, p.AadharNumber); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	aadhar, err := encryptField(r.cipher, p.AadharNumber)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, user_id, date_of_birth, gender, age, address, aadhar_number, family_id,
			blood_group, allergies, medical_history, emergency_contact)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.DateOfBirth, p.Gender, p.Age, p.Address, aadhar, p.FamilyID,
		p.BloodGroup, p.Allergies, p.MedicalHistory, p.EmergencyContact,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE user_id = $1`, userID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET date_of_birth=$2, gender=$3, blood_group=$4, allergies=$5,
			medical_history=$6, emergency_contact=$7, address=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DateOfBirth, p.Gender, p.BloodGroup, p.Allergies,
		p.MedicalHistory, p.EmergencyContact, p.Address)
	return err
}

func (r *patientRepoPG) Ensure(ctx context.Context, seed PatientSeed) (*Patient, error) {
	q := r.conn(ctx)

	userID, err := ensureUser(ctx, q, seed)
	if err != nil {
		return nil, err
	}

	return r.scanPatient(q.QueryRow(ctx, `
		INSERT INTO patients (id, user_id, age, address)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id) DO UPDATE SET age = COALESCE(patients.age, EXCLUDED.age), updated_at = NOW()
		RETURNING `+patientCols,
		uuid.New(), userID, seed.Age, seed.Address))
}

// ensureUser returns the user owning seed.Phone, creating it when absent.
// A placeholder email already held by another phone falls back to one
// derived from the phone.
func ensureUser(ctx context.Context, q db.Querier, seed PatientSeed) (uuid.UUID, error) {
	for _, email := range userEmailCandidates(seed) {
		var id uuid.UUID
		err := q.QueryRow(ctx, `
			INSERT INTO users (id, email, phone, name, user_type, is_verified)
			VALUES ($1,$2,$3,$4,'PATIENT',FALSE)
			ON CONFLICT DO NOTHING
			RETURNING id`,
			uuid.New(), email, seed.Phone, seed.Name,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("upsert user: %w", err)
		}

		err = q.QueryRow(ctx, `SELECT id FROM users WHERE phone = $1`, seed.Phone).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("lookup user by phone: %w", err)
		}
	}
	return uuid.Nil, fmt.Errorf("upsert user: email %q is registered to another phone", seed.Email)
}

func userEmailCandidates(seed PatientSeed) []string {
	fallback := strings.ToLower(seed.Phone) + "@patient.temp"
	if seed.Email == "" || strings.EqualFold(seed.Email, fallback) {
		return []string{fallback}
	}
	return []string{seed.Email, fallback}
}

// -- Health Worker Repository --

type healthWorkerRepoPG struct {
	pool   *pgxpool.Pool
	cipher phi.Cipher
}

func NewHealthWorkerRepoPG(pool *pgxpool.Pool, cipher phi.Cipher) HealthWorkerRepository {
	return &healthWorkerRepoPG{pool: pool, cipher: cipher}
}

func (r *healthWorkerRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const healthWorkerCols = `id, user_id, license_number, specialization, hospital, area_village, aadhar_number,
	experience, qualification, department, is_active, created_at, updated_at`

func (r *healthWorkerRepoPG) scanHealthWorker(row pgx.Row) (*HealthWorker, error) {
	var hw HealthWorker
	err := row.Scan(&hw.ID, &hw.UserID, &hw.LicenseNumber, &hw.Specialization, &hw.Hospital, &hw.AreaVillage, &hw.AadharNumber,
		&hw.Experience, &hw.Qualification, &hw.Department, &hw.IsActive, &hw.CreatedAt, &hw.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound("Health worker not found")
	}
	if err != nil {
		return nil, err
	}
	if hw.AadharNumber, err = decryptField(r.cipher, hw.AadharNumber); err != nil {
		return nil, err
	}
	return &hw, nil
}

func (r *healthWorkerRepoPG) Create(ctx context.Context, hw *HealthWorker) error {
	hw.ID = uuid.New()
	aadhar, err := encryptField(r.cipher, hw.AadharNumber)
	if err != nil {
		return fmt.Errorf("health worker create: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO health_workers (id, user_id, license_number, specialization, hospital, area_village,
			aadhar_number, experience, qualification, department, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		hw.ID, hw.UserID, hw.LicenseNumber, hw.Specialization, hw.Hospital, hw.AreaVillage,
		aadhar, hw.Experience, hw.Qualification, hw.Department, hw.IsActive,
	).Scan(&hw.CreatedAt, &hw.UpdatedAt)
	if db.IsUniqueViolation(err, "health_workers_license_number_key") {
		return httpx.Conflict(msgLicenseExists, "licenseNumber")
	}
	return err
}

func (r *healthWorkerRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*HealthWorker, error) {
	return r.scanHealthWorker(r.conn(ctx).QueryRow(ctx,
		`SELECT `+healthWorkerCols+` FROM health_workers WHERE user_id = $1`, userID))
}

func (r *healthWorkerRepoPG) LicenseExists(ctx context.Context, license string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM health_workers WHERE license_number = $1)`, license).Scan(&exists)
	return exists, err
}

func (r *healthWorkerRepoPG) Update(ctx context.Context, hw *HealthWorker) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE health_workers SET specialization=$2, experience=$3, qualification=$4,
			hospital=$5, department=$6, is_active=$7, updated_at=NOW()
		WHERE id = $1`,
		hw.ID, hw.Specialization, hw.Experience, hw.Qualification,
		hw.Hospital, hw.Department, hw.IsActive)
	return err
}

// -- OTP Repository --

type otpRepoPG struct{ pool *pgxpool.Pool }

func NewOTPRepoPG(pool *pgxpool.Pool) OTPRepository { return &otpRepoPG{pool: pool} }

func (r *otpRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

func (r *otpRepoPG) Create(ctx context.Context, o *OTPVerification) error {
	o.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO otp_verifications (id, email, phone, code_hash, expires_at, verified)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		o.ID, o.Email, o.Phone, o.CodeHash, o.ExpiresAt, o.Verified,
	).Scan(&o.CreatedAt)
}

func (r *otpRepoPG) Latest(ctx context.Context, email, phone string, now time.Time) (*OTPVerification, error) {
	var o OTPVerification
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, email, phone, code_hash, expires_at, verified, created_at
		FROM otp_verifications
		WHERE (($1 <> '' AND email = $1) OR ($2 <> '' AND phone = $2))
			AND verified = FALSE AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`, email, phone, now,
	).Scan(&o.ID, &o.Email, &o.Phone, &o.CodeHash, &o.ExpiresAt, &o.Verified, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound(msgOTPNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *otpRepoPG) MarkVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE otp_verifications SET verified = TRUE WHERE id = $1`, id)
	return err
}

func (r *otpRepoPG) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM otp_verifications WHERE verified = FALSE AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// -- PHI Encryption Helpers --

func encryptField(c phi.Cipher, value *string) (*string, error) {
	if c == nil || value == nil || *value == "" {
		return value, nil
	}
	encrypted, err := c.Encrypt(*value)
	if err != nil {
		return nil, fmt.Errorf("encrypting PHI field: %w", err)
	}
	return &encrypted, nil
}

func decryptField(c phi.Cipher, value *string) (*string, error) {
	if c == nil || value == nil || *value == "" {
		return value, nil
	}
	decrypted, err := c.Decrypt(*value)
	if err != nil {
		return nil, fmt.Errorf("decrypting PHI field: %w", err)
	}
	return &decrypted, nil
}
