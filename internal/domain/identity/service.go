package identity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/domain/records"
	"github.com/ankandalui/med-ai-sub001/internal/platform/auth"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/internal/platform/notification"
)

const (
	msgLicenseExists = "Health worker with this license number already exists"
	msgOTPNotFound   = "OTP not found or expired"
)

func conflictFor(field string) *httpx.Error {
	return httpx.Conflict(fmt.Sprintf("A user already exists with this %s. Please try logging in instead.", field), field)
}

// Notifier delivers templated SMS messages.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

// RecordSource lists medical records for profile views.
type RecordSource interface {
	RecordsForPatient(ctx context.Context, patientID uuid.UUID) ([]*records.MedicalRecord, error)
	RecordsByHealthWorker(ctx context.Context, healthWorkerID uuid.UUID) ([]*records.MedicalRecord, error)
}

type Service struct {
	users    UserRepository
	patients PatientRepository
	workers  HealthWorkerRepository
	otps     OTPRepository
	tokens   *auth.TokenIssuer
	otp      auth.OTPConfig
	tx       Transactor
	notifier Notifier
	records  RecordSource
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(users UserRepository, patients PatientRepository, workers HealthWorkerRepository, otps OTPRepository,
	tokens *auth.TokenIssuer, otp auth.OTPConfig, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		patients: patients,
		workers:  workers,
		otps:     otps,
		tokens:   tokens,
		otp:      otp,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) SetTransactor(tx Transactor) { s.tx = tx }

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) SetRecordSource(r RecordSource) { s.records = r }

// Tokens returns the issuer used to sign session tokens.
func (s *Service) Tokens() *auth.TokenIssuer { return s.tokens }

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.InTx(ctx, fn)
}

// -- Signup --

func (s *Service) SignupPatient(ctx context.Context, in *PatientSignup) (*SignupResult, error) {
	if in.Email == "" || in.Phone == "" || in.Name == "" {
		return nil, httpx.Validation("Email, phone, and name are required")
	}
	if err := s.checkAvailable(ctx, in.Email, in.Phone); err != nil {
		return nil, err
	}

	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return nil, err
	}
	u := &User{Email: in.Email, Phone: in.Phone, Name: in.Name, UserType: auth.UserTypePatient, IsVerified: s.otp.Bypass}
	p := &Patient{
		DateOfBirth:  dob,
		Gender:       optional(in.Gender),
		Age:          in.Age,
		Address:      optional(in.Address),
		AadharNumber: optional(in.AadharNumber),
		FamilyID:     optional(in.FamilyID),
	}

	code, err := s.register(ctx, u, func(ctx context.Context) error {
		p.UserID = u.ID
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	u.Patient = p
	return s.finishSignup(ctx, u, code)
}

func (s *Service) SignupHealthWorker(ctx context.Context, in *HealthWorkerSignup) (*SignupResult, error) {
	if in.Email == "" || in.Phone == "" || in.Name == "" || in.LicenseNumber == "" || in.Specialization == "" {
		return nil, httpx.Validation("Email, phone, name, license number, and specialization are required")
	}
	if err := s.checkAvailable(ctx, in.Email, in.Phone); err != nil {
		return nil, err
	}
	exists, err := s.workers.LicenseExists(ctx, in.LicenseNumber)
	if err != nil {
		return nil, fmt.Errorf("check license: %w", err)
	}
	if exists {
		return nil, httpx.Conflict(msgLicenseExists, "licenseNumber")
	}

	u := &User{Email: in.Email, Phone: in.Phone, Name: in.Name, UserType: auth.UserTypeHealthWorker, IsVerified: s.otp.Bypass}
	hw := &HealthWorker{
		LicenseNumber:  in.LicenseNumber,
		Specialization: in.Specialization,
		Hospital:       optional(in.Hospital),
		AreaVillage:    optional(in.AreaVillage),
		AadharNumber:   optional(in.AadharNumber),
		IsActive:       true,
	}

	code, err := s.register(ctx, u, func(ctx context.Context) error {
		hw.UserID = u.ID
		return s.workers.Create(ctx, hw)
	})
	if err != nil {
		return nil, err
	}
	u.HealthWorker = hw
	return s.finishSignup(ctx, u, code)
}

// checkAvailable reports a conflict naming email when the existing user
// holds the email, otherwise phone.
func (s *Service) checkAvailable(ctx context.Context, email, phone string) error {
	existing, err := s.users.FindByEmailOrPhone(ctx, email, phone)
	if httpx.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if existing.Email == email {
		return conflictFor("email")
	}
	return conflictFor("phone")
}

// register stores the one-time code, the user and its profile in one
// transaction and returns the plain code.
func (s *Service) register(ctx context.Context, u *User, createProfile func(ctx context.Context) error) (string, error) {
	code, err := s.otp.Generate()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashOTP(code)
	if err != nil {
		return "", err
	}
	o := &OTPVerification{
		Email:     u.Email,
		Phone:     u.Phone,
		CodeHash:  hash,
		ExpiresAt: s.otp.ExpiresAt(s.now()),
		Verified:  s.otp.Bypass,
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.otps.Create(ctx, o); err != nil {
			return fmt.Errorf("store otp: %w", err)
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return createProfile(ctx)
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) finishSignup(ctx context.Context, u *User, code string) (*SignupResult, error) {
	token, err := s.tokens.Issue(u.ID.String(), u.Email, u.UserType)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("user_type", u.UserType).Bool("otp_bypass", s.otp.Bypass).Msg("user registered")

	if !s.otp.Bypass && s.notifier != nil {
		minutes := strconv.Itoa(int(s.otp.Lifetime().Minutes()))
		data := map[string]string{"otp": code, "minutes": minutes}
		if _, err := s.notifier.SendFromTemplate(ctx, notification.TemplateOTP, data, u.Phone); err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("otp delivery failed")
		}
	}
	return &SignupResult{User: u, Token: token, OTPBypass: s.otp.Bypass}, nil
}

// -- Login & OTP --

func (s *Service) Login(ctx context.Context, in *LoginInput) (*User, string, error) {
	if in.Email == "" && in.Phone == "" {
		return nil, "", httpx.Validation("Email or phone is required")
	}
	u, err := s.users.FindByEmailOrPhone(ctx, in.Email, in.Phone)
	if err != nil {
		return nil, "", err
	}
	if err := s.attachProfile(ctx, u, false); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(u.ID.String(), u.Email, u.UserType)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

func (s *Service) VerifyOTP(ctx context.Context, in *VerifyOTPInput) error {
	if in.OTP == "" || (in.Email == "" && in.Phone == "") {
		return httpx.Validation("OTP and either email or phone are required")
	}
	o, err := s.otps.Latest(ctx, in.Email, in.Phone, s.now())
	if err != nil {
		return err
	}
	if !s.codeMatches(o, in.OTP) {
		return httpx.Validation("Invalid OTP")
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.otps.MarkVerified(ctx, o.ID); err != nil {
			return fmt.Errorf("mark otp verified: %w", err)
		}
		if err := s.users.MarkVerified(ctx, o.Email, o.Phone); err != nil {
			return fmt.Errorf("mark user verified: %w", err)
		}
		return nil
	})
}

func (s *Service) codeMatches(o *OTPVerification, code string) bool {
	if s.otp.Bypass {
		return code == s.otp.BypassCode
	}
	return auth.CompareOTP(o.CodeHash, code)
}

// PurgeExpiredOTPs deletes unverified codes past their expiry.
func (s *Service) PurgeExpiredOTPs(ctx context.Context) error {
	n, err := s.otps.PurgeExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("purge otps: %w", err)
	}
	if n > 0 {
		s.logger.Info().Int64("deleted", n).Msg("expired otps purged")
	}
	return nil
}

// -- Profile --

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.attachProfile(ctx, u, true); err != nil {
		return nil, err
	}
	return u, nil
}

// attachProfile loads the role profile of u, and its medical records when
// withRecords is set. A missing profile is not an error.
func (s *Service) attachProfile(ctx context.Context, u *User, withRecords bool) error {
	switch u.UserType {
	case auth.UserTypePatient:
		p, err := s.patients.GetByUserID(ctx, u.ID)
		if httpx.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load patient: %w", err)
		}
		if withRecords && s.records != nil {
			if p.Records, err = s.records.RecordsForPatient(ctx, p.ID); err != nil {
				return fmt.Errorf("load records: %w", err)
			}
		}
		u.Patient = p
	case auth.UserTypeHealthWorker:
		hw, err := s.workers.GetByUserID(ctx, u.ID)
		if httpx.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load health worker: %w", err)
		}
		if withRecords && s.records != nil {
			if hw.RecordsCreated, err = s.records.RecordsByHealthWorker(ctx, hw.ID); err != nil {
				return fmt.Errorf("load records: %w", err)
			}
		}
		u.HealthWorker = hw
	}
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in *ProfileUpdate) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if in.Name != nil || in.Phone != nil {
			if err := s.users.UpdateContact(ctx, u.ID, deref(in.Name), deref(in.Phone)); err != nil {
				return err
			}
		}
		switch u.UserType {
		case auth.UserTypePatient:
			return s.updatePatient(ctx, u.ID, in)
		case auth.UserTypeHealthWorker:
			return s.updateHealthWorker(ctx, u.ID, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

func (s *Service) updatePatient(ctx context.Context, userID uuid.UUID, in *ProfileUpdate) error {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if in.DateOfBirth != nil && *in.DateOfBirth != "" {
		dob, err := parseDate(*in.DateOfBirth)
		if err != nil {
			return err
		}
		p.DateOfBirth = dob
	}
	setIfPresent(&p.Gender, in.Gender)
	setIfPresent(&p.BloodGroup, in.BloodGroup)
	setIfPresent(&p.MedicalHistory, in.MedicalHistory)
	setIfPresent(&p.EmergencyContact, in.EmergencyContact)
	setIfPresent(&p.Address, in.Address)
	if in.Allergies != nil {
		p.Allergies = in.Allergies
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) updateHealthWorker(ctx context.Context, userID uuid.UUID, in *ProfileUpdate) error {
	hw, err := s.workers.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if in.Specialization != nil && *in.Specialization != "" {
		hw.Specialization = *in.Specialization
	}
	if in.Experience != nil {
		hw.Experience = in.Experience
	}
	setIfPresent(&hw.Qualification, in.Qualification)
	setIfPresent(&hw.Hospital, in.Hospital)
	setIfPresent(&hw.Department, in.Department)
	if in.IsActive != nil {
		hw.IsActive = *in.IsActive
	}
	return s.workers.Update(ctx, hw)
}

// -- Lookups used by other contexts --

// EnsurePatient resolves the patient for seed.Phone, creating the user and
// profile when needed, in one conditional upsert.
func (s *Service) EnsurePatient(ctx context.Context, seed PatientSeed) (*Patient, error) {
	if seed.Phone == "" {
		return nil, httpx.Validation("phone is required")
	}
	var p *Patient
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.patients.Ensure(ctx, seed)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure patient: %w", err)
	}
	return p, nil
}

// PatientByPhone returns the user holding phone with its patient profile.
func (s *Service) PatientByPhone(ctx context.Context, phone string) (*User, error) {
	u, err := s.users.FindByEmailOrPhone(ctx, "", phone)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetByUserID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Patient = p
	return u, nil
}

// PatientIDForUser returns the patient profile id of an authenticated user.
func (s *Service) PatientIDForUser(ctx context.Context, userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, httpx.Unauthorized("Invalid or expired token")
	}
	p, err := s.patients.GetByUserID(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// AuthorForUser returns the health worker profile of an authenticated user
// together with the contact details stamped on the records they write.
func (s *Service) AuthorForUser(ctx context.Context, userID string) (*User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, httpx.Unauthorized("Invalid or expired token")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	hw, err := s.workers.GetByUserID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.HealthWorker = hw
	return u, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.users.Stats(ctx)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func setIfPresent(dst **string, v *string) {
	if v != nil && *v != "" {
		val := *v
		*dst = &val
	}
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, httpx.Validation("dateOfBirth must be a date (YYYY-MM-DD)")
}
