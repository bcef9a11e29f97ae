package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserRepository interface {
	// Create inserts the user. Duplicate email or phone is a conflict.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByEmailOrPhone returns the first user matching either non-empty key.
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*User, error)
	UpdateContact(ctx context.Context, id uuid.UUID, name, phone string) error
	MarkVerified(ctx context.Context, email, phone string) error
	Stats(ctx context.Context) (*Stats, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Ensure upserts the user keyed by phone and then the patient keyed by
	// user, returning the patient.
	Ensure(ctx context.Context, seed PatientSeed) (*Patient, error)
}

type HealthWorkerRepository interface {
	// Create inserts the profile. A duplicate license number is a conflict.
	Create(ctx context.Context, hw *HealthWorker) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*HealthWorker, error)
	LicenseExists(ctx context.Context, license string) (bool, error)
	Update(ctx context.Context, hw *HealthWorker) error
}

type OTPRepository interface {
	Create(ctx context.Context, o *OTPVerification) error
	// Latest returns the newest unverified code for email or phone that is
	// still valid at now.
	Latest(ctx context.Context, email, phone string, now time.Time) (*OTPVerification, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	// PurgeExpired deletes unverified codes that expired before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Transactor runs fn in a transaction joined by repositories through the
// derived context.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
