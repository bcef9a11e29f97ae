package emergency

import (
	"context"

	"github.com/google/uuid"
)

type AlertRepository interface {
	// Create inserts the alert and assigns its ID. A duplicate emergency ID
	// is reported as a conflict.
	Create(ctx context.Context, a *Alert) error
	GetByEmergencyID(ctx context.Context, emergencyID string) (*Alert, error)
	// UpdateStatus returns the updated alert, or a not-found error when no
	// alert carries emergencyID.
	UpdateStatus(ctx context.Context, emergencyID, status string) (*Alert, error)
	List(ctx context.Context, f ListFilter) ([]*Alert, error)
}

// PatientDirectory resolves or creates the patient behind an emergency in a
// single conditional upsert.
type PatientDirectory interface {
	EnsurePatient(ctx context.Context, seed PatientSeed) (uuid.UUID, error)
}

// CaseBoard opens or refreshes the health-worker dashboard entry for a
// critical patient and raises its alert.
type CaseBoard interface {
	OpenCriticalCase(ctx context.Context, cc CriticalCase) error
}

// Transactor runs fn in a transaction joined by repositories through the
// derived context.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
