package monitoring

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert creates the patient's monitoring row or refreshes it. Nil
	// location, age and health worker phone keep the stored values.
	Upsert(ctx context.Context, m *Monitoring) error
	// List returns every row with its patient, newest update first, and at
	// most alertLimit alerts each. A zero alertLimit loads all alerts.
	List(ctx context.Context, alertLimit int) ([]*Monitoring, error)
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Monitoring, error)
	AddAlert(ctx context.Context, a *Alert) error
}

// Transactor runs fn in a transaction joined by repositories through the
// derived context.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
