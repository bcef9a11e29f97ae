package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	// ListByPatient orders by status, date, then time, ascending. An empty
	// status lists all.
	ListByPatient(ctx context.Context, patientID uuid.UUID, status string) ([]*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListActive returns every active reminder with the patient phone set.
	ListActive(ctx context.Context) ([]*Reminder, error)
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time, status string) error
}
