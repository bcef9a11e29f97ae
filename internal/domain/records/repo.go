package records

import (
	"context"

	"github.com/google/uuid"
)

type RecordRepository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	// GetByID loads the record with patient and health worker details.
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	GetByCID(ctx context.Context, cid string) (*MedicalRecord, error)
	SetPublication(ctx context.Context, id uuid.UUID, cid, hash string) error
	// Search lists records newest first. A non-empty term matches patient
	// name or diagnosis, case-insensitive.
	Search(ctx context.Context, term string) ([]*MedicalRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	ListByHealthWorker(ctx context.Context, healthWorkerID uuid.UUID) ([]*MedicalRecord, error)
}

type EmergencyInfoRepository interface {
	// GetByPatient returns nil without error when none is stored.
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*EmergencyInfo, error)
	Upsert(ctx context.Context, info *EmergencyInfo) error
}
