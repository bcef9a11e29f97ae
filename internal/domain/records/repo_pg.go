package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankandalui/med-ai-sub001/internal/platform/db"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

// -- Medical Records --

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const recordSelect = `SELECT r.id, r.patient_id, r.health_worker_id, r.diagnosis, r.symptoms, r.treatment,
	r.medications, r.notes, r.blockchain_cid, r.verification_hash, r.created_at, r.updated_at,
	pu.name, pu.phone, p.age, hu.name, hu.phone
	FROM medical_records r
	JOIN patients p ON p.id = r.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN health_workers hw ON hw.id = r.health_worker_id
	JOIN users hu ON hu.id = hw.user_id`

func (r *recordRepoPG) scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord
	err := row.Scan(&m.ID, &m.PatientID, &m.HealthWorkerID, &m.Diagnosis, &m.Symptoms, &m.Treatment,
		&m.Medications, &m.Notes, &m.BlockchainCID, &m.VerificationHash, &m.CreatedAt, &m.UpdatedAt,
		&m.PatientName, &m.PatientPhone, &m.PatientAge, &m.HealthWorkerName, &m.HealthWorkerPhone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound("Medical record not found")
	}
	return &m, err
}

func (r *recordRepoPG) Create(ctx context.Context, m *MedicalRecord) error {
	m.ID = uuid.New()
	if m.Symptoms == nil {
		m.Symptoms = []string{}
	}
	if m.Medications == nil {
		m.Medications = []string{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records (id, patient_id, health_worker_id, diagnosis, symptoms, treatment,
			medications, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.HealthWorkerID, m.Diagnosis, m.Symptoms, m.Treatment,
		m.Medications, m.Notes,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return httpx.NotFound("Patient not found")
	}
	return err
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, recordSelect+` WHERE r.id = $1`, id))
}

func (r *recordRepoPG) GetByCID(ctx context.Context, cid string) (*MedicalRecord, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, recordSelect+` WHERE r.blockchain_cid = $1`, cid))
}

func (r *recordRepoPG) SetPublication(ctx context.Context, id uuid.UUID, cid, hash string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_records SET blockchain_cid = $2, verification_hash = $3, updated_at = NOW()
		WHERE id = $1`, id, cid, hash)
	return err
}

func (r *recordRepoPG) Search(ctx context.Context, term string) ([]*MedicalRecord, error) {
	if term == "" {
		return r.list(ctx, recordSelect+` ORDER BY r.created_at DESC`)
	}
	return r.list(ctx, recordSelect+` WHERE pu.name ILIKE $1 OR r.diagnosis ILIKE $1
		ORDER BY r.created_at DESC`, "%"+term+"%")
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	return r.list(ctx, recordSelect+` WHERE r.patient_id = $1 ORDER BY r.created_at DESC`, patientID)
}

func (r *recordRepoPG) ListByHealthWorker(ctx context.Context, healthWorkerID uuid.UUID) ([]*MedicalRecord, error) {
	return r.list(ctx, recordSelect+` WHERE r.health_worker_id = $1 ORDER BY r.created_at DESC`, healthWorkerID)
}

func (r *recordRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*MedicalRecord{}
	for rows.Next() {
		m, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// -- Emergency Info --

type infoRepoPG struct{ pool *pgxpool.Pool }

func NewEmergencyInfoRepoPG(pool *pgxpool.Pool) EmergencyInfoRepository {
	return &infoRepoPG{pool: pool}
}

func (r *infoRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const infoCols = `id, patient_id, blood_type, allergies, medications, conditions, emergency_contacts,
	doctor_name, doctor_phone, hospital, insurance_info, organ_donor, created_at, updated_at`

func (r *infoRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*EmergencyInfo, error) {
	var e EmergencyInfo
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+infoCols+` FROM emergency_info WHERE patient_id = $1`, patientID,
	).Scan(&e.ID, &e.PatientID, &e.BloodType, &e.Allergies, &e.Medications, &e.Conditions,
		&e.EmergencyContacts, &e.DoctorName, &e.DoctorPhone, &e.Hospital, &e.InsuranceInfo,
		&e.OrganDonor, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *infoRepoPG) Upsert(ctx context.Context, e *EmergencyInfo) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO emergency_info (id, patient_id, blood_type, allergies, medications, conditions,
			emergency_contacts, doctor_name, doctor_phone, hospital, insurance_info, organ_donor)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (patient_id) DO UPDATE SET
			blood_type = EXCLUDED.blood_type,
			allergies = EXCLUDED.allergies,
			medications = EXCLUDED.medications,
			conditions = EXCLUDED.conditions,
			emergency_contacts = EXCLUDED.emergency_contacts,
			doctor_name = EXCLUDED.doctor_name,
			doctor_phone = EXCLUDED.doctor_phone,
			hospital = EXCLUDED.hospital,
			insurance_info = EXCLUDED.insurance_info,
			organ_donor = EXCLUDED.organ_donor,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), e.PatientID, e.BloodType, e.Allergies, e.Medications, e.Conditions,
		e.EmergencyContacts, e.DoctorName, e.DoctorPhone, e.Hospital, e.InsuranceInfo, e.OrganDonor,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return httpx.NotFound("Patient not found")
	}
	return err
}
