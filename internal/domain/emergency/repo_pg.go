package emergency

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankandalui/med-ai-sub001/internal/platform/db"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewAlertRepoPG(pool *pgxpool.Pool) AlertRepository { return &alertRepoPG{pool: pool} }

func (r *alertRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const alertCols = `id, emergency_id, patient_name, patient_phone, symptoms, diagnosis,
	health_worker_phone, hospital_phone, ambulance_phone, status, sent_at, created_at, updated_at`

func (r *alertRepoPG) scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.EmergencyID, &a.PatientName, &a.PatientPhone, &a.Symptoms, &a.Diagnosis,
		&a.HealthWorkerPhone, &a.HospitalPhone, &a.AmbulancePhone, &a.Status, &a.SentAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound("Emergency not found")
	}
	return &a, err
}

func (r *alertRepoPG) Create(ctx context.Context, a *Alert) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO emergency_alerts (id, emergency_id, patient_name, patient_phone, symptoms, diagnosis,
			health_worker_phone, hospital_phone, ambulance_phone, status, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		a.ID, a.EmergencyID, a.PatientName, a.PatientPhone, a.Symptoms, a.Diagnosis,
		a.HealthWorkerPhone, a.HospitalPhone, a.AmbulancePhone, a.Status, a.SentAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err, "emergency_alerts_emergency_id_key") {
		return httpx.Conflict("An emergency with this emergencyId already exists", "emergencyId")
	}
	return err
}

func (r *alertRepoPG) GetByEmergencyID(ctx context.Context, emergencyID string) (*Alert, error) {
	return r.scanAlert(r.conn(ctx).QueryRow(ctx,
		`SELECT `+alertCols+` FROM emergency_alerts WHERE emergency_id = $1`, emergencyID))
}

func (r *alertRepoPG) UpdateStatus(ctx context.Context, emergencyID, status string) (*Alert, error) {
	return r.scanAlert(r.conn(ctx).QueryRow(ctx, `
		UPDATE emergency_alerts SET status = $2, updated_at = NOW()
		WHERE emergency_id = $1
		RETURNING `+alertCols, emergencyID, status))
}

func (r *alertRepoPG) List(ctx context.Context, f ListFilter) ([]*Alert, error) {
	query := `SELECT ` + alertCols + ` FROM emergency_alerts WHERE 1=1`
	var args []interface{}
	idx := 1

	switch {
	case f.EmergencyID != "":
		query += fmt.Sprintf(" AND emergency_id = $%d", idx)
		args = append(args, f.EmergencyID)
		idx++
	case f.PatientPhone != "":
		query += fmt.Sprintf(" AND patient_phone = $%d", idx)
		args = append(args, f.PatientPhone)
		idx++
	case f.Status != "":
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}

	query += " ORDER BY sent_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, f.Limit)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Alert
	for rows.Next() {
		a, err := r.scanAlert(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
