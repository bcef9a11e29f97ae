package monitoring

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankandalui/med-ai-sub001/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const monCols = `m.id, m.patient_id, m.symptoms, m.diagnosis, m.status, m.emergency_id,
	m.health_worker_phone, m.location, m.age, m.heart_rate, m.blood_pressure, m.temperature,
	m.weight, m.created_at, m.updated_at,
	u.id, u.name, u.phone, u.email, p.emergency_contact`

const monFrom = ` FROM patient_monitoring m
	JOIN patients p ON p.id = m.patient_id
	JOIN users u ON u.id = p.user_id`

func (r *repoPG) scanMonitoring(row pgx.Row) (*Monitoring, error) {
	var m Monitoring
	var p PatientRef
	err := row.Scan(&m.ID, &m.PatientID, &m.Symptoms, &m.Diagnosis, &m.Status, &m.EmergencyID,
		&m.HealthWorkerPhone, &m.Location, &m.Age, &m.HeartRate, &m.BloodPressure, &m.Temperature,
		&m.Weight, &m.CreatedAt, &m.UpdatedAt,
		&p.ID, &p.Name, &p.Phone, &p.Email, &p.EmergencyContact)
	if err != nil {
		return nil, err
	}
	m.Patient = &p
	return &m, nil
}

func (r *repoPG) Upsert(ctx context.Context, m *Monitoring) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_monitoring (id, patient_id, symptoms, diagnosis, status, emergency_id,
			health_worker_phone, location, age, heart_rate, blood_pressure, temperature, weight)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (patient_id) DO UPDATE SET
			symptoms = EXCLUDED.symptoms,
			diagnosis = EXCLUDED.diagnosis,
			status = EXCLUDED.status,
			emergency_id = EXCLUDED.emergency_id,
			health_worker_phone = COALESCE(EXCLUDED.health_worker_phone, patient_monitoring.health_worker_phone),
			location = COALESCE(EXCLUDED.location, patient_monitoring.location),
			age = COALESCE(EXCLUDED.age, patient_monitoring.age),
			heart_rate = EXCLUDED.heart_rate,
			blood_pressure = EXCLUDED.blood_pressure,
			temperature = EXCLUDED.temperature,
			weight = EXCLUDED.weight,
			updated_at = NOW()
		RETURNING id, health_worker_phone, location, age, created_at, updated_at`,
		uuid.New(), m.PatientID, m.Symptoms, m.Diagnosis, m.Status, m.EmergencyID,
		m.HealthWorkerPhone, m.Location, m.Age, m.HeartRate, m.BloodPressure, m.Temperature, m.Weight,
	).Scan(&m.ID, &m.HealthWorkerPhone, &m.Location, &m.Age, &m.CreatedAt, &m.UpdatedAt)
}

func (r *repoPG) List(ctx context.Context, alertLimit int) ([]*Monitoring, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+monCols+monFrom+` ORDER BY m.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Monitoring
	var ids []uuid.UUID
	for rows.Next() {
		m, err := r.scanMonitoring(rows)
		if err != nil {
			return nil, err
		}
		m.Alerts = []*Alert{}
		items = append(items, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	alerts, err := r.alertsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Monitoring, len(items))
	for _, m := range items {
		byID[m.ID] = m
	}
	for _, a := range alerts {
		m := byID[a.MonitoringID]
		if m == nil || (alertLimit > 0 && len(m.Alerts) >= alertLimit) {
			continue
		}
		m.Alerts = append(m.Alerts, a)
	}
	return items, nil
}

func (r *repoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Monitoring, error) {
	m, err := r.scanMonitoring(r.conn(ctx).QueryRow(ctx,
		`SELECT `+monCols+monFrom+` WHERE m.patient_id = $1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Alerts, err = r.alertsFor(ctx, []uuid.UUID{m.ID})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// alertsFor loads the alerts of the given monitoring rows, newest first.
func (r *repoPG) alertsFor(ctx context.Context, ids []uuid.UUID) ([]*Alert, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, monitoring_id, type, message, is_read, created_at
		FROM patient_alerts WHERE monitoring_id = ANY($1)
		ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*Alert{}
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.MonitoringID, &a.Type, &a.Message, &a.IsRead, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) AddAlert(ctx context.Context, a *Alert) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_alerts (id, monitoring_id, type, message, is_read)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.MonitoringID, a.Type, a.Message, a.IsRead,
	).Scan(&a.CreatedAt)
}
