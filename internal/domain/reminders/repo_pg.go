package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankandalui/med-ai-sub001/internal/platform/db"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

func errNotFound() error { return httpx.NotFound("Reminder not found") }

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const reminderCols = `id, patient_id, type, title, description, date, time, frequency, priority,
	status, last_notified, created_at, updated_at`

const reminderColsH = `h.id, h.patient_id, h.type, h.title, h.description, h.date, h.time, h.frequency,
	h.priority, h.status, h.last_notified, h.created_at, h.updated_at`

func (r *repoPG) scanReminder(row pgx.Row, withPhone bool) (*Reminder, error) {
	var m Reminder
	dest := []interface{}{&m.ID, &m.PatientID, &m.Type, &m.Title, &m.Description, &m.Date, &m.Time,
		&m.Frequency, &m.Priority, &m.Status, &m.LastNotified, &m.CreatedAt, &m.UpdatedAt}
	if withPhone {
		dest = append(dest, &m.PatientPhone)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound()
		}
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) Create(ctx context.Context, m *Reminder) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO health_reminders (id, patient_id, type, title, description, date, time,
			frequency, priority, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.Type, m.Title, m.Description, m.Date, m.Time,
		m.Frequency, m.Priority, m.Status,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return r.scanReminder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reminderCols+` FROM health_reminders WHERE id = $1`, id), false)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, status string) ([]*Reminder, error) {
	query := `SELECT ` + reminderCols + ` FROM health_reminders WHERE patient_id = $1`
	args := []interface{}{patientID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY status ASC, date ASC, time ASC`
	return r.query(ctx, false, query, args...)
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Reminder, error) {
	return r.query(ctx, true, `
		SELECT `+reminderColsH+`, u.phone
		FROM health_reminders h
		JOIN patients p ON p.id = h.patient_id
		JOIN users u ON u.id = p.user_id
		WHERE h.status = $1`, StatusActive)
}

func (r *repoPG) query(ctx context.Context, withPhone bool, query string, args ...interface{}) ([]*Reminder, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*Reminder{}
	for rows.Next() {
		m, err := r.scanReminder(rows, withPhone)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, m *Reminder) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE health_reminders SET type = $2, title = $3, description = $4, date = $5, time = $6,
			frequency = $7, priority = $8, status = $9, last_notified = $10, updated_at = NOW()
		WHERE id = $1`,
		m.ID, m.Type, m.Title, m.Description, m.Date, m.Time,
		m.Frequency, m.Priority, m.Status, m.LastNotified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNotFound()
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM health_reminders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNotFound()
	}
	return nil
}

func (r *repoPG) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time, status string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE health_reminders SET last_notified = $2, status = $3, updated_at = NOW()
		WHERE id = $1`, id, at, status)
	return err
}
