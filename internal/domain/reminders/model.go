package reminders

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"

	FrequencyOnce    = "once"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"

	PriorityMedium = "medium"
)

// Layouts of the Date and Time columns.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Reminder maps to the health_reminders table.
type Reminder struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patientId"`
	Type         string     `db:"type" json:"type"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Date         string     `db:"date" json:"date"`
	Time         string     `db:"time" json:"time"`
	Frequency    string     `db:"frequency" json:"frequency"`
	Priority     string     `db:"priority" json:"priority"`
	Status       string     `db:"status" json:"status"`
	LastNotified *time.Time `db:"last_notified" json:"lastNotified"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`

	// PatientPhone is joined from users for dispatch.
	PatientPhone string `json:"-"`
}

// CreateInput is the body of POST /patient/reminders.
type CreateInput struct {
	PatientID   string `json:"patientId"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Frequency   string `json:"frequency"`
	Priority    string `json:"priority"`
}

// UpdateInput is the body of PUT /patient/reminders. Nil fields are left
// unchanged.
type UpdateInput struct {
	ID          string  `json:"id"`
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Frequency   *string `json:"frequency"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// DueAt returns the latest occurrence of r at or before now. ok is false
// when the first occurrence is still in the future or the schedule does not
// parse.
func (r *Reminder) DueAt(now time.Time) (due time.Time, ok bool) {
	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, now.Location())
	if err != nil || start.After(now) {
		return time.Time{}, false
	}

	switch r.Frequency {
	case FrequencyDaily:
		return latestStep(start, now, 0, 1), true
	case FrequencyWeekly:
		return latestStep(start, now, 0, 7), true
	case FrequencyMonthly:
		return latestStep(start, now, 1, 0), true
	default:
		return start, true
	}
}

// latestStep advances start by months/days steps while the next step is not
// after now.
func latestStep(start, now time.Time, months, days int) time.Time {
	if days > 0 && months == 0 {
		step := time.Duration(days) * 24 * time.Hour
		n := int(now.Sub(start) / step)
		cur := start.AddDate(0, 0, n*days)
		if cur.After(now) {
			cur = cur.AddDate(0, 0, -days)
		}
		return cur
	}
	cur := start
	for i := 1; ; i++ {
		next := start.AddDate(0, i*months, i*days)
		if next.After(now) {
			return cur
		}
		cur = next
	}
}

// Pending reports whether r has an occurrence due that has not been
// notified yet.
func (r *Reminder) Pending(now time.Time) (time.Time, bool) {
	if r.Status != StatusActive {
		return time.Time{}, false
	}
	due, ok := r.DueAt(now)
	if !ok {
		return time.Time{}, false
	}
	if r.LastNotified != nil && !r.LastNotified.Before(due) {
		return time.Time{}, false
	}
	return due, true
}
