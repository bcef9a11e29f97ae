package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// usersTable mimics the users_email_key and users_phone_key constraints.
type usersTable struct {
	byEmail map[string]uuid.UUID
	byPhone map[string]uuid.UUID
}

func newUsersTable() *usersTable {
	return &usersTable{byEmail: map[string]uuid.UUID{}, byPhone: map[string]uuid.UUID{}}
}

type idRow struct {
	id  uuid.UUID
	err error
}

func (r idRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*uuid.UUID)) = r.id
	return nil
}

func (u *usersTable) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (u *usersTable) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (u *usersTable) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "INSERT INTO users"):
		id, email, phone := args[0].(uuid.UUID), args[1].(string), args[2].(string)
		_, emailTaken := u.byEmail[email]
		_, phoneTaken := u.byPhone[phone]
		if emailTaken || phoneTaken {
			return idRow{err: pgx.ErrNoRows}
		}
		u.byEmail[email] = id
		u.byPhone[phone] = id
		return idRow{id: id}
	case strings.Contains(sql, "FROM users WHERE phone"):
		id, ok := u.byPhone[args[0].(string)]
		if !ok {
			return idRow{err: pgx.ErrNoRows}
		}
		return idRow{id: id}
	}
	return idRow{err: errors.New("unexpected statement")}
}

func TestEnsureUser_CreatesThenReuses(t *testing.T) {
	users := newUsersTable()
	ctx := context.Background()

	first, err := ensureUser(ctx, users, PatientSeed{Phone: "9990001111", Email: "emg-1@emergency.temp", Name: "Asha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ensureUser(ctx, users, PatientSeed{Phone: "9990001111", Email: "emg-2@emergency.temp", Name: "Asha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected the same user for one phone, got %s and %s", first, second)
	}
	if len(users.byPhone) != 1 {
		t.Errorf("expected 1 user, got %d", len(users.byPhone))
	}
}

func TestEnsureUser_PlaceholderEmailTakenByAnotherPhone(t *testing.T) {
	users := newUsersTable()
	ctx := context.Background()

	// EMG-A and emg-a lower-case to the same placeholder address.
	a, err := ensureUser(ctx, users, PatientSeed{Phone: "9990001111", Email: "emg-a@emergency.temp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ensureUser(ctx, users, PatientSeed{Phone: "9990002222", Email: "emg-a@emergency.temp"})
	if err != nil {
		t.Fatalf("expected fallback email to be used, got %v", err)
	}
	if a == b {
		t.Error("expected distinct users for distinct phones")
	}
	if users.byEmail["9990002222@patient.temp"] != b {
		t.Errorf("expected phone-derived email for second user, have %v", users.byEmail)
	}
}

func TestEnsureUser_AllEmailsTaken(t *testing.T) {
	users := newUsersTable()
	users.byEmail["emg-a@emergency.temp"] = uuid.New()
	users.byEmail["9990002222@patient.temp"] = uuid.New()

	_, err := ensureUser(context.Background(), users, PatientSeed{Phone: "9990002222", Email: "emg-a@emergency.temp"})
	if err == nil {
		t.Fatal("expected error when every candidate email is taken")
	}
}

func TestUserEmailCandidates(t *testing.T) {
	got := userEmailCandidates(PatientSeed{Phone: "EMG-17", Email: "emg-1@emergency.temp"})
	if len(got) != 2 || got[0] != "emg-1@emergency.temp" || got[1] != "emg-17@patient.temp" {
		t.Errorf("unexpected candidates %v", got)
	}

	got = userEmailCandidates(PatientSeed{Phone: "9990001111"})
	if len(got) != 1 || got[0] != "9990001111@patient.temp" {
		t.Errorf("unexpected candidates without email %v", got)
	}
}
