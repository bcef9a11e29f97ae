package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/ankandalui/med-ai-sub001/internal/domain/emergency"
	"github.com/ankandalui/med-ai-sub001/internal/domain/identity"
	"github.com/ankandalui/med-ai-sub001/internal/domain/records"
)

// identityLookups is the part of identity.Service the adapters below need.
type identityLookups interface {
	EnsurePatient(ctx context.Context, seed identity.PatientSeed) (*identity.Patient, error)
	PatientByPhone(ctx context.Context, phone string) (*identity.User, error)
	AuthorForUser(ctx context.Context, userID string) (*identity.User, error)
}

// patientDirectory adapts identity to emergency.PatientDirectory, avoiding an
// import of identity from the triage packages.
type patientDirectory struct {
	svc identityLookups
}

func (d *patientDirectory) EnsurePatient(ctx context.Context, seed emergency.PatientSeed) (uuid.UUID, error) {
	p, err := d.svc.EnsurePatient(ctx, identity.PatientSeed{
		Phone:   seed.Phone,
		Email:   seed.Email,
		Name:    seed.Name,
		Age:     seed.Age,
		Address: seed.Address,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// recordDirectory adapts identity to records.Directory.
type recordDirectory struct {
	svc identityLookups
}

func (d *recordDirectory) PatientByPhone(ctx context.Context, phone string) (*records.PatientSummary, error) {
	u, err := d.svc.PatientByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	out := &records.PatientSummary{
		Name:  u.Name,
		Phone: u.Phone,
		Email: u.Email,
	}
	if u.Patient != nil {
		out.ID = u.Patient.ID
		out.Age = u.Patient.Age
		out.Address = u.Patient.Address
	}
	return out, nil
}

func (d *recordDirectory) AuthorForUser(ctx context.Context, userID string) (*records.Author, error) {
	u, err := d.svc.AuthorForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &records.Author{
		Name:  u.Name,
		Phone: u.Phone,
	}
	if hw := u.HealthWorker; hw != nil {
		out.HealthWorkerID = hw.ID
		out.Specialization = hw.Specialization
		out.Hospital = hw.Hospital
	}
	return out, nil
}
