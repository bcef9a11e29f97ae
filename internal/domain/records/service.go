package records

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/domain/documents"
	"github.com/ankandalui/med-ai-sub001/internal/domain/emergency"
	"github.com/ankandalui/med-ai-sub001/internal/domain/monitoring"
	"github.com/ankandalui/med-ai-sub001/internal/domain/reminders"
	"github.com/ankandalui/med-ai-sub001/internal/platform/blobstore"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

const (
	documentVersion = "1.0"
	blockchainLabel = "IPFS-Lighthouse"
	recentWindow    = 7 * 24 * time.Hour
)

// jsTimeLayout matches the millisecond UTC timestamps the hash was first
// defined over.
const jsTimeLayout = "2006-01-02T15:04:05.000Z"

// Directory resolves people owned by the identity context.
type Directory interface {
	PatientByPhone(ctx context.Context, phone string) (*PatientSummary, error)
	AuthorForUser(ctx context.Context, userID string) (*Author, error)
}

// Sources are the other contexts feeding the record views.
type Sources struct {
	Monitoring interface {
		All(ctx context.Context) ([]*monitoring.Monitoring, error)
		ForPatient(ctx context.Context, patientID uuid.UUID) (*monitoring.Monitoring, error)
	}
	Emergencies interface {
		AllAlerts(ctx context.Context) ([]*emergency.Alert, error)
		AlertsForPhone(ctx context.Context, phone string) ([]*emergency.Alert, error)
	}
	Reminders interface {
		ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*reminders.Reminder, error)
	}
	Documents interface {
		ForPatient(ctx context.Context, patientID uuid.UUID) ([]*documents.Document, error)
	}
}

type Service struct {
	records RecordRepository
	infos   EmergencyInfoRepository
	store   blobstore.Store
	people  Directory
	src     Sources
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(records RecordRepository, infos EmergencyInfoRepository, logger zerolog.Logger) *Service {
	return &Service{records: records, infos: infos, logger: logger, now: time.Now}
}

// SetStore enables publishing and verification of records.
func (s *Service) SetStore(store blobstore.Store) { s.store = store }

func (s *Service) SetDirectory(d Directory) { s.people = d }

func (s *Service) SetSources(src Sources) { s.src = src }

// -- Medical Records --

// CreateRecord stores a record written by the calling health worker and
// publishes it to the content store. A failed publish is logged and the
// record is returned without a cid.
func (s *Service) CreateRecord(ctx context.Context, callerID string, in *CreateRecordInput) (*MedicalRecord, error) {
	if in.PatientID == "" || in.Diagnosis == "" {
		return nil, httpx.Validation("Patient ID and diagnosis are required")
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		return nil, httpx.Validation("Invalid patient ID")
	}
	if s.people == nil {
		return nil, httpx.Internal("record authoring is not configured", nil)
	}
	author, err := s.people.AuthorForUser(ctx, callerID)
	if err != nil {
		if httpx.IsNotFound(err) {
			return nil, httpx.Forbidden("Health worker profile not found")
		}
		return nil, err
	}

	r := &MedicalRecord{
		PatientID:      patientID,
		HealthWorkerID: author.HealthWorkerID,
		Diagnosis:      in.Diagnosis,
		Symptoms:       in.Symptoms,
		Treatment:      optional(in.Treatment),
		Medications:    in.Medications,
		Notes:          optional(in.Notes),
	}
	if err := s.records.Create(ctx, r); err != nil {
		return nil, err
	}
	if full, err := s.records.GetByID(ctx, r.ID); err == nil {
		r = full
	}
	log := s.logger.With().Str("record_id", r.ID.String()).Logger()
	log.Info().Str("patient_id", r.PatientID.String()).Msg("medical record created")

	pub, err := s.publish(ctx, r, author)
	if err != nil {
		log.Error().Err(err).Msg("publishing medical record failed")
		return r, nil
	}
	r.BlockchainCID = &pub.CID
	r.VerificationHash = &pub.VerificationHash
	return r, nil
}

func (s *Service) publish(ctx context.Context, r *MedicalRecord, author *Author) (*Publication, error) {
	if s.store == nil {
		return nil, errors.New("no content store configured")
	}
	doc := buildDocument(r, author, s.now())
	obj, err := blobstore.PutJSON(ctx, s.store, fmt.Sprintf("medical-record-%s.json", r.ID), doc)
	if err != nil {
		return nil, err
	}
	hash := doc.Security.VerificationHash
	if err := s.records.SetPublication(ctx, r.ID, obj.CID, hash); err != nil {
		return nil, fmt.Errorf("store cid: %w", err)
	}
	return &Publication{CID: obj.CID, IPFSURL: s.store.URL(obj.CID), VerificationHash: hash}, nil
}

func buildDocument(r *MedicalRecord, author *Author, now time.Time) *Document {
	created := r.CreatedAt.UTC()
	return &Document{
		DocumentType: DocumentTypeMedicalRecord,
		Version:      documentVersion,
		GeneratedAt:  now.UTC(),
		MedicalRecord: DocumentRecord{
			ID:          r.ID,
			Diagnosis:   r.Diagnosis,
			Symptoms:    r.Symptoms,
			Treatment:   r.Treatment,
			Medications: r.Medications,
			Notes:       r.Notes,
			DateCreated: created,
		},
		HealthWorker: DocumentAuthor{
			Name:           author.Name,
			Phone:          author.Phone,
			Specialization: author.Specialization,
			Hospital:       author.Hospital,
		},
		Patient: DocumentPatient{RecordID: r.PatientID, Age: r.PatientAge},
		Security: DocumentSecurity{
			Encrypted:        true,
			Blockchain:       blockchainLabel,
			VerificationHash: VerificationHash(r.ID, r.Diagnosis, created, author.Phone),
		},
	}
}

// VerificationHash is sha256("<id>-<diagnosis>-<createdAt>-<hwPhone>") in hex.
func VerificationHash(id uuid.UUID, diagnosis string, createdAt time.Time, hwPhone string) string {
	payload := fmt.Sprintf("%s-%s-%s-%s", id, diagnosis, createdAt.UTC().Format(jsTimeLayout), hwPhone)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Verify fetches a published record and checks its hash.
func (s *Service) Verify(ctx context.Context, cid string) (*Verification, error) {
	if cid == "" {
		return nil, httpx.Validation("CID is required")
	}
	if s.store == nil {
		return nil, httpx.Internal("no content store configured", nil)
	}

	raw, err := s.store.Get(ctx, cid)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, httpx.NotFound("Medical record not found")
	}
	if err != nil {
		return nil, httpx.Upstream(http.StatusBadGateway, "Failed to fetch medical record", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil || doc.DocumentType != DocumentTypeMedicalRecord {
		return nil, invalidDocument()
	}

	v := &Verification{Document: &doc}
	want := VerificationHash(doc.MedicalRecord.ID, doc.MedicalRecord.Diagnosis,
		doc.MedicalRecord.DateCreated, doc.HealthWorker.Phone)
	v.HashValid = want == doc.Security.VerificationHash

	stored, err := s.records.GetByCID(ctx, cid)
	if err != nil && !httpx.IsNotFound(err) {
		return nil, err
	}
	if stored != nil && stored.VerificationHash != nil {
		v.Matches = *stored.VerificationHash == doc.Security.VerificationHash
	}
	return v, nil
}

func invalidDocument() error {
	return &httpx.Error{
		Kind:    httpx.KindValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: "Invalid medical record document type",
	}
}

// RecordsForPatient returns the patient's records, newest first.
func (s *Service) RecordsForPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	return s.records.ListByPatient(ctx, patientID)
}

// RecordsByHealthWorker returns the records a health worker wrote.
func (s *Service) RecordsByHealthWorker(ctx context.Context, healthWorkerID uuid.UUID) ([]*MedicalRecord, error) {
	return s.records.ListByHealthWorker(ctx, healthWorkerID)
}

// -- Merged View --

// Merged combines medical records, monitoring rows and emergency alerts into
// one list sorted by date, newest first. Counts are taken after the search
// and before the type filter.
func (s *Service) Merged(ctx context.Context, f MergedFilter) (*MergedView, error) {
	recs, err := s.records.Search(ctx, f.Search)
	if err != nil {
		return nil, err
	}
	var mons []*monitoring.Monitoring
	if s.src.Monitoring != nil {
		if mons, err = s.src.Monitoring.All(ctx); err != nil {
			return nil, err
		}
	}
	var alerts []*emergency.Alert
	if s.src.Emergencies != nil {
		if alerts, err = s.src.Emergencies.AllAlerts(ctx); err != nil {
			return nil, err
		}
	}

	view := &MergedView{Entries: []*Entry{}}
	for _, r := range recs {
		view.Entries = append(view.Entries, recordEntry(r))
		view.MedicalRecords++
	}
	for _, m := range mons {
		e := monitoringEntry(m)
		if !matches(e, f.Search) {
			continue
		}
		view.Entries = append(view.Entries, e)
		view.MonitoringRecords++
	}
	for _, a := range alerts {
		e := alertEntry(a)
		if !matches(e, f.Search) {
			continue
		}
		view.Entries = append(view.Entries, e)
		view.EmergencyAlerts++
	}

	view.Entries = filterType(view.Entries, f.Type, s.now())
	sort.SliceStable(view.Entries, func(i, j int) bool {
		return view.Entries[i].Date.After(view.Entries[j].Date)
	})
	return view, nil
}

func matches(e *Entry, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(e.PatientName), term) ||
		strings.Contains(strings.ToLower(e.Diagnosis), term)
}

func filterType(entries []*Entry, typ string, now time.Time) []*Entry {
	if typ == "" || typ == "all" {
		return entries
	}
	out := []*Entry{}
	cutoff := now.Add(-recentWindow)
	for _, e := range entries {
		if typ == "recent" {
			if !e.Date.Before(cutoff) {
				out = append(out, e)
			}
			continue
		}
		if e.RecordType == typ {
			out = append(out, e)
		}
	}
	return out
}

func recordEntry(r *MedicalRecord) *Entry {
	return &Entry{
		ID:                r.ID,
		PatientName:       r.PatientName,
		PatientID:         r.PatientID,
		PatientPhone:      r.PatientPhone,
		RecordType:        TypeMedicalRecord,
		Title:             "Medical Consultation - " + r.Diagnosis,
		Description:       strings.Join(r.Symptoms, ", "),
		Diagnosis:         r.Diagnosis,
		Treatment:         r.Treatment,
		Medications:       r.Medications,
		Notes:             r.Notes,
		Date:              r.CreatedAt,
		LastAccessed:      r.UpdatedAt,
		Status:            "active",
		HealthWorker:      r.HealthWorkerName,
		HealthWorkerPhone: r.HealthWorkerPhone,
		BlockchainCID:     r.BlockchainCID,
	}
}

func monitoringEntry(m *monitoring.Monitoring) *Entry {
	e := &Entry{
		ID:                m.ID,
		PatientID:         m.PatientID,
		RecordType:        TypeMonitoring,
		Title:             "Patient Monitoring - " + strings.ToUpper(m.Status),
		Description:       m.Symptoms,
		Diagnosis:         m.Diagnosis,
		Symptoms:          m.Symptoms,
		Location:          deref(m.Location),
		Age:               m.Age,
		EmergencyID:       deref(m.EmergencyID),
		Status:            m.Status,
		HeartRate:         m.HeartRate,
		BloodPressure:     deref(m.BloodPressure),
		Temperature:       m.Temperature,
		Weight:            m.Weight,
		Date:              m.CreatedAt,
		LastAccessed:      m.UpdatedAt,
		HealthWorkerPhone: deref(m.HealthWorkerPhone),
		Alerts:            m.Alerts,
	}
	if e.Description == "" {
		e.Description = "Continuous monitoring"
	}
	if m.Patient != nil {
		e.PatientName = m.Patient.Name
		e.PatientPhone = m.Patient.Phone
	}
	return e
}

func alertEntry(a *emergency.Alert) *Entry {
	return &Entry{
		ID:                a.ID,
		PatientName:       a.PatientName,
		PatientID:         a.ID,
		PatientPhone:      a.PatientPhone,
		RecordType:        TypeEmergency,
		Title:             "Emergency Alert - " + a.EmergencyID,
		Description:       a.Symptoms,
		Diagnosis:         a.Diagnosis,
		Symptoms:          a.Symptoms,
		EmergencyID:       a.EmergencyID,
		Status:            strings.ToLower(a.Status),
		Date:              a.SentAt,
		LastAccessed:      a.SentAt,
		HealthWorkerPhone: a.HealthWorkerPhone,
		HospitalPhone:     a.HospitalPhone,
		AmbulancePhone:    a.AmbulancePhone,
	}
}

// -- Patient View --

// PatientRecords gathers everything held about the patient with phone.
func (s *Service) PatientRecords(ctx context.Context, phone string) (*PatientRecords, error) {
	if phone == "" {
		return nil, httpx.Validation("Phone number is required")
	}
	if s.people == nil {
		return nil, httpx.Internal("patient directory is not configured", nil)
	}
	p, err := s.people.PatientByPhone(ctx, phone)
	if err != nil {
		if httpx.IsNotFound(err) {
			return nil, httpx.NotFound("Patient not found")
		}
		return nil, err
	}

	out := &PatientRecords{
		Patient:           p,
		EmergencyAlerts:   []*emergency.Alert{},
		HealthReminders:   []*reminders.Reminder{},
		UploadedDocuments: []*documents.Document{},
	}
	if out.MedicalRecords, err = s.records.ListByPatient(ctx, p.ID); err != nil {
		return nil, err
	}
	if out.EmergencyInfo, err = s.infos.GetByPatient(ctx, p.ID); err != nil {
		return nil, err
	}
	if s.src.Monitoring != nil {
		if out.Monitoring, err = s.src.Monitoring.ForPatient(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	if s.src.Emergencies != nil {
		if out.EmergencyAlerts, err = s.src.Emergencies.AlertsForPhone(ctx, phone); err != nil {
			return nil, err
		}
	}
	if s.src.Reminders != nil {
		if out.HealthReminders, err = s.src.Reminders.ActiveForPatient(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	if s.src.Documents != nil {
		if out.UploadedDocuments, err = s.src.Documents.ForPatient(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// -- Emergency Info --

// EmergencyInfo returns the patient's emergency card, or nil when none is
// stored.
func (s *Service) EmergencyInfo(ctx context.Context, patientID string) (*EmergencyInfo, error) {
	id, err := parsePatientID(patientID)
	if err != nil {
		return nil, err
	}
	return s.infos.GetByPatient(ctx, id)
}

func (s *Service) SaveEmergencyInfo(ctx context.Context, in *EmergencyInfoInput) (*EmergencyInfo, error) {
	id, err := parsePatientID(in.PatientID)
	if err != nil {
		return nil, err
	}
	info := &EmergencyInfo{
		PatientID:         id,
		BloodType:         optional(in.BloodType),
		Allergies:         nonNil(in.Allergies),
		Medications:       nonNil(in.Medications),
		Conditions:        nonNil(in.Conditions),
		EmergencyContacts: in.EmergencyContacts,
		DoctorName:        optional(in.DoctorName),
		DoctorPhone:       optional(in.DoctorPhone),
		Hospital:          optional(in.Hospital),
		InsuranceInfo:     optional(in.InsuranceInfo),
		OrganDonor:        in.OrganDonor,
	}
	if len(info.EmergencyContacts) == 0 || string(info.EmergencyContacts) == "null" {
		info.EmergencyContacts = json.RawMessage("[]")
	}
	if err := s.infos.Upsert(ctx, info); err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", id.String()).Msg("emergency info saved")
	return info, nil
}

func parsePatientID(v string) (uuid.UUID, error) {
	if v == "" {
		return uuid.Nil, httpx.Validation("Patient ID is required")
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, httpx.Validation("Invalid patient ID")
	}
	return id, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
