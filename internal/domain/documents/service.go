package documents

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ankandalui/med-ai-sub001/internal/platform/blobstore"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

// PatientResolver maps an authenticated user to their patient profile.
type PatientResolver interface {
	PatientIDForUser(ctx context.Context, userID string) (uuid.UUID, error)
}

type Service struct {
	repo     Repository
	store    blobstore.Store
	patients PatientResolver
	logger   zerolog.Logger
}

func NewService(repo Repository, store blobstore.Store, logger zerolog.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger}
}

func (s *Service) SetPatientResolver(p PatientResolver) { s.patients = p }

func (s *Service) List(ctx context.Context, patientID string, f Filter) ([]*Document, error) {
	if patientID != "" {
		id, err := uuid.Parse(patientID)
		if err != nil {
			return nil, httpx.Validation("Invalid patient ID")
		}
		f.PatientID = &id
	}
	if f.Type == "all" {
		f.Type = ""
	}
	return s.repo.List(ctx, f)
}

// ForPatient returns every document uploaded for the patient, newest first.
func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID) ([]*Document, error) {
	return s.repo.List(ctx, Filter{PatientID: &patientID})
}

func (s *Service) Delete(ctx context.Context, id string) (*Document, error) {
	if id == "" {
		return nil, httpx.Validation("Document ID is required")
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, httpx.NotFound("Document not found")
	}
	d, err := s.repo.Delete(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("document_id", d.ID.String()).Msg("document deleted")
	return d, nil
}

// Save records a document already stored under cid. Without an explicit
// patientId the caller's own patient profile is used.
func (s *Service) Save(ctx context.Context, in *SaveInput, callerID string) (*Document, error) {
	if in.CID == "" || in.Title == "" || in.Type == "" || in.FileName == "" || in.FileSize == 0 || in.FileType == "" {
		return nil, httpx.Validation("Missing required fields: cid, title, type, fileName, fileSize, fileType")
	}

	patientID, err := s.resolvePatient(ctx, in.PatientID, callerID)
	if err != nil {
		return nil, err
	}

	d := &Document{
		PatientID:   patientID,
		Title:       in.Title,
		Description: in.Description,
		FileName:    in.FileName,
		FileSize:    in.FileSize,
		FileType:    in.FileType,
		Type:        in.Type,
		Tags:        normalizeTags(in.Tags),
		CID:         in.CID,
		IPFSURL:     in.IPFSURL,
	}
	if d.IPFSURL == "" {
		d.IPFSURL = s.store.URL(in.CID)
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("document_id", d.ID.String()).Str("cid", d.CID).Msg("medical record saved")
	return d, nil
}

func (s *Service) resolvePatient(ctx context.Context, explicit, callerID string) (uuid.UUID, error) {
	if explicit != "" {
		id, err := uuid.Parse(explicit)
		if err != nil {
			return uuid.Nil, httpx.Validation("Invalid patient ID")
		}
		return id, nil
	}
	if callerID == "" || s.patients == nil {
		return uuid.Nil, httpx.Validation("No patient found. Please ensure a patient account exists.")
	}
	id, err := s.patients.PatientIDForUser(ctx, callerID)
	if err != nil {
		if httpx.IsNotFound(err) {
			return uuid.Nil, httpx.Validation("No patient found. Please ensure a patient account exists.")
		}
		return uuid.Nil, err
	}
	return id, nil
}

// Upload stores content in the blob store. When a patient is named the
// upload is also recorded as a document.
func (s *Service) Upload(ctx context.Context, in *UploadInput, content io.Reader) (*UploadResult, error) {
	if in.FileName == "" {
		return nil, httpx.Validation("No file provided")
	}
	if in.Size > blobstore.MaxUploadSize {
		return nil, httpx.Validation("File exceeds the 10 MB limit")
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(in.ContentType, ";")[0]))
	if !blobstore.AllowedContentTypes[contentType] {
		return nil, httpx.Validation("File type " + in.ContentType + " is not allowed")
	}

	obj, err := s.store.Put(ctx, in.FileName, contentType, content)
	if err != nil {
		if errors.Is(err, blobstore.ErrFileTooLarge) {
			return nil, httpx.Validation("File exceeds the 10 MB limit")
		}
		return nil, httpx.Upstream(http.StatusBadGateway, "Failed to upload file", err)
	}

	res := &UploadResult{
		CID:     obj.CID,
		IPFSURL: s.store.URL(obj.CID),
		Name:    in.FileName,
		Size:    obj.Size,
	}
	log := s.logger.With().Str("cid", obj.CID).Logger()
	log.Info().Int64("size", obj.Size).Msg("file uploaded")

	if in.PatientID != "" {
		d, err := s.Save(ctx, &SaveInput{
			CID:         obj.CID,
			Title:       orDefault(in.Title, in.FileName),
			Description: in.Description,
			Type:        orDefault(in.Type, "other"),
			FileName:    in.FileName,
			FileSize:    obj.Size,
			FileType:    contentType,
			IPFSURL:     res.IPFSURL,
			PatientID:   in.PatientID,
		}, "")
		if err != nil {
			return nil, err
		}
		res.DocumentID = &d.ID
	}
	return res, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
