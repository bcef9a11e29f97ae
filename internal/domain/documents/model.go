package documents

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document maps to the uploaded_documents table.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patientId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	FileName    string    `db:"file_name" json:"fileName"`
	FileSize    int64     `db:"file_size" json:"fileSize"`
	FileType    string    `db:"file_type" json:"fileType"`
	Type        string    `db:"type" json:"type"`
	Tags        []string  `db:"tags" json:"tags"`
	CID         string    `db:"cid" json:"cid"`
	IPFSURL     string    `db:"ipfs_url" json:"ipfsUrl"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// View is the shape the document locker renders.
type View struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Date          string    `json:"date"`
	Size          string    `json:"size"`
	Encrypted     bool      `json:"encrypted"`
	IPFSHash      string    `json:"ipfsHash"`
	LighthouseCID string    `json:"lighthouse_cid"`
	UploadedBy    string    `json:"uploadedBy"`
	Tags          []string  `json:"tags"`
	IsShared      bool      `json:"isShared"`
	FileName      string    `json:"fileName"`
	FileType      string    `json:"fileType"`
	URL           string    `json:"url"`
	IPFSURL       string    `json:"ipfsUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (d *Document) View() *View {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &View{
		ID:            d.ID,
		Type:          d.Type,
		Title:         d.Title,
		Description:   d.Description,
		Date:          d.CreatedAt.UTC().Format("2006-01-02"),
		Size:          FormatSize(d.FileSize),
		Encrypted:     true,
		IPFSHash:      d.CID,
		LighthouseCID: d.CID,
		UploadedBy:    "Patient",
		Tags:          tags,
		FileName:      d.FileName,
		FileType:      d.FileType,
		URL:           d.IPFSURL,
		IPFSURL:       d.IPFSURL,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// FormatSize renders a byte count in megabytes with two decimals.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}

// Filter selects documents. A nil PatientID lists every patient's documents.
type Filter struct {
	PatientID *uuid.UUID
	Type      string
	Search    string
	Limit     int
}

// SaveInput is the body of POST /patient/save-medical-record.
type SaveInput struct {
	CID         string   `json:"cid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
	FileName    string   `json:"fileName"`
	FileSize    int64    `json:"fileSize"`
	FileType    string   `json:"fileType"`
	IPFSURL     string   `json:"ipfsUrl"`
	PatientID   string   `json:"patientId"`
}

// UploadInput describes a file posted to /patient/upload-to-lighthouse.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	PatientID   string
	Title       string
	Type        string
	Description string
}

// UploadResult is returned by Upload. DocumentID is set when the upload was
// also recorded against a patient.
type UploadResult struct {
	CID        string     `json:"cid"`
	IPFSURL    string     `json:"ipfsUrl"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	DocumentID *uuid.UUID `json:"documentId,omitempty"`
}
