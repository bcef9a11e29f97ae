// Package blobstore provides content-addressed storage for patient documents
// and published medical records. Objects are addressed by a CIDv1 computed
// from their bytes, so the same content always yields the same identifier
// regardless of backend.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxUploadSize is the largest document accepted from patients (10 MiB).
const MaxUploadSize = 10 << 20

// AllowedContentTypes lists document MIME types patients may upload.
var AllowedContentTypes = map[string]bool{
	"image/png":          true,
	"image/jpeg":         true,
	"image/jpg":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":       true,
	"application/json": true,
}

// Object describes a stored blob.
type Object struct {
	CID         string    `json:"cid"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is implemented by every backend.
type Store interface {
	Put(ctx context.Context, name, contentType string, content io.Reader) (*Object, error)
	Get(ctx context.Context, cid string) ([]byte, error)
	// URL returns the public gateway URL for cid.
	URL(cid string) string
}

// PutJSON encodes v and stores it as application/json.
func PutJSON(ctx context.Context, s Store, name string, v interface{}) (*Object, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return s.Put(ctx, name, "application/json", bytes.NewReader(raw))
}

// GetJSON fetches cid and decodes it into dest.
func GetJSON(ctx context.Context, s Store, cid string, dest interface{}) error {
	raw, err := s.Get(ctx, cid)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", cid, err)
	}
	return nil
}

var cidEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// cidPrefix is CIDv1, raw codec, sha2-256 multihash of 32 bytes.
var cidPrefix = []byte{0x01, 0x55, 0x12, 0x20}

// ComputeCID returns the base32 CIDv1 ("bafkrei...") of data.
func ComputeCID(data []byte) string {
	sum := sha256.Sum256(data)
	buf := make([]byte, 0, len(cidPrefix)+len(sum))
	buf = append(buf, cidPrefix...)
	buf = append(buf, sum[:]...)
	return "b" + strings.ToLower(cidEncoding.EncodeToString(buf))
}

// GatewayURL joins a gateway base and a cid.
func GatewayURL(gateway, cid string) string {
	return strings.TrimRight(gateway, "/") + "/" + cid
}

func readLimited(content io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

type storedBlob struct {
	object  Object
	content []byte
}

// MemoryStore is a thread-safe in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string]*storedBlob
	gateway string
}

func NewMemoryStore(gateway string) *MemoryStore {
	return &MemoryStore{
		blobs:   make(map[string]*storedBlob),
		gateway: gateway,
	}
}

func (s *MemoryStore) Put(_ context.Context, name, contentType string, content io.Reader) (*Object, error) {
	if name == "" {
		return nil, ErrMissingFileName
	}
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}

	obj := Object{
		CID:         ComputeCID(data),
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	if existing, ok := s.blobs[obj.CID]; ok {
		obj = existing.object
	} else {
		s.blobs[obj.CID] = &storedBlob{object: obj, content: data}
	}
	s.mu.Unlock()

	out := obj
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, cid string) ([]byte, error) {
	s.mu.RLock()
	blob, ok := s.blobs[cid]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(blob.content))
	copy(out, blob.content)
	return out, nil
}

func (s *MemoryStore) URL(cid string) string {
	return GatewayURL(s.gateway, cid)
}

// Len returns the number of distinct blobs held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
