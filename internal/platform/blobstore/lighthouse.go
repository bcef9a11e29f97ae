package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const DefaultLighthouseNode = "https://node.lighthouse.storage"

type LighthouseConfig struct {
	APIKey  string
	Gateway string
	// NodeURL overrides DefaultLighthouseNode.
	NodeURL string
	Timeout time.Duration
}

// LighthouseStore pins blobs on IPFS through the Lighthouse API and reads
// them back through the configured gateway.
type LighthouseStore struct {
	apiKey  string
	gateway string
	node    string
	client  *http.Client
}

func NewLighthouseStore(cfg LighthouseConfig) *LighthouseStore {
	node := cfg.NodeURL
	if node == "" {
		node = DefaultLighthouseNode
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LighthouseStore{
		apiKey:  cfg.APIKey,
		gateway: cfg.Gateway,
		node:    node,
		client:  &http.Client{Timeout: timeout},
	}
}

type lighthouseAddResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

func (s *LighthouseStore) Put(ctx context.Context, name, contentType string, content io.Reader) (*Object, error) {
	if name == "" {
		return nil, ErrMissingFileName
	}
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.node+"/api/v0/add?cid-version=1", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lighthouse upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lighthouse upload: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out lighthouseAddResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode lighthouse response: %w", err)
	}
	if out.Hash == "" {
		return nil, fmt.Errorf("lighthouse upload: response has no hash")
	}

	size := int64(len(data))
	if n, err := strconv.ParseInt(out.Size, 10, 64); err == nil && n > 0 {
		size = n
	}

	return &Object{
		CID:         out.Hash,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *LighthouseStore) Get(ctx context.Context, cid string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(cid), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("gateway fetch %s: status %d", cid, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("gateway read %s: %w", cid, err)
	}
	if int64(len(data)) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func (s *LighthouseStore) URL(cid string) string {
	return GatewayURL(s.gateway, cid)
}
