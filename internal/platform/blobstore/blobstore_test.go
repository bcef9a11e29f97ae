package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCID_Deterministic(t *testing.T) {
	a := ComputeCID([]byte("hello"))
	b := ComputeCID([]byte("hello"))
	c := ComputeCID([]byte("hello!"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "bafkrei"), "unexpected cid %s", a)
	assert.Len(t, a, 59)
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "https://gw/ipfs/abc", GatewayURL("https://gw/ipfs/", "abc"))
	assert.Equal(t, "https://gw/ipfs/abc", GatewayURL("https://gw/ipfs", "abc"))
}

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore("https://gateway.example/ipfs")
	ctx := context.Background()

	obj, err := s.Put(ctx, "report.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, ComputeCID([]byte("pdf-bytes")), obj.CID)
	assert.Equal(t, int64(9), obj.Size)
	assert.Equal(t, "https://gateway.example/ipfs/"+obj.CID, s.URL(obj.CID))

	data, err := s.Get(ctx, obj.CID)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))
}

func TestMemoryStore_SameContentSameCID(t *testing.T) {
	s := NewMemoryStore("")
	ctx := context.Background()

	a, err := s.Put(ctx, "a.txt", "text/plain", strings.NewReader("same"))
	require.NoError(t, err)
	b, err := s.Put(ctx, "b.txt", "text/plain", strings.NewReader("same"))
	require.NoError(t, err)

	assert.Equal(t, a.CID, b.CID)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_Errors(t *testing.T) {
	s := NewMemoryStore("")
	ctx := context.Background()

	_, err := s.Put(ctx, "", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrMissingFileName)

	_, err = s.Put(ctx, "big.bin", "application/pdf", bytes.NewReader(make([]byte, MaxUploadSize+1)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = s.Get(ctx, "bafkreimissing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore("")
	ctx := context.Background()

	obj, err := s.Put(ctx, "a.txt", "text/plain", strings.NewReader("abc"))
	require.NoError(t, err)

	data, _ := s.Get(ctx, obj.CID)
	data[0] = 'z'

	again, _ := s.Get(ctx, obj.CID)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore("")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Put(ctx, "f.txt", "text/plain", strings.NewReader(strings.Repeat("x", i+1)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestPutJSON_GetJSON(t *testing.T) {
	s := NewMemoryStore("")
	ctx := context.Background()

	in := map[string]string{"documentType": "MEDICAL_RECORD"}
	obj, err := PutJSON(ctx, s, "record.json", in)
	require.NoError(t, err)
	assert.Equal(t, "application/json", obj.ContentType)

	var out map[string]string
	require.NoError(t, GetJSON(ctx, s, obj.CID, &out))
	assert.Equal(t, in, out)
}

type countingStore struct {
	Store
	gets int
}

func (c *countingStore) Get(ctx context.Context, cid string) ([]byte, error) {
	c.gets++
	return c.Store.Get(ctx, cid)
}

type recorder struct {
	hits, misses int
}

func (r *recorder) CacheLookup(_ string, hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func TestCachedStore_ServesRepeatReadsFromLRU(t *testing.T) {
	inner := &countingStore{Store: NewMemoryStore("https://gw")}
	rec := &recorder{}
	s, err := NewCachedStore(inner, 8, rec)
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := s.Put(ctx, "a.txt", "text/plain", strings.NewReader("cached"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		data, err := s.Get(ctx, obj.CID)
		require.NoError(t, err)
		assert.Equal(t, "cached", string(data))
	}

	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 2, rec.hits)
	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, "https://gw/"+obj.CID, s.URL(obj.CID))
}

func TestCachedStore_DoesNotCacheMisses(t *testing.T) {
	inner := &countingStore{Store: NewMemoryStore("")}
	s, err := NewCachedStore(inner, 8, nil)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, inner.gets)
}

func TestCachedStore_LargeBlobsAreNotRetained(t *testing.T) {
	inner := &countingStore{Store: NewMemoryStore("")}
	s, err := NewCachedStore(inner, 512, nil)
	require.NoError(t, err)
	ctx := context.Background()

	var cids []string
	for i := 0; i < 4; i++ {
		payload := bytes.Repeat([]byte{byte('a' + i)}, MaxCachedBlobSize+1)
		obj, err := s.Put(ctx, "scan.bin", "application/pdf", bytes.NewReader(payload))
		require.NoError(t, err)
		cids = append(cids, obj.CID)
	}
	for _, cid := range cids {
		data, err := s.Get(ctx, cid)
		require.NoError(t, err)
		assert.Len(t, data, MaxCachedBlobSize+1)
	}
	assert.Equal(t, 0, s.Len())

	_, err = s.Get(ctx, cids[0])
	require.NoError(t, err)
	assert.Equal(t, 5, inner.gets, "large blobs should always be read through")

	small, err := s.Put(ctx, "record.json", "application/json", strings.NewReader(`{"documentType":"MEDICAL_RECORD"}`))
	require.NoError(t, err)
	_, err = s.Get(ctx, small.CID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestLighthouseStore_Put(t *testing.T) {
	var gotAuth, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/add", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.NotEmpty(t, params["boundary"])

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)

		_ = json.NewEncoder(w).Encode(map[string]string{"Name": hdr.Filename, "Hash": "bafkreitest", "Size": "11"})
	}))
	defer srv.Close()

	s := NewLighthouseStore(LighthouseConfig{APIKey: "secret", Gateway: "https://gw/ipfs", NodeURL: srv.URL})
	obj, err := s.Put(context.Background(), "scan.png", "image/png", strings.NewReader("png-content"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "scan.png", gotName)
	assert.Equal(t, "png-content", gotBody)
	assert.Equal(t, "bafkreitest", obj.CID)
	assert.Equal(t, int64(11), obj.Size)
	assert.Equal(t, "https://gw/ipfs/bafkreitest", s.URL(obj.CID))
}

func TestLighthouseStore_PutUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewLighthouseStore(LighthouseConfig{APIKey: "bad", NodeURL: srv.URL})
	_, err := s.Put(context.Background(), "a.txt", "text/plain", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestLighthouseStore_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ipfs/bafkreiknown" {
			_, _ = w.Write([]byte(`{"documentType":"MEDICAL_RECORD"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := NewLighthouseStore(LighthouseConfig{Gateway: srv.URL + "/ipfs"})

	data, err := s.Get(context.Background(), "bafkreiknown")
	require.NoError(t, err)
	assert.Contains(t, string(data), "MEDICAL_RECORD")

	_, err = s.Get(context.Background(), "bafkreimissing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLighthouseStore_GetRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, MaxUploadSize+1))
	}))
	defer srv.Close()

	s := NewLighthouseStore(LighthouseConfig{Gateway: srv.URL + "/ipfs"})
	data, err := s.Get(context.Background(), "bafkreihuge")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Nil(t, data)
}
