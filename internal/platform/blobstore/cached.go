package blobstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheRecorder receives hit/miss observations. *metrics.Metrics satisfies it.
type CacheRecorder interface {
	CacheLookup(cache string, hit bool)
}

// MaxCachedBlobSize bounds the content kept in memory per entry. Medical
// record documents are a few KB; larger uploads are always read through.
const MaxCachedBlobSize = 256 << 10

// CachedStore fronts a Store with an LRU of fetched content. CIDs are
// immutable so entries never need invalidation.
type CachedStore struct {
	Store
	lru *lru.Cache[string, []byte]
	rec CacheRecorder
}

func NewCachedStore(inner Store, size int, rec CacheRecorder) (*CachedStore, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{Store: inner, lru: c, rec: rec}, nil
}

func (s *CachedStore) Get(ctx context.Context, cid string) ([]byte, error) {
	if data, ok := s.lru.Get(cid); ok {
		s.observe(true)
		return data, nil
	}
	s.observe(false)

	data, err := s.Store.Get(ctx, cid)
	if err != nil {
		return nil, err
	}
	if len(data) <= MaxCachedBlobSize {
		s.lru.Add(cid, data)
	}
	return data, nil
}

// Len reports the number of cached entries.
func (s *CachedStore) Len() int {
	return s.lru.Len()
}

func (s *CachedStore) observe(hit bool) {
	if s.rec != nil {
		s.rec.CacheLookup("blob", hit)
	}
}
