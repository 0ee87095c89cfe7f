package pipeline

import (
	"context"
	"sync"

	"paratranz-sync/internal/cache"
	"paratranz-sync/internal/paratranz"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Source lists a project's files and fetches their entries. Both
// *paratranz.Client and *cache.EntryCache implement it.
type Source interface {
	ListFiles(ctx context.Context) ([]paratranz.File, error)
	FetchEntries(ctx context.Context, fileID int) ([]paratranz.TranslationEntry, error)
}

// CachingSource reads from a Source and writes every result through to an
// EntryCache. Cache failures never fail a read; they are collected and
// reported by Err.
type CachingSource struct {
	src   Source
	cache *cache.EntryCache

	mu   sync.Mutex
	errs *multierror.Error
}

// NewCachingSource wraps src.
func NewCachingSource(src Source, c *cache.EntryCache) *CachingSource {
	return &CachingSource{src: src, cache: c}
}

func (s *CachingSource) ListFiles(ctx context.Context) ([]paratranz.File, error) {
	files, err := s.src.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	s.record(s.cache.SetFiles(ctx, files))
	return files, nil
}

func (s *CachingSource) FetchEntries(ctx context.Context, fileID int) ([]paratranz.TranslationEntry, error) {
	entries, err := s.src.FetchEntries(ctx, fileID)
	if err != nil {
		return nil, err
	}
	s.record(s.cache.SetEntries(ctx, fileID, entries))
	return entries, nil
}

// Err returns every cache write failure seen so far, or nil.
func (s *CachingSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs.ErrorOrNil()
}

func (s *CachingSource) record(err error) {
	if err == nil {
		return
	}
	log.Warn().Err(err).Msg("Failed to cache ParaTranz response")
	s.mu.Lock()
	s.errs = multierror.Append(s.errs, err)
	s.mu.Unlock()
}
