package langdoc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// Loader reads reference documents and keeps recently used ones in memory.
type Loader struct {
	cache *lru.Cache[string, *Document]
}

// NewLoader creates a Loader holding up to size documents.
func NewLoader(size int) (*Loader, error) {
	if size < 1 {
		size = 1
	}
	c, err := lru.New[string, *Document](size)
	if err != nil {
		return nil, fmt.Errorf("create document cache: %w", err)
	}
	return &Loader{cache: c}, nil
}

// Load returns the document at path. A missing file yields (nil, nil) so
// callers can fall back to unordered output. Returned documents are shared and
// must be treated as read-only.
func (l *Loader) Load(path string) (*Document, error) {
	if doc, ok := l.cache.Get(path); ok {
		return doc, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reference document: %w", err)
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	l.cache.Add(path, doc)
	log.Debug().Str("path", path).Int("keys", doc.Len()).Msg("Loaded reference document")
	return doc, nil
}

// WriteFile encodes doc to path, creating parent directories.
func WriteFile(path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, Encode(doc), 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
