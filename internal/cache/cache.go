package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"paratranz-sync/internal/paratranz"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// DB is the subset of *pgxpool.Pool used by EntryCache.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrNotCached is returned when a snapshot is requested that was never stored.
var ErrNotCached = errors.New("not cached")

const schema = `
CREATE TABLE IF NOT EXISTS paratranz_files (
	project_id TEXT NOT NULL,
	position   INTEGER NOT NULL,
	file_id    INTEGER NOT NULL,
	name       TEXT NOT NULL,
	PRIMARY KEY (project_id, file_id)
);
CREATE TABLE IF NOT EXISTS paratranz_entries (
	project_id TEXT NOT NULL,
	file_id    INTEGER NOT NULL,
	entries    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (project_id, file_id)
);`

// EntryCache keeps the last fetched file listing and per-file entries of a
// ParaTranz project, in memory and optionally in PostgreSQL. It serves as a
// read source for offline runs.
type EntryCache struct {
	db        DB
	projectID string

	mu      sync.RWMutex
	files   []paratranz.File
	entries map[int][]paratranz.TranslationEntry
}

// NewEntryCache creates a cache for one project. A nil db keeps everything
// in memory.
func NewEntryCache(db DB, projectID string) *EntryCache {
	return &EntryCache{
		db:        db,
		projectID: projectID,
		entries:   make(map[int][]paratranz.TranslationEntry),
	}
}

// EnsureSchema creates the backing tables.
func (c *EntryCache) EnsureSchema(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	if _, err := c.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure cache schema: %w", err)
	}
	return nil
}

// SetFiles replaces the stored file listing.
func (c *EntryCache) SetFiles(ctx context.Context, files []paratranz.File) error {
	c.mu.Lock()
	c.files = append([]paratranz.File(nil), files...)
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	// The stored listing is replaced atomically.
	return pgx.BeginFunc(ctx, c.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM paratranz_files WHERE project_id = $1`, c.projectID); err != nil {
			return fmt.Errorf("clear file listing: %w", err)
		}
		for i, f := range files {
			_, err := tx.Exec(ctx,
				`INSERT INTO paratranz_files (project_id, position, file_id, name) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (project_id, file_id) DO UPDATE SET position = EXCLUDED.position, name = EXCLUDED.name`,
				c.projectID, i, f.ID, f.Name)
			if err != nil {
				return fmt.Errorf("store file %d: %w", f.ID, err)
			}
		}
		return nil
	})
}

// SetEntries stores the entries of one file.
func (c *EntryCache) SetEntries(ctx context.Context, fileID int, entries []paratranz.TranslationEntry) error {
	c.mu.Lock()
	c.entries[fileID] = entries
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	_, err = c.db.Exec(ctx,
		`INSERT INTO paratranz_entries (project_id, file_id, entries) VALUES ($1, $2, $3)
		 ON CONFLICT (project_id, file_id) DO UPDATE SET entries = EXCLUDED.entries, fetched_at = now()`,
		c.projectID, fileID, payload)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// ListFiles returns the stored listing.
func (c *EntryCache) ListFiles(ctx context.Context) ([]paratranz.File, error) {
	c.mu.RLock()
	files := c.files
	c.mu.RUnlock()
	if files != nil {
		return files, nil
	}
	if c.db == nil {
		return nil, fmt.Errorf("file listing: %w", ErrNotCached)
	}

	rows, err := c.db.Query(ctx,
		`SELECT file_id, name FROM paratranz_files WHERE project_id = $1 ORDER BY position`, c.projectID)
	if err != nil {
		return nil, fmt.Errorf("query file listing: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f paratranz.File
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read file listing: %w", err)
	}
	if files == nil {
		return nil, fmt.Errorf("file listing: %w", ErrNotCached)
	}

	c.mu.Lock()
	c.files = files
	c.mu.Unlock()
	return files, nil
}

// FetchEntries returns the stored entries of one file.
func (c *EntryCache) FetchEntries(ctx context.Context, fileID int) ([]paratranz.TranslationEntry, error) {
	c.mu.RLock()
	entries, ok := c.entries[fileID]
	c.mu.RUnlock()
	if ok {
		return entries, nil
	}
	if c.db == nil {
		return nil, fmt.Errorf("entries of file %d: %w", fileID, ErrNotCached)
	}

	var payload []byte
	err := c.db.QueryRow(ctx,
		`SELECT entries FROM paratranz_entries WHERE project_id = $1 AND file_id = $2`,
		c.projectID, fileID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("entries of file %d: %w", fileID, ErrNotCached)
	}
	if err != nil {
		return nil, fmt.Errorf("query entries of file %d: %w", fileID, err)
	}
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("decode entries of file %d: %w", fileID, err)
	}

	c.mu.Lock()
	c.entries[fileID] = entries
	c.mu.Unlock()
	return entries, nil
}

// Preload loads every stored snapshot of the project into memory.
func (c *EntryCache) Preload(ctx context.Context) error {
	if c.db == nil {
		return nil
	}

	rows, err := c.db.Query(ctx,
		`SELECT file_id, entries FROM paratranz_entries WHERE project_id = $1`, c.projectID)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	defer rows.Close()

	loaded := make(map[int][]paratranz.TranslationEntry)
	for rows.Next() {
		var (
			id      int
			payload []byte
			entries []paratranz.TranslationEntry
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal(payload, &entries); err != nil {
			log.Warn().Err(err).Int("file_id", id).Msg("Skipping unreadable cached snapshot")
			continue
		}
		loaded[id] = entries
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}

	c.mu.Lock()
	for id, entries := range loaded {
		c.entries[id] = entries
	}
	c.mu.Unlock()

	log.Info().Int("count", len(loaded)).Msg("Preloaded entry cache")
	return nil
}
