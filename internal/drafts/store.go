// Package drafts keeps unsaved section edits and a history of saved
// revisions in a local SQLite database, so work survives a restart and old
// versions can be diffed or restored.
package drafts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/domain"
	"github.com/almostacms/almostacms/internal/log"
)

// ErrNotFound is returned for a missing draft or revision.
var ErrNotFound = domain.ErrNotFound

// Draft is the latest unsaved document of a section.
type Draft struct {
	Site      string
	SectionID string
	Document  content.Value
	UpdatedAt time.Time
}

// Revision is a document as it was saved.
type Revision struct {
	ID        string
	Site      string
	SectionID string
	Document  content.Value
	Message   string
	CreatedAt time.Time
}

// ShortID is the first eight characters of the revision id.
func (r Revision) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// Store is the drafts database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create drafts directory: %w", err)
	}
	log.Debug(log.CatDrafts, "opening drafts database", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and migrates it. SQLite allows a single
// writer, so the pool is limited to one connection.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping drafts database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveDraft stores doc as the section's draft, replacing any previous one.
func (s *Store) SaveDraft(ctx context.Context, site, sectionID string, doc content.Value) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (site, section_id, document, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (site, section_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		site, sectionID, string(doc.Compact()), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("save draft %s: %w", sectionID, err)
	}
	log.Debug(log.CatDrafts, "draft saved", "site", site, "section", sectionID)
	return nil
}

// Draft returns the section's draft.
func (s *Store) Draft(ctx context.Context, site, sectionID string) (Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT site, section_id, document, updated_at FROM drafts WHERE site = ? AND section_id = ?`,
		site, sectionID)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, fmt.Errorf("draft %s: %w", sectionID, ErrNotFound)
	}
	return d, err
}

// ListDrafts returns the site's drafts, most recently updated first.
func (s *Store) ListDrafts(ctx context.Context, site string) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT site, section_id, document, updated_at FROM drafts WHERE site = ? ORDER BY updated_at DESC, section_id`,
		site)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDraft removes the section's draft. A missing draft is not an error.
func (s *Store) DeleteDraft(ctx context.Context, site, sectionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE site = ? AND section_id = ?`, site, sectionID); err != nil {
		return fmt.Errorf("delete draft %s: %w", sectionID, err)
	}
	return nil
}

// AddRevision records doc as a saved version of the section.
func (s *Store) AddRevision(ctx context.Context, site, sectionID string, doc content.Value, message string) (Revision, error) {
	rev := Revision{
		ID:        uuid.NewString(),
		Site:      site,
		SectionID: sectionID,
		Document:  doc,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revisions (id, site, section_id, document, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rev.ID, site, sectionID, string(doc.Compact()), message, formatTime(rev.CreatedAt))
	if err != nil {
		return Revision{}, fmt.Errorf("add revision %s: %w", sectionID, err)
	}
	log.Info(log.CatDrafts, "revision recorded", "section", sectionID, "id", rev.ShortID())
	return rev, nil
}

// History returns the section's revisions, newest first. limit <= 0 means
// all of them.
func (s *Store) History(ctx context.Context, site, sectionID string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site, section_id, document, message, created_at FROM revisions
		WHERE site = ? AND section_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, site, sectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", sectionID, err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Revision returns the revision whose id is, or uniquely starts with, id.
func (s *Store) Revision(ctx context.Context, id string) (Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site, section_id, document, message, created_at FROM revisions
		WHERE id LIKE ? || '%'
		ORDER BY id = ? DESC
		LIMIT 2`, id, id)
	if err != nil {
		return Revision{}, fmt.Errorf("revision %s: %w", id, err)
	}
	defer rows.Close()

	var found []Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return Revision{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Revision{}, err
	}
	switch {
	case len(found) == 0:
		return Revision{}, fmt.Errorf("revision %s: %w", id, ErrNotFound)
	case len(found) > 1 && found[0].ID != id:
		return Revision{}, fmt.Errorf("revision prefix %s is ambiguous", id)
	}
	return found[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(sc scanner) (Draft, error) {
	var d Draft
	var doc, updated string
	if err := sc.Scan(&d.Site, &d.SectionID, &doc, &updated); err != nil {
		return Draft{}, err
	}
	var err error
	if d.Document, err = content.Parse([]byte(doc)); err != nil {
		return Draft{}, fmt.Errorf("draft %s: %w", d.SectionID, err)
	}
	d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
	return d, err
}

func scanRevision(sc scanner) (Revision, error) {
	var r Revision
	var doc, created string
	if err := sc.Scan(&r.ID, &r.Site, &r.SectionID, &doc, &r.Message, &created); err != nil {
		return Revision{}, err
	}
	var err error
	if r.Document, err = content.Parse([]byte(doc)); err != nil {
		return Revision{}, fmt.Errorf("revision %s: %w", r.ID, err)
	}
	r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	return r, err
}

// formatTime uses a fixed-width layout so text ordering matches time order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
