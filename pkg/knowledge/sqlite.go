package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	prefix string
}

const createSitesTable = `
CREATE TABLE IF NOT EXISTS sites (
	id TEXT PRIMARY KEY,
	site_id TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	knowledge_context TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME
);
`

// NewSQLiteStore opens the store at dbPath and runs auto-migration.
func NewSQLiteStore(dbPath, prefix string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open knowledge db: %w", err)
	}

	if _, err := db.Exec(createSitesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate knowledge db: %w", err)
	}

	return &SQLiteStore{db: db, prefix: prefix}, nil
}

const selectSite = `SELECT id, site_id, email, knowledge_context, created_at, updated_at FROM sites`

func scanRecord(row *sql.Row) (models.KnowledgeRecord, error) {
	var rec models.KnowledgeRecord
	var updated sql.NullTime
	err := row.Scan(&rec.ID, &rec.SiteID, &rec.Email, &rec.KnowledgeContext, &rec.CreatedAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if updated.Valid {
		rec.UpdatedAt = updated.Time
	}
	return rec, nil
}

// Lookup returns the knowledge text for siteID.
func (s *SQLiteStore) Lookup(ctx context.Context, siteID string) (string, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectSite+` WHERE site_id = ?`, siteID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup site: %w", err)
	}
	return rec.KnowledgeContext, nil
}

// ByEmail returns the record owned by email.
func (s *SQLiteStore) ByEmail(ctx context.Context, email string) (models.KnowledgeRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectSite+` WHERE email = ?`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return rec, fmt.Errorf("lookup email: %w", err)
	}
	return rec, err
}

// Provision returns the existing record for email or inserts a new one.
func (s *SQLiteStore) Provision(ctx context.Context, email string) (models.KnowledgeRecord, error) {
	rec := models.KnowledgeRecord{
		ID:        newRecordID(),
		SiteID:    NewSiteID(s.prefix),
		Email:     email,
		CreatedAt: now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (id, site_id, email, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		rec.ID, rec.SiteID, rec.Email, rec.CreatedAt,
	)
	if err != nil {
		return models.KnowledgeRecord{}, fmt.Errorf("provision site: %w", err)
	}
	return s.ByEmail(ctx, email)
}

// SetKnowledge replaces the knowledge text for email's record.
func (s *SQLiteStore) SetKnowledge(ctx context.Context, email, text string) (models.KnowledgeRecord, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sites SET knowledge_context = ?, updated_at = ? WHERE email = ?`,
		text, time.Now().UTC(), email,
	)
	if err != nil {
		return models.KnowledgeRecord{}, fmt.Errorf("set knowledge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.KnowledgeRecord{}, ErrNotFound
	}
	return s.ByEmail(ctx, email)
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
