// Package knowledge resolves site identifiers to the knowledge text that
// grounds generated answers, and keeps the email-to-site records behind
// the verification flow.
package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/aitarf0921/AI-Secretary/pkg/config"
	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("knowledge not found")

// Lookuper resolves a site identifier to its knowledge text.
type Lookuper interface {
	Lookup(ctx context.Context, siteID string) (string, error)
}

// Store is the persistent record store.
type Store interface {
	Lookuper
	// ByEmail returns the record owned by email.
	ByEmail(ctx context.Context, email string) (models.KnowledgeRecord, error)
	// Provision returns the record for email, creating one with a fresh
	// site ID when none exists.
	Provision(ctx context.Context, email string) (models.KnowledgeRecord, error)
	// SetKnowledge replaces the knowledge text of an existing record.
	SetKnowledge(ctx context.Context, email, text string) (models.KnowledgeRecord, error)
	// Close releases resources.
	Close() error
}

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.KnowledgeConfig) (Store, error) {
	switch cfg.Backend {
	case "static", "":
		return NewStatic(cfg.StaticText, cfg.SitePrefix), nil
	case "sqlite":
		return NewSQLiteStore(cfg.DBPath, cfg.SitePrefix)
	case "mongo":
		return DialMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.SitePrefix)
	default:
		return nil, fmt.Errorf("unknown knowledge backend %q", cfg.Backend)
	}
}
