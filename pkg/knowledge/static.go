package knowledge

import (
	"context"
	"sync"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// Static answers every site with one fixed knowledge text. Records created by
// the verification flow live in memory only, which is enough for single-tenant
// and demo deployments.
type Static struct {
	text   string
	prefix string

	mu      sync.RWMutex
	byEmail map[string]models.KnowledgeRecord
	bySite  map[string]string
}

// NewStatic returns a Static store serving text.
func NewStatic(text, prefix string) *Static {
	return &Static{
		text:    text,
		prefix:  prefix,
		byEmail: make(map[string]models.KnowledgeRecord),
		bySite:  make(map[string]string),
	}
}

// Lookup returns the site's own knowledge if one was stored, else the fixed text.
func (s *Static) Lookup(_ context.Context, siteID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if email, ok := s.bySite[siteID]; ok {
		if rec := s.byEmail[email]; rec.KnowledgeContext != "" {
			return rec.KnowledgeContext, nil
		}
	}
	return s.text, nil
}

// ByEmail returns the in-memory record owned by email.
func (s *Static) ByEmail(_ context.Context, email string) (models.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byEmail[email]
	if !ok {
		return models.KnowledgeRecord{}, ErrNotFound
	}
	return rec, nil
}

// Provision returns the record for email, creating one on first use.
func (s *Static) Provision(_ context.Context, email string) (models.KnowledgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byEmail[email]; ok {
		return rec, nil
	}
	rec := models.KnowledgeRecord{
		ID:        newRecordID(),
		SiteID:    NewSiteID(s.prefix),
		Email:     email,
		CreatedAt: now(),
	}
	s.byEmail[email] = rec
	s.bySite[rec.SiteID] = email
	return rec, nil
}

// SetKnowledge stores text as the site's own knowledge, overriding the
// fixed text for that site.
func (s *Static) SetKnowledge(_ context.Context, email, text string) (models.KnowledgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byEmail[email]
	if !ok {
		return models.KnowledgeRecord{}, ErrNotFound
	}
	rec.KnowledgeContext = text
	rec.UpdatedAt = now()
	s.byEmail[email] = rec
	return rec, nil
}

// Close is a no-op.
func (s *Static) Close() error { return nil }
