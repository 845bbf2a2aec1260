// Package answer turns a visitor question into a cached, provider-backed answer.
package answer

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aitarf0921/AI-Secretary/pkg/cache"
	"github.com/aitarf0921/AI-Secretary/pkg/knowledge"
	"github.com/aitarf0921/AI-Secretary/pkg/models"
	"github.com/aitarf0921/AI-Secretary/pkg/sanitize"
)

// Validation messages returned to the widget.
const (
	MsgQueryRequired     = "Query is required"
	MsgSiteRequired      = "Site is required"
	MsgQueryEmpty        = "Query is empty"
	MsgKnowledgeNotFound = "Knowledge not found"
)

// ValidationError is a client mistake reported as 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Answerer is the provider fallback chain.
type Answerer interface {
	Answer(ctx context.Context, query, knowledge string, candidates []models.ProviderCandidate) (models.AnswerResult, error)
}

// Routes picks the candidate chain for a site.
type Routes interface {
	Candidates(site string) []models.ProviderCandidate
}

// Options configures a Service. Routes, when set, takes precedence over the
// fixed Candidates chain.
type Options struct {
	MultiTenant bool
	CacheTTL    time.Duration
	Candidates  []models.ProviderCandidate
	Routes      Routes
	Logger      *zap.Logger
}

// Service runs the query pipeline.
type Service struct {
	cache     cache.Cache
	knowledge knowledge.Lookuper
	chain     Answerer
	opts      Options
	log       *zap.Logger
}

// New wires a Service from its collaborators.
func New(c cache.Cache, k knowledge.Lookuper, chain Answerer, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cache: c, knowledge: k, chain: chain, opts: opts, log: log}
}

// Answer validates q, serves it from cache when possible and otherwise asks
// the provider chain, caching the result.
func (s *Service) Answer(ctx context.Context, q models.Query) (models.AnswerResult, error) {
	if q.RawText == "" {
		return models.AnswerResult{}, &ValidationError{Message: MsgQueryRequired}
	}
	site := strings.TrimSpace(q.SiteID)
	if s.opts.MultiTenant && site == "" {
		return models.AnswerResult{}, &ValidationError{Message: MsgSiteRequired}
	}

	clean, err := sanitize.Query(q.RawText)
	if err != nil {
		return models.AnswerResult{}, &ValidationError{Message: MsgQueryEmpty}
	}

	key := cache.AnswerKey(site, clean.CleanText)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return models.AnswerResult{Answer: cached, ServedFromCache: true}, nil
	}

	text, err := s.resolveKnowledge(ctx, site)
	if err != nil {
		return models.AnswerResult{}, err
	}

	res, err := s.chain.Answer(ctx, clean.CleanText, text, s.candidates(site))
	if err != nil {
		return models.AnswerResult{}, err
	}

	if err := s.cache.Put(ctx, key, res.Answer, s.opts.CacheTTL); err != nil {
		s.log.Warn("cache write failed", zap.String("site", site), zap.Error(err))
	}
	res.ServedFromCache = false
	return res, nil
}

func (s *Service) candidates(site string) []models.ProviderCandidate {
	if s.opts.Routes != nil {
		return s.opts.Routes.Candidates(site)
	}
	return s.opts.Candidates
}

func (s *Service) resolveKnowledge(ctx context.Context, site string) (string, error) {
	text, err := s.knowledge.Lookup(ctx, site)
	if !s.opts.MultiTenant {
		if err != nil && !errors.Is(err, knowledge.ErrNotFound) {
			return "", err
		}
		return text, nil
	}
	if errors.Is(err, knowledge.ErrNotFound) || (err == nil && strings.TrimSpace(text) == "") {
		return "", &ValidationError{Message: MsgKnowledgeNotFound}
	}
	return text, err
}
