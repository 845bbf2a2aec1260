// Package router resolves which provider/model chain serves a site.
package router

import (
	"errors"
	"fmt"

	"github.com/aitarf0921/AI-Secretary/pkg/config"
	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// ErrNoProviders is returned when no provider is configured at all.
var ErrNoProviders = errors.New("no providers configured")

// Route represents a resolved provider and model to try.
type Route struct {
	Provider config.ProviderConfig
	Model    string
}

// Candidate returns the route as a provider/model pair.
func (r Route) Candidate() models.ProviderCandidate {
	return models.ProviderCandidate{Provider: r.Provider.Name, Model: r.Model}
}

// Router maps a site to its ordered candidate chain. Sites listed under
// site_candidates get their own chain; every other site uses the default.
type Router struct {
	providers map[string]config.ProviderConfig
	chain     []Route
	sites     map[string][]Route
}

// New resolves the default chain and every per-site chain in cfg.
func New(cfg *config.Config) (*Router, error) {
	if len(cfg.Providers) == 0 {
		return nil, ErrNoProviders
	}
	r := &Router{
		providers: make(map[string]config.ProviderConfig, len(cfg.Providers)),
		sites:     make(map[string][]Route, len(cfg.SiteCandidates)),
	}
	for _, p := range cfg.Providers {
		r.providers[p.Name] = p
	}

	chain, err := r.resolve(cfg.Candidates)
	if err != nil {
		return nil, fmt.Errorf("default chain: %w", err)
	}
	r.chain = chain

	for site, cands := range cfg.SiteCandidates {
		routes, err := r.resolve(cands)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site, err)
		}
		r.sites[site] = routes
	}
	return r, nil
}

// Routes returns the chain for site.
func (r *Router) Routes(site string) []Route {
	if routes, ok := r.sites[site]; ok {
		return routes
	}
	return r.chain
}

// Candidates returns the chain for site as provider/model pairs.
func (r *Router) Candidates(site string) []models.ProviderCandidate {
	routes := r.Routes(site)
	out := make([]models.ProviderCandidate, len(routes))
	for i, rt := range routes {
		out[i] = rt.Candidate()
	}
	return out
}

// resolve maps candidates to routes. An empty model inherits the model the
// default chain uses for that provider.
func (r *Router) resolve(candidates []models.ProviderCandidate) ([]Route, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no candidates")
	}
	routes := make([]Route, 0, len(candidates))
	for _, cand := range candidates {
		provider, ok := r.providers[cand.Provider]
		if !ok {
			return nil, fmt.Errorf("candidate %s: unknown provider", cand)
		}
		model := cand.Model
		if model == "" {
			model = r.defaultModel(cand.Provider)
		}
		if model == "" {
			return nil, fmt.Errorf("candidate %s: no model and none in the default chain", cand)
		}
		routes = append(routes, Route{Provider: provider, Model: model})
	}
	return routes, nil
}

func (r *Router) defaultModel(provider string) string {
	for _, rt := range r.chain {
		if rt.Provider.Name == provider {
			return rt.Model
		}
	}
	return ""
}
