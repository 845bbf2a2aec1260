package provider

import (
	"context"
	"fmt"

	"github.com/aitarf0921/AI-Secretary/pkg/config"
)

// FromConfig builds one Generator per configured provider, keyed by name.
func FromConfig(ctx context.Context, providers []config.ProviderConfig) (map[string]Generator, error) {
	gens := make(map[string]Generator, len(providers))
	for _, p := range providers {
		var (
			gen Generator
			err error
		)
		switch p.Type {
		case config.ProviderBedrock:
			gen, err = DialBedrock(ctx, p.Region, p.KnowledgeBaseID)
		case config.ProviderOpenAI:
			gen, err = NewOpenAI(p.URL, p.APIKey)
		case config.ProviderGemini:
			gen, err = NewGemini(ctx, p.APIKey, p.URL)
		default:
			err = fmt.Errorf("unknown type %q", p.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.Name, err)
		}
		gens[p.Name] = gen
	}
	return gens, nil
}
