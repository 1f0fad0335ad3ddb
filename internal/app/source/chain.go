package source

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/domain/track"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// ProviderChain collects candidates from every provider in order.
type ProviderChain struct {
	providers []ProviderWithMetadata
}

// NewProviderChain creates a new provider chain.
func NewProviderChain(providers []ProviderWithMetadata) *ProviderChain {
	return &ProviderChain{
		providers: providers,
	}
}

// Tracks retrieves candidates from all providers to maximize the pool for
// filtering. Each track is stamped with its provider's display name and
// tracks already returned by an earlier provider are dropped. It fails only
// when every provider failed.
func (c *ProviderChain) Tracks(ctx context.Context, count int) ([]track.Track, error) {
	var all []track.Track
	var errs error
	failed := 0
	seen := make(map[string]bool)

	for i, pm := range c.providers {
		zlog.Debug().Msgf("trying provider: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		candidates, err := pm.Provider.Tracks(ctx, count)
		if err != nil {
			zlog.Warn().Msgf("provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "provider %s", pm.DisplayName))
			failed++
			continue
		}

		added := 0
		for _, t := range candidates {
			if seen[t.Key()] {
				continue
			}
			seen[t.Key()] = true
			t.Source = pm.DisplayName
			all = append(all, t)
			added++
		}

		zlog.Info().Msgf("provider returned candidates: provider=%s count=%d total_so_far=%d",
			pm.DisplayName, added, len(all))
	}

	if failed > 0 && failed == len(c.providers) {
		return nil, errors.Wrap(errs, "all providers failed to return candidates")
	}
	return all, nil
}

// Name returns the chain name.
func (c *ProviderChain) Name() string {
	return "provider_chain"
}
