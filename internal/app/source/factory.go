package source

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/infra/config"
)

// NewProviderChainFromConfig creates a provider chain from configuration.
// spotify may be nil when no provider needs it.
func NewProviderChainFromConfig(cfg *config.ServerConfig, spotify SpotifyClient) (*ProviderChain, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "static":
			provider, err = NewStaticProvider(pcfg.Settings)

		case "spotify_playlist":
			provider, err = NewPlaylistProvider(spotify, pcfg.Settings)

		case "lastfm":
			provider, err = NewLastFmProvider(spotify, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("registered provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewProviderChain(providers), nil
}
