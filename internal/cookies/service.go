package cookies

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vidra-dl/vidra/internal/config"
	"github.com/vidra-dl/vidra/utils"
)

// Strategy is one concrete technique for obtaining browser cookies.
// Extract never fails hard: every problem is folded into the Result.
type Strategy interface {
	Name() Source
	Extract(ctx context.Context) Result
}

// DefaultStrategies returns the extraction backends in fallback order:
// browser automation, direct profile read, remote-debug protocol. Later
// strategies run only after earlier ones fail.
func DefaultStrategies(cfg config.Config) []Strategy {
	return []Strategy{
		NewBrowserStrategy(cfg.TargetURL, cfg.Domains),
		NewProfileStrategy(cfg.Domains),
		NewCDPStrategy(cfg.Domains),
	}
}

// Service orchestrates extraction strategies in priority order and keeps
// the cache and the on-disk jar in sync with the last success.
type Service struct {
	cache      *Cache
	jarPath    string
	strategies []Strategy
	log        zerolog.Logger
}

func NewService(cache *Cache, jarPath string, strategies []Strategy) *Service {
	return &Service{
		cache:      cache,
		jarPath:    jarPath,
		strategies: strategies,
		log:        utils.GetLogger("cookie-extractor"),
	}
}

// Extract returns cookies, preferring the cache when useCache is set.
// Strategies run strictly in order; the first success is persisted to the
// cache and written to the jar. When every strategy fails, a synthetic
// aggregate failure is returned and the cache is left untouched.
func (s *Service) Extract(ctx context.Context, useCache bool) Result {
	if useCache {
		if cached := s.cache.Get(); cached != nil {
			s.log.Info().Msg("using cached cookies")
			return *cached
		}
	}

	for _, strategy := range s.strategies {
		result := strategy.Extract(ctx)
		if !result.Success {
			s.log.Debug().Str("strategy", string(strategy.Name())).Str("error", result.Error).Msg("strategy failed, trying next")
			continue
		}
		result.AgeHours = 0
		s.cache.Set(result)
		if err := WriteJar(s.jarPath, result.Cookies); err != nil {
			s.log.Warn().Err(err).Msg("extracted cookies but could not write jar")
		}
		s.log.Info().Str("source", string(result.Source)).Int("cookies", len(result.Cookies)).Msg("cookies extracted")
		return result
	}

	s.log.Error().Msg("all cookie extraction strategies failed")
	return Result{Success: false, Error: "all cookie extraction strategies failed"}
}

// CachedAge returns hours since the cache file was last written, valid
// only while the cached entry itself is still usable.
func (s *Service) CachedAge() (float64, bool) {
	if s.cache.Get() == nil {
		return 0, false
	}
	return s.cache.ModAge()
}

// ResetCache drops the persisted extraction result.
func (s *Service) ResetCache() {
	s.cache.Remove()
}
