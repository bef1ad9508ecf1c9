package cookies

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vidra-dl/vidra/utils"
)

// State is the user-facing cookie readiness state.
type State string

const (
	StateMissing     State = "missing"
	StateStale       State = "stale"
	StateFresh       State = "fresh"
	StateAutoFetched State = "auto_fetched"
)

// Status is a derived, non-persisted view of cookie readiness.
type Status struct {
	State    State
	Source   Source
	AgeHours float64
	Error    string
}

// Ready reports whether downloads can attach the jar right away.
func (s Status) Ready() bool {
	return s.State == StateFresh || s.State == StateAutoFetched
}

// Extractor is the slice of Service the manager depends on. Narrowed to
// an interface so tests can substitute fakes.
type Extractor interface {
	Extract(ctx context.Context, useCache bool) Result
	CachedAge() (float64, bool)
	ResetCache()
}

// Manager derives cookie status from cache age and on-demand extraction.
// Status is memoized per instance until Reset; TryAutoFetch is the only
// path that refreshes a stale or missing state before the cache expires
// naturally.
type Manager struct {
	extractor Extractor
	jarPath   string

	mu    sync.Mutex
	last  *Status
	group singleflight.Group
	log   zerolog.Logger
}

func NewManager(extractor Extractor, jarPath string) *Manager {
	return &Manager{
		extractor: extractor,
		jarPath:   jarPath,
		log:       utils.GetLogger("cookie-manager"),
	}
}

// Status computes the current cookie state. The result is memoized: the
// sequence (cache age check, then cached extraction attempt) runs at most
// once per instance until Reset.
func (m *Manager) Status(ctx context.Context) Status {
	m.mu.Lock()
	if m.last != nil {
		status := *m.last
		m.mu.Unlock()
		return status
	}
	m.mu.Unlock()

	status := m.computeStatus(ctx)

	m.mu.Lock()
	m.last = &status
	m.mu.Unlock()
	return status
}

func (m *Manager) computeStatus(ctx context.Context) Status {
	if age, ok := m.extractor.CachedAge(); ok {
		state := StateFresh
		if age >= CacheTTL.Hours() {
			state = StateStale
		}
		return Status{State: state, Source: SourceManual, AgeHours: age}
	}

	result := m.extractor.Extract(ctx, true)
	if result.Success {
		return Status{State: StateAutoFetched, Source: result.Source}
	}
	return Status{State: StateMissing, Error: result.Error}
}

// TryAutoFetch forces a live extraction, bypassing every cache layer, and
// replaces the memoized status with the outcome. Concurrent calls while
// one extraction is in flight coalesce into that single attempt.
func (m *Manager) TryAutoFetch(ctx context.Context) Status {
	value, _, _ := m.group.Do("auto-fetch", func() (any, error) {
		m.log.Info().Msg("attempting automatic cookie refresh")
		result := m.extractor.Extract(ctx, false)

		var status Status
		if result.Success {
			status = Status{State: StateAutoFetched, Source: result.Source}
			m.log.Info().Str("source", string(result.Source)).Msg("cookies refreshed")
		} else {
			status = Status{State: StateMissing, Error: result.Error}
			m.log.Error().Str("error", result.Error).Msg("automatic cookie refresh failed")
		}

		m.mu.Lock()
		m.last = &status
		m.mu.Unlock()
		return status, nil
	})
	return value.(Status)
}

// Reset clears the memoized status and the on-disk cache, so the next
// Status call redoes the full sequence.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()
	m.extractor.ResetCache()
	m.log.Info().Msg("cookie state reset")
}

// JarPath returns where the cookie jar is expected on disk.
func (m *Manager) JarPath() string { return m.jarPath }

// JarExists reports whether a jar file is already present.
func (m *Manager) JarExists() bool {
	_, err := os.Stat(m.jarPath)
	return err == nil
}

// ManualGuide is shown when no strategy can produce cookies.
func ManualGuide() string {
	return "Could not obtain cookies automatically.\n\n" +
		"Manual import:\n" +
		"  1. Install a 'Get cookies.txt LOCALLY' style browser extension\n" +
		"  2. Open the video site while signed in and export cookies\n" +
		"  3. Save the exported file as cookies.txt in the vidra data directory"
}
