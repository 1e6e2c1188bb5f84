// Package snapshot serves pack picker results from the persisted per-user
// snapshot and recomputes them at most once per cooldown window.
//
// A user is FRESH while the last refresh is younger than the cooldown and
// STALE otherwise. FRESH reads return the stored snapshot. STALE reads run the
// engine for every booster and commit the result and the new last_refresh in
// one compare-and-set transaction. Concurrent refreshes of one user in this
// process share a single run; across processes the compare-and-set lets only
// one commit win and the loser serves the winner's snapshot.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/xtding233/packpicker/internal/logging"
	"github.com/xtding233/packpicker/internal/metrics"
	"github.com/xtding233/packpicker/internal/picker"
	"github.com/xtding233/packpicker/internal/storage"
)

// DefaultCooldown is the minimum time between two refreshes of one user.
const DefaultCooldown = time.Hour

// ErrRateLimited is returned when the user is inside the cooldown window but
// no snapshot has been stored yet.
var ErrRateLimited = errors.New("no data, refresh again soon")

// PersistenceError reports a refresh whose result could not be stored. The
// result is still served; last_refresh is not advanced.
type PersistenceError struct {
	UserID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist snapshot for %s: %v", e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// State is the cache state observed by a read.
type State string

const (
	StateFresh State = "fresh"
	StateStale State = "stale"
)

// Store is the snapshot persistence the service needs.
type Store interface {
	GetLedger(ctx context.Context, userID string) (storage.Ledger, error)
	GetSnapshot(ctx context.Context, userID string) ([]picker.BoosterStats, error)
	CommitRefresh(ctx context.Context, prev storage.Ledger, now time.Time, stats []picker.BoosterStats) (storage.Ledger, error)
}

// Runner computes the per-booster statistics of one user.
type Runner interface {
	Run(ctx context.Context, userID string) ([]picker.BoosterStats, error)
}

// Config tunes the service.
type Config struct {
	Cooldown time.Duration
	// RefreshRate admits at most this many refresh runs per second across all
	// users; 0 disables the limit.
	RefreshRate  float64
	RefreshBurst int
}

// Result is one pack picker read.
type Result struct {
	Boosters    []picker.BoosterStats
	LastRefresh time.Time
	State       State
	// Refreshed is set when the boosters come from a run made for this read.
	Refreshed bool
	// PersistErr is set when the run's result could not be stored.
	PersistErr *PersistenceError
}

// Service is the snapshot cache.
type Service struct {
	store   Store
	runner  Runner
	cfg     Config
	now     func() time.Time
	limiter *rate.Limiter
	group   singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a snapshot cache.
func NewService(store Store, runner Runner, cfg Config, opts ...Option) *Service {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	s := &Service{store: store, runner: runner, cfg: cfg, now: time.Now}
	if cfg.RefreshRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RefreshRate), max(cfg.RefreshBurst, 1))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cooldown returns the configured cooldown window.
func (s *Service) Cooldown() time.Duration { return s.cfg.Cooldown }

func (s *Service) fresh(l storage.Ledger, now time.Time) bool {
	return now.Sub(l.LastRefresh) < s.cfg.Cooldown
}

// Get returns the user's pack picker result, refreshing it when STALE.
func (s *Service) Get(ctx context.Context, userID string) (*Result, error) {
	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh ledger: %w", err)
	}
	if s.fresh(ledger, s.now()) {
		return s.stored(ctx, ledger)
	}

	leader := false
	v, err, shared := s.group.Do(userID, func() (any, error) {
		leader = true
		// the run outlives a leader that goes away; the engine bounds it
		return s.refresh(context.WithoutCancel(ctx), userID)
	})
	if shared && !leader {
		metrics.SnapshotRequests.WithLabelValues("coalesced").Inc()
	}
	if err != nil {
		return nil, err
	}
	res := *v.(*Result)
	return &res, nil
}

// stored serves the persisted snapshot of a FRESH user.
func (s *Service) stored(ctx context.Context, ledger storage.Ledger) (*Result, error) {
	snap, err := s.store.GetSnapshot(ctx, ledger.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(snap) == 0 {
		metrics.SnapshotRequests.WithLabelValues("rate_limited").Inc()
		logging.Ctx(ctx).Debug().
			Time("last_refresh", ledger.LastRefresh).
			Msg("pack picker rate limited, no snapshot yet")
		return nil, ErrRateLimited
	}
	metrics.SnapshotRequests.WithLabelValues("fresh").Inc()
	return &Result{Boosters: snap, LastRefresh: ledger.LastRefresh, State: StateFresh}, nil
}

func (s *Service) refresh(ctx context.Context, userID string) (*Result, error) {
	// a flight that finished just before this one may already have refreshed
	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh ledger: %w", err)
	}
	if s.fresh(ledger, s.now()) {
		return s.stored(ctx, ledger)
	}
	metrics.SnapshotRequests.WithLabelValues("stale").Inc()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to admit refresh: %w", err)
		}
	}

	start := s.now()
	stats, err := s.runner.Run(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	log := logging.Ctx(ctx)
	committed, err := s.store.CommitRefresh(ctx, ledger, now, stats)
	switch {
	case errors.Is(err, storage.ErrRefreshConflict):
		// another writer committed first; serve its snapshot
		if res, rerr := s.winner(ctx, userID); rerr == nil {
			log.Debug().Msg("refresh lost commit race, serving stored snapshot")
			return res, nil
		}
		return &Result{Boosters: stats, LastRefresh: now, State: StateStale, Refreshed: true}, nil
	case err != nil:
		perr := &PersistenceError{UserID: userID, Err: err}
		metrics.SnapshotWriteFailures.Inc()
		log.Error().Err(err).Int("boosters", len(stats)).Msg("failed to persist pack picker snapshot")
		return &Result{Boosters: stats, LastRefresh: now, State: StateStale, Refreshed: true, PersistErr: perr}, nil
	}

	log.Info().
		Int("boosters", len(stats)).
		Dur("duration", now.Sub(start)).
		Int("refresh_count", committed.RefreshCount).
		Msg("pack picker refreshed")
	return &Result{Boosters: stats, LastRefresh: committed.LastRefresh, State: StateStale, Refreshed: true}, nil
}

func (s *Service) winner(ctx context.Context, userID string) (*Result, error) {
	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.GetSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(snap) == 0 {
		return nil, ErrRateLimited
	}
	return &Result{Boosters: snap, LastRefresh: ledger.LastRefresh, State: StateStale}, nil
}
