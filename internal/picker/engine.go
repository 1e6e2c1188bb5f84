// Package picker estimates, for every booster, how likely the next opening is
// to yield at least one card the user does not own yet.
//
// The pipeline is: IndexPools (per-rarity totals and missing counts for the
// normal and sixth-slot pools) → Simulator (one weighted opening) → Aggregate
// (N independent openings turned into percentages and expectations). Engine
// wires the pipeline to the catalog and ownership stores.
package picker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/logging"
	"github.com/xtding233/packpicker/internal/metrics"
	"github.com/xtding233/packpicker/internal/pack"
)

// Catalog is the read-only source of boosters, drop rates and cards.
type Catalog interface {
	ListBoosters(ctx context.Context) ([]pack.Booster, error)
	GetBooster(ctx context.Context, tcgID string) (pack.Booster, bool, error)
	DropRates(ctx context.Context, boosterID int64) ([]pack.DropRate, error)
	Cards(ctx context.Context, boosterID int64, pool pack.Pool) ([]pack.Card, error)
}

// Ownership reports which of the candidate cards a user owns with quantity > 0.
type Ownership interface {
	OwnedCardIDs(ctx context.Context, userID string, cardIDs []int64) (map[int64]struct{}, error)
}

// Config tunes a simulation run.
type Config struct {
	Trials  int           // independent openings per booster
	Workers int           // boosters simulated in parallel; <= 0 means GOMAXPROCS
	Timeout time.Duration // bound on one full run; <= 0 disables it
	Seed    uint64        // 0 draws a fresh seed per run
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{Trials: gacha.DefaultTrials, Timeout: 30 * time.Second}
}

// Engine runs the per-booster pipeline against the stores.
type Engine struct {
	catalog   Catalog
	ownership Ownership
	cfg       Config
}

// NewEngine creates an Engine.
func NewEngine(catalog Catalog, ownership Ownership, cfg Config) *Engine {
	if cfg.Trials < 0 {
		cfg.Trials = 0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{catalog: catalog, ownership: ownership, cfg: cfg}
}

// Input is everything the CPU-bound part needs for one booster.
type Input struct {
	Booster pack.Booster
	Tables  DropTables
	Pools   Pools
	Sim     *Simulator
	Issues  []*InconsistencyError
}

// Prepare reads drop rates, both card pools and the user's ownership of them.
func (e *Engine) Prepare(ctx context.Context, userID string, b pack.Booster) (*Input, error) {
	rates, err := e.catalog.DropRates(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load drop rates for %s: %w", b.TCGID, err)
	}
	normal, err := e.catalog.Cards(ctx, b.ID, pack.PoolNormal)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards for %s: %w", b.TCGID, err)
	}
	sixth, err := e.catalog.Cards(ctx, b.ID, pack.PoolSixth)
	if err != nil {
		return nil, fmt.Errorf("failed to load sixth-slot cards for %s: %w", b.TCGID, err)
	}
	cards := append(normal, sixth...)

	var owned map[int64]struct{}
	if userID != "" && len(cards) > 0 {
		ids := make([]int64, len(cards))
		for i, c := range cards {
			ids[i] = c.ID
		}
		owned, err = e.ownership.OwnedCardIDs(ctx, userID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load ownership: %w", err)
		}
	}

	in := &Input{Booster: b, Pools: IndexPools(cards, owned)}
	in.Tables, in.Issues = BuildTables(b, rates)
	in.Issues = append(in.Issues, checkPools(b, in.Tables, in.Pools)...)
	sixthProb, issue := boosterProb(b, b.SixthCardProb, pack.SlotSixth)
	if issue != nil {
		in.Issues = append(in.Issues, issue)
	}
	if _, issue := boosterProb(b, b.GodPackProb, pack.SlotGod); issue != nil {
		in.Issues = append(in.Issues, issue)
	}
	in.Sim = NewSimulator(sixthProb, in.Tables)
	return in, nil
}

// Simulate runs the configured number of trials for one prepared booster.
func (e *Engine) Simulate(ctx context.Context, in *Input, rng gacha.RandomSource) (BoosterStats, error) {
	out, err := Aggregate(ctx, in.Sim, in.Pools, e.cfg.Trials, rng)
	if err != nil {
		return BoosterStats{}, err
	}
	return out.Stats(in.Booster, in.Pools, in.Tables), nil
}

// Run simulates every catalog booster for a user. All store reads happen
// before any simulation starts. Boosters are simulated in parallel, each on
// its own stream derived from the run seed, and the result is sorted by
// overall chance of a new card, highest first.
func (e *Engine) Run(ctx context.Context, userID string) ([]BoosterStats, error) {
	start := time.Now()
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	stats, err := e.run(ctx, userID)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		metrics.SimulationRuns.WithLabelValues("timeout").Inc()
		return nil, fmt.Errorf("%w after %s: %w", ErrSimulationTimeout, time.Since(start).Round(time.Millisecond), err)
	case err != nil:
		metrics.SimulationRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SimulationRuns.WithLabelValues("ok").Inc()
	metrics.SimulationDuration.Observe(time.Since(start).Seconds())
	return stats, nil
}

func (e *Engine) run(ctx context.Context, userID string) ([]BoosterStats, error) {
	boosters, err := e.catalog.ListBoosters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list boosters: %w", err)
	}

	inputs := make([]*Input, 0, len(boosters))
	for _, b := range boosters {
		in, err := e.Prepare(ctx, userID, b)
		if err != nil {
			return nil, err
		}
		reportIssues(ctx, in.Issues)
		inputs = append(inputs, in)
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = gacha.RandomSeed()
	}

	results := make([]BoosterStats, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, in := range inputs {
		g.Go(func() error {
			rng := gacha.NewSeededRNG(gacha.DeriveSeed(seed, in.Booster.TCGID))
			bs, err := e.Simulate(gctx, in, rng)
			if err != nil {
				return err
			}
			results[i] = bs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortByChance(results)
	return results, nil
}

// SortByChance orders boosters by overall chance of a new card, highest first,
// then by booster ID.
func SortByChance(stats []BoosterStats) {
	slices.SortStableFunc(stats, func(a, b BoosterStats) int {
		if c := cmp.Compare(b.Overall.ChanceNew, a.Overall.ChanceNew); c != 0 {
			return c
		}
		return cmp.Compare(a.Booster.TCGID, b.Booster.TCGID)
	})
}

// Odds returns the closed-form pack odds of one booster.
func (e *Engine) Odds(ctx context.Context, boosterID string) (pack.Booster, map[pack.Rarity]RarityOdds, error) {
	b, err := e.booster(ctx, boosterID)
	if err != nil {
		return pack.Booster{}, nil, err
	}
	rates, err := e.catalog.DropRates(ctx, b.ID)
	if err != nil {
		return pack.Booster{}, nil, fmt.Errorf("failed to load drop rates for %s: %w", b.TCGID, err)
	}
	tables, issues := BuildTables(b, rates)
	reportIssues(ctx, issues)
	return b, Odds(b, tables), nil
}

// Open simulates one opening of a booster for a user with concrete cards.
func (e *Engine) Open(ctx context.Context, userID, boosterID string, rng gacha.RandomSource) (pack.Booster, []OpenedCard, error) {
	b, err := e.booster(ctx, boosterID)
	if err != nil {
		return pack.Booster{}, nil, err
	}
	in, err := e.Prepare(ctx, userID, b)
	if err != nil {
		return pack.Booster{}, nil, err
	}
	reportIssues(ctx, in.Issues)
	if rng == nil {
		rng = gacha.DefaultRNG()
	}
	return b, OpenPack(in.Sim, in.Pools, rng), nil
}

func (e *Engine) booster(ctx context.Context, boosterID string) (pack.Booster, error) {
	b, ok, err := e.catalog.GetBooster(ctx, boosterID)
	if err != nil {
		return pack.Booster{}, fmt.Errorf("failed to load booster %s: %w", boosterID, err)
	}
	if !ok {
		return pack.Booster{}, fmt.Errorf("%w: %s", ErrBoosterNotFound, boosterID)
	}
	return b, nil
}

func reportIssues(ctx context.Context, issues []*InconsistencyError) {
	for _, is := range issues {
		metrics.CatalogInconsistencies.WithLabelValues(is.Reason).Inc()
		logging.Ctx(ctx).Warn().
			Str("booster_id", is.BoosterID).
			Stringer("slot", is.Slot).
			Stringer("rarity", is.Rarity).
			Str("reason", is.Reason).
			Msg("catalog inconsistency")
	}
}
