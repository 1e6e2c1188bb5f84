package picker

import (
	"context"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
)

// Stat is the reported figure set for a booster, a grouping or a single rarity.
// ChanceNew is a percentage and ExpectedNew a mean count, both rounded to 2dp.
type Stat struct {
	ChanceNew    float64
	ExpectedNew  float64
	MissingCount int
	TotalCount   int
}

// BoosterStats is the aggregated result for one booster.
type BoosterStats struct {
	Booster  pack.Booster
	Overall  Stat
	Base     Stat
	Rare     Stat
	Rarities map[pack.Rarity]Stat
}

// tally accumulates per-trial hits and new-card counts.
type tally struct {
	hits int
	sum  int
}

const rarityIndexSize = int(pack.Crown) + 1

// Aggregate runs `trials` independent openings and turns the tallies into
// probabilities and expectations.
//
// For every pull the "is it new" outcome is a weighted coin with probability
// missing/total of the bucket the pull landed in; no concrete card is chosen.
// A trial counts as a hit for a scope (overall, grouping, rarity) when at least
// one of its pulls in that scope was new.
func Aggregate(ctx context.Context, sim *Simulator, pools Pools, trials int, rng gacha.RandomSource) (Outcome, error) {
	var newProb [2][rarityIndexSize]float64
	for _, r := range pack.Rarities() {
		newProb[pack.PoolNormal][r] = pools.Normal.Bucket(r).NewProb()
		newProb[pack.PoolSixth][r] = pools.Sixth.Bucket(r).NewProb()
	}

	var (
		overall, base, rare tally
		byRarity            [rarityIndexSize]tally
		buf                 = make([]Pull, 0, MaxPulls)
	)
	err := gacha.RunTrials(ctx, trials, rng, func(rng gacha.RandomSource) {
		buf = sim.Open(rng, buf[:0])

		var anyNew, anyBase, anyRare bool
		var hitRarity [rarityIndexSize]bool
		for _, p := range buf {
			if !gacha.Flip(newProb[p.Pool][p.Rarity], rng) {
				continue
			}
			anyNew = true
			overall.sum++
			byRarity[p.Rarity].sum++
			hitRarity[p.Rarity] = true
			if p.Rarity.Grouping() == pack.GroupBase {
				anyBase = true
				base.sum++
			} else {
				anyRare = true
				rare.sum++
			}
		}
		if anyNew {
			overall.hits++
		}
		if anyBase {
			base.hits++
		}
		if anyRare {
			rare.hits++
		}
		for r, hit := range hitRarity {
			if hit {
				byRarity[r].hits++
			}
		}
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Trials: trials}
	out.overall, out.base, out.rare = overall, base, rare
	out.byRarity = byRarity
	return out, nil
}

// Outcome holds raw tallies of an Aggregate run.
type Outcome struct {
	Trials int

	overall, base, rare tally
	byRarity            [rarityIndexSize]tally
}

func (o Outcome) stat(t tally, missing, total int) Stat {
	return Stat{
		ChanceNew:    gacha.Percent(t.hits, o.Trials),
		ExpectedNew:  gacha.Mean(t.sum, o.Trials),
		MissingCount: missing,
		TotalCount:   total,
	}
}

// Stats combines the tallies with the pool counts. Rarities are reported when
// they have cards in either pool or a positive weight in any slot table.
func (o Outcome) Stats(b pack.Booster, pools Pools, tables DropTables) BoosterStats {
	bs := BoosterStats{Booster: b, Rarities: map[pack.Rarity]Stat{}}

	configured := map[pack.Rarity]bool{}
	for _, r := range tables.Rarities() {
		configured[r] = true
	}

	var missing, total [2]int // indexed by grouping
	for _, r := range pack.Rarities() {
		c := pools.Combined(r)
		g := r.Grouping()
		missing[g] += c.Missing
		total[g] += c.Total
		if c.Total == 0 && !configured[r] {
			continue
		}
		bs.Rarities[r] = o.stat(o.byRarity[r], c.Missing, c.Total)
	}

	bs.Base = o.stat(o.base, missing[pack.GroupBase], total[pack.GroupBase])
	bs.Rare = o.stat(o.rare, missing[pack.GroupRare], total[pack.GroupRare])
	bs.Overall = o.stat(o.overall, missing[pack.GroupBase]+missing[pack.GroupRare], total[pack.GroupBase]+total[pack.GroupRare])
	return bs
}
