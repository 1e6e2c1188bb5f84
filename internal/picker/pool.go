package picker

import (
	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
)

// Bucket counts the cards of one rarity inside one pool.
type Bucket struct {
	Total   int
	Missing int
}

// NewProb is the chance that a uniformly random member of the bucket is unowned.
// An empty bucket yields 0.
func (b Bucket) NewProb() float64 {
	return gacha.Ratio(float64(b.Missing), float64(b.Total))
}

// PoolCounts holds per-rarity totals and missing counts for one card pool.
type PoolCounts struct {
	Total   map[pack.Rarity]int
	Missing map[pack.Rarity]int
}

func newPoolCounts() PoolCounts {
	return PoolCounts{Total: map[pack.Rarity]int{}, Missing: map[pack.Rarity]int{}}
}

// Bucket returns the counts of one rarity.
func (p PoolCounts) Bucket(r pack.Rarity) Bucket {
	return Bucket{Total: p.Total[r], Missing: p.Missing[r]}
}

// OwnedCard is a pool member annotated with the requesting user's ownership.
type OwnedCard struct {
	pack.Card
	Owned bool
}

// Pools is the indexed card pool of one booster for one user.
type Pools struct {
	Normal PoolCounts
	Sixth  PoolCounts

	cards [2]map[pack.Rarity][]OwnedCard
}

// Of returns the counts of the given pool.
func (p Pools) Of(pool pack.Pool) PoolCounts {
	if pool == pack.PoolSixth {
		return p.Sixth
	}
	return p.Normal
}

// Cards returns the members of a (pool, rarity) bucket in catalog order.
func (p Pools) Cards(pool pack.Pool, r pack.Rarity) []OwnedCard {
	if p.cards[pool] == nil {
		return nil
	}
	return p.cards[pool][r]
}

// Combined returns normal+sixth counts for one rarity.
func (p Pools) Combined(r pack.Rarity) Bucket {
	n, s := p.Normal.Bucket(r), p.Sixth.Bucket(r)
	return Bucket{Total: n.Total + s.Total, Missing: n.Missing + s.Missing}
}

// IndexPools partitions a booster's cards into the normal and sixth-slot pools and
// counts totals and unowned cards per rarity. Cards with an invalid rarity are
// ignored. owned holds the IDs the user owns with quantity > 0; a nil set means
// the user owns nothing. The function has no side effects.
func IndexPools(cards []pack.Card, owned map[int64]struct{}) Pools {
	p := Pools{Normal: newPoolCounts(), Sixth: newPoolCounts()}
	p.cards[pack.PoolNormal] = map[pack.Rarity][]OwnedCard{}
	p.cards[pack.PoolSixth] = map[pack.Rarity][]OwnedCard{}

	seen := make(map[int64]struct{}, len(cards))
	for _, c := range cards {
		if !c.Rarity.Valid() {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}

		_, has := owned[c.ID]
		counts := p.Of(c.Pool())
		counts.Total[c.Rarity]++
		if !has {
			counts.Missing[c.Rarity]++
		}
		p.cards[c.Pool()][c.Rarity] = append(p.cards[c.Pool()][c.Rarity], OwnedCard{Card: c, Owned: has})
	}
	return p
}
