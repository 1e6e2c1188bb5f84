package picker

import (
	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
)

// OpenedCard is one pull of a simulated opening resolved to a catalog card.
// Card is nil when the pull landed in an empty bucket.
type OpenedCard struct {
	Pull
	Card  *pack.Card
	Owned bool
}

// OpenPack simulates one opening and picks a concrete card uniformly from the
// matching (pool, rarity) bucket for every pull. Nothing is persisted.
func OpenPack(sim *Simulator, pools Pools, rng gacha.RandomSource) []OpenedCard {
	pulls := sim.Open(rng, make([]Pull, 0, MaxPulls))
	out := make([]OpenedCard, 0, len(pulls))
	for _, p := range pulls {
		oc := OpenedCard{Pull: p}
		members := pools.Cards(p.Pool, p.Rarity)
		if n := len(members); n > 0 {
			i := int(rng.Float64() * float64(n))
			if i >= n {
				i = n - 1
			}
			c := members[i].Card
			oc.Card = &c
			oc.Owned = members[i].Owned
		}
		out = append(out, oc)
	}
	return out
}
