package picker

import (
	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
)

// guaranteedDraws is the number of i.i.d. draws from the "1-3" table per opening.
const guaranteedDraws = 3

// MaxPulls is the largest number of cards one opening can yield.
const MaxPulls = guaranteedDraws + 3

// Pull is one drawn card: the slot it came from, its rarity and its pool.
type Pull struct {
	Slot   pack.Slot
	Rarity pack.Rarity
	Pool   pack.Pool
}

// Simulator draws single booster openings from a booster's drop tables.
// The god-pack table is not drawn here; it only enters Odds as a weighted mix.
type Simulator struct {
	sixthProb  float64
	firstThree *RarityTable
	four       *RarityTable
	five       *RarityTable
	sixth      *RarityTable
}

// NewSimulator builds a simulator. sixthProb must already be a valid probability.
func NewSimulator(sixthProb float64, tables DropTables) *Simulator {
	return &Simulator{
		sixthProb:  sixthProb,
		firstThree: tables[pack.SlotFirstThree],
		four:       tables[pack.SlotFour],
		five:       tables[pack.SlotFive],
		sixth:      tables[pack.SlotSixth],
	}
}

// Open simulates one booster opening and appends its pulls to buf.
//
// The sixth-slot Bernoulli trial is decided first and always consumes one value
// from rng. Then three draws from "1-3", one from "4" and one from "5" follow,
// and finally the sixth-slot draw when the trial succeeded and a "6" table exists.
// A slot without a table contributes no pull.
func (s *Simulator) Open(rng gacha.RandomSource, buf []Pull) []Pull {
	sixth := gacha.Flip(s.sixthProb, rng)

	for i := 0; i < guaranteedDraws; i++ {
		buf = s.pick(rng, buf, s.firstThree, pack.SlotFirstThree)
	}
	buf = s.pick(rng, buf, s.four, pack.SlotFour)
	buf = s.pick(rng, buf, s.five, pack.SlotFive)
	if sixth {
		buf = s.pick(rng, buf, s.sixth, pack.SlotSixth)
	}
	return buf
}

func (s *Simulator) pick(rng gacha.RandomSource, buf []Pull, tbl *RarityTable, slot pack.Slot) []Pull {
	r, ok := tbl.Pick(rng)
	if !ok {
		return buf
	}
	return append(buf, Pull{Slot: slot, Rarity: r, Pool: pack.PoolFor(slot)})
}
