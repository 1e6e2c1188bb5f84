package picker

import (
	"cmp"
	"slices"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
)

// RarityTable is the categorical rarity distribution of one slot.
type RarityTable = gacha.WeightedTable[pack.Rarity]

// DropTables holds one rarity table per configured slot. A missing slot
// contributes no draw.
type DropTables map[pack.Slot]*RarityTable

// Has reports whether slot has at least one positive weight.
func (t DropTables) Has(s pack.Slot) bool { return !t[s].Empty() }

// Prob returns the normalised probability of rarity r in slot s.
func (t DropTables) Prob(s pack.Slot, r pack.Rarity) float64 {
	tbl := t[s]
	for i := 0; i < tbl.Len(); i++ {
		if tbl.Value(i) == r {
			return tbl.Prob(i)
		}
	}
	return 0
}

// Rarities returns every rarity with positive weight in any slot, in display order.
func (t DropTables) Rarities() []pack.Rarity {
	var out []pack.Rarity
	for _, r := range pack.Rarities() {
		for _, s := range pack.Slots() {
			if t.Prob(s, r) > 0 {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// BuildTables groups a booster's drop-rate rows into per-slot tables. Rows with
// a negative or non-finite weight, or belonging to another booster, are skipped
// and reported.
func BuildTables(b pack.Booster, rates []pack.DropRate) (DropTables, []*InconsistencyError) {
	var issues []*InconsistencyError
	grouped := map[pack.Slot][]gacha.Outcome[pack.Rarity]{}
	for _, dr := range rates {
		switch {
		case dr.BoosterID != 0 && b.ID != 0 && dr.BoosterID != b.ID:
			issues = append(issues, &InconsistencyError{BoosterID: b.TCGID, Slot: dr.Slot, Rarity: dr.Rarity, Reason: ReasonForeignRow})
			continue
		case !dr.Slot.Valid() || !dr.Rarity.Valid():
			issues = append(issues, &InconsistencyError{BoosterID: b.TCGID, Slot: dr.Slot, Rarity: dr.Rarity, Reason: ReasonForeignRow})
			continue
		}
		if err := gacha.ValidateWeight(dr.Probability); err != nil {
			issues = append(issues, &InconsistencyError{BoosterID: b.TCGID, Slot: dr.Slot, Rarity: dr.Rarity, Reason: ReasonInvalidWeight})
			continue
		}
		grouped[dr.Slot] = append(grouped[dr.Slot], gacha.Outcome[pack.Rarity]{Value: dr.Rarity, Weight: dr.Probability})
	}

	tables := DropTables{}
	for slot, outcomes := range grouped {
		// fixed order keeps seeded runs reproducible whatever order rows arrive in
		slices.SortFunc(outcomes, func(a, b gacha.Outcome[pack.Rarity]) int { return cmp.Compare(a.Value, b.Value) })
		// weights were validated row by row above
		tbl, _ := gacha.NewWeightedTable(outcomes)
		if !tbl.Empty() {
			tables[slot] = tbl
		}
	}
	return tables, issues
}

// checkPools reports configured (slot, rarity) pairs whose card bucket is empty.
// Such draws stay in the table and simply never yield a new card.
func checkPools(b pack.Booster, tables DropTables, pools Pools) []*InconsistencyError {
	var issues []*InconsistencyError
	for _, s := range pack.Slots() {
		tbl := tables[s]
		counts := pools.Of(pack.PoolFor(s))
		for i := 0; i < tbl.Len(); i++ {
			r := tbl.Value(i)
			if counts.Total[r] == 0 {
				issues = append(issues, &InconsistencyError{BoosterID: b.TCGID, Slot: s, Rarity: r, Reason: ReasonEmptyPool})
			}
		}
	}
	return issues
}

// boosterProb sanitises a booster-level probability; an invalid value becomes 0.
func boosterProb(b pack.Booster, p float64, slot pack.Slot) (float64, *InconsistencyError) {
	if err := gacha.ValidateProb(p); err != nil {
		return 0, &InconsistencyError{BoosterID: b.TCGID, Slot: slot, Reason: ReasonInvalidProb}
	}
	return p, nil
}
