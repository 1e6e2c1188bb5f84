package picker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
	"github.com/xtding233/packpicker/internal/picker"
)

func fullRates(boosterID int64) []pack.DropRate {
	var rates []pack.DropRate
	for _, s := range []pack.Slot{pack.SlotFirstThree, pack.SlotFour, pack.SlotFive, pack.SlotSixth, pack.SlotGod} {
		rates = append(rates,
			pack.DropRate{BoosterID: boosterID, Slot: s, Rarity: pack.OneDiamond, Probability: 0.7},
			pack.DropRate{BoosterID: boosterID, Slot: s, Rarity: pack.OneStar, Probability: 0.3},
		)
	}
	return rates
}

func TestOpenYieldsFourToSixPulls(t *testing.T) {
	b := pack.Booster{ID: 7, TCGID: "B7", SixthCardProb: 0.5}
	tables, issues := picker.BuildTables(b, fullRates(7))
	require.Empty(t, issues)
	sim := picker.NewSimulator(b.SixthCardProb, tables)

	rng := gacha.NewSeededRNG(3)
	sizes := map[int]int{}
	for i := 0; i < 2000; i++ {
		pulls := sim.Open(rng, nil)
		sizes[len(pulls)]++
		require.GreaterOrEqual(t, len(pulls), 4)
		require.LessOrEqual(t, len(pulls), picker.MaxPulls)
		for j, p := range pulls {
			assert.NotEqual(t, pack.SlotGod, p.Slot, "god table is never drawn")
			if p.Slot == pack.SlotSixth {
				assert.Equal(t, 5, j, "sixth slot is drawn last")
				assert.Equal(t, pack.PoolSixth, p.Pool)
			} else {
				assert.Equal(t, pack.PoolNormal, p.Pool)
			}
		}
	}
	assert.Positive(t, sizes[5])
	assert.Positive(t, sizes[6])
}

func TestZeroSixthProbNeverDrawsSixthSlot(t *testing.T) {
	b := pack.Booster{ID: 7, TCGID: "B7", SixthCardProb: 0}
	tables, _ := picker.BuildTables(b, fullRates(7))
	sim := picker.NewSimulator(b.SixthCardProb, tables)

	rng := gacha.NewSeededRNG(11)
	for i := 0; i < gacha.DefaultTrials; i++ {
		for _, p := range sim.Open(rng, nil) {
			require.NotEqual(t, pack.SlotSixth, p.Slot)
		}
	}
}

func TestMissingSlotContributesNoPull(t *testing.T) {
	tables, _ := picker.BuildTables(scenarioBooster, scenarioRates())
	sim := picker.NewSimulator(1, tables)

	pulls := sim.Open(gacha.NewSeededRNG(1), nil)
	assert.Len(t, pulls, 3, "only the 1-3 table is configured")

	empty := picker.NewSimulator(1, picker.DropTables{})
	assert.Empty(t, empty.Open(gacha.NewSeededRNG(1), nil))
}

func TestBuildTablesReportsBadRows(t *testing.T) {
	b := pack.Booster{ID: 1, TCGID: "A1"}
	rates := []pack.DropRate{
		{BoosterID: 1, Slot: pack.SlotFour, Rarity: pack.OneDiamond, Probability: -1},
		{BoosterID: 2, Slot: pack.SlotFour, Rarity: pack.TwoDiamond, Probability: 1},
		{BoosterID: 1, Slot: pack.SlotFour, Rarity: pack.ThreeDiamond, Probability: 2},
		{BoosterID: 1, Slot: pack.SlotFive, Rarity: pack.Crown, Probability: 0},
	}
	tables, issues := picker.BuildTables(b, rates)

	require.Len(t, issues, 2)
	assert.Equal(t, picker.ReasonInvalidWeight, issues[0].Reason)
	assert.Equal(t, picker.ReasonForeignRow, issues[1].Reason)
	assert.Equal(t, 1.0, tables.Prob(pack.SlotFour, pack.ThreeDiamond))
	assert.False(t, tables.Has(pack.SlotFive), "all-zero table is absent")
	assert.Equal(t, []pack.Rarity{pack.ThreeDiamond}, tables.Rarities())
	assert.Contains(t, issues[0].Error(), "booster A1 slot 4 rarity")
}
