package picker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xtding233/packpicker/internal/pack"
	"github.com/xtding233/packpicker/internal/picker"
)

func TestOddsClosedForm(t *testing.T) {
	b := pack.Booster{ID: 1, TCGID: "A1", GodPackProb: 0.0005, SixthCardProb: 0.5}
	rates := []pack.DropRate{
		{BoosterID: 1, Slot: pack.SlotFirstThree, Rarity: pack.OneDiamond, Probability: 1},
		{BoosterID: 1, Slot: pack.SlotFour, Rarity: pack.OneDiamond, Probability: 0.5},
		{BoosterID: 1, Slot: pack.SlotFour, Rarity: pack.TwoDiamond, Probability: 0.5},
		{BoosterID: 1, Slot: pack.SlotSixth, Rarity: pack.OneShiny, Probability: 1},
		{BoosterID: 1, Slot: pack.SlotGod, Rarity: pack.Crown, Probability: 0.1},
		{BoosterID: 1, Slot: pack.SlotGod, Rarity: pack.ThreeStar, Probability: 0.9},
	}
	tables, _ := picker.BuildTables(b, rates)
	odds := picker.Odds(b, tables)

	assert.Equal(t, 100.0, odds[pack.OneDiamond].Regular)
	assert.Equal(t, 50.0, odds[pack.TwoDiamond].Regular)

	shiny := odds[pack.OneShiny]
	assert.Zero(t, shiny.Regular)
	assert.Equal(t, 50.0, shiny.Sixth)
	// (1-0.0005) * 0.5
	assert.InDelta(t, 49.98, shiny.Total, 0.011)

	crown := odds[pack.Crown]
	// 1 - 0.9^5
	assert.Equal(t, 40.95, crown.God)
	// 0.0005 * 0.40951
	assert.Equal(t, 0.02, crown.Total)

	assert.NotContains(t, odds, pack.FourDiamond)
}

func TestOddsInvalidBoosterProbIsZero(t *testing.T) {
	b := pack.Booster{ID: 1, TCGID: "A1", GodPackProb: 2, SixthCardProb: -1}
	tables, _ := picker.BuildTables(b, []pack.DropRate{
		{BoosterID: 1, Slot: pack.SlotSixth, Rarity: pack.Crown, Probability: 1},
		{BoosterID: 1, Slot: pack.SlotFive, Rarity: pack.OneDiamond, Probability: 1},
	})
	odds := picker.Odds(b, tables)
	assert.Zero(t, odds[pack.Crown].Total)
	assert.Equal(t, 100.0, odds[pack.OneDiamond].Total)
}
