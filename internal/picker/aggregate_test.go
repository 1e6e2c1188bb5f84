package picker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
	"github.com/xtding233/packpicker/internal/picker"
)

func aggregate(t *testing.T, b pack.Booster, rates []pack.DropRate, cards []pack.Card, owned map[int64]struct{}, seed uint64) picker.BoosterStats {
	t.Helper()
	tables, _ := picker.BuildTables(b, rates)
	pools := picker.IndexPools(cards, owned)
	sim := picker.NewSimulator(b.SixthCardProb, tables)
	out, err := picker.Aggregate(context.Background(), sim, pools, gacha.DefaultTrials, gacha.NewSeededRNG(seed))
	require.NoError(t, err)
	return out.Stats(b, pools, tables)
}

func TestAggregateScenarioExpectation(t *testing.T) {
	bs := aggregate(t, scenarioBooster, scenarioRates(), scenarioCards(), scenarioOwned(), 2025)

	d2 := bs.Rarities[pack.TwoDiamond]
	assert.InDelta(t, 0.3, d2.ExpectedNew, 0.05)
	assert.Equal(t, 5, d2.MissingCount)
	assert.Equal(t, 10, d2.TotalCount)

	d1 := bs.Rarities[pack.OneDiamond]
	assert.Zero(t, d1.ExpectedNew)
	assert.Zero(t, d1.ChanceNew)
	assert.Equal(t, 0, d1.MissingCount)
	assert.Equal(t, 10, d1.TotalCount)

	// 1 - (1 - 0.2*0.5)^3 = 27.1%
	assert.InDelta(t, 27.1, d2.ChanceNew, 2.5)
	assert.Equal(t, d2.ChanceNew, bs.Overall.ChanceNew)
	assert.Equal(t, 5, bs.Overall.MissingCount)
	assert.Equal(t, 20, bs.Overall.TotalCount)
	assert.Zero(t, bs.Rare.ChanceNew)
}

func TestAggregateNoDropRowsIsZero(t *testing.T) {
	bs := aggregate(t, scenarioBooster, nil, scenarioCards(), nil, 1)
	assert.Zero(t, bs.Overall.ChanceNew)
	assert.Zero(t, bs.Overall.ExpectedNew)
	assert.Equal(t, 20, bs.Overall.MissingCount)
}

func TestAggregateGroupingsPartitionOverall(t *testing.T) {
	b := pack.Booster{ID: 7, TCGID: "B7", SixthCardProb: 0.3}
	cards := append(cardRange(1, 8, pack.OneDiamond, false), cardRange(20, 4, pack.OneStar, false)...)
	cards = append(cards, cardRange(40, 2, pack.OneStar, true)...)
	bs := aggregate(t, b, fullRates(7), cards, ownedSet(1, 2, 3, 20), 99)

	assert.InDelta(t, bs.Overall.ExpectedNew, bs.Base.ExpectedNew+bs.Rare.ExpectedNew, 0.011)
	assert.Equal(t, bs.Overall.MissingCount, bs.Base.MissingCount+bs.Rare.MissingCount)
	assert.Equal(t, bs.Overall.TotalCount, bs.Base.TotalCount+bs.Rare.TotalCount)
	assert.Equal(t, 6, bs.Rarities[pack.OneStar].TotalCount, "sixth-slot cards count toward their rarity")
	assert.LessOrEqual(t, bs.Base.ChanceNew, bs.Overall.ChanceNew)
	assert.LessOrEqual(t, bs.Rare.ChanceNew, bs.Overall.ChanceNew)
	for r, st := range bs.Rarities {
		assert.LessOrEqual(t, st.MissingCount, st.TotalCount, r.String())
		assert.LessOrEqual(t, st.ChanceNew, 100.0)
	}
}

func TestAggregateMonotoneInOwnership(t *testing.T) {
	before := aggregate(t, scenarioBooster, scenarioRates(), scenarioCards(), scenarioOwned(), 7)

	// card 15 becomes unowned
	after := aggregate(t, scenarioBooster, scenarioRates(), scenarioCards(), ownedSet(append(idRange(1, 10), idRange(11, 14)...)...), 7)

	b, a := before.Rarities[pack.TwoDiamond], after.Rarities[pack.TwoDiamond]
	assert.Greater(t, a.MissingCount, b.MissingCount)
	assert.GreaterOrEqual(t, a.ChanceNew, b.ChanceNew)
	assert.GreaterOrEqual(t, a.ExpectedNew, b.ExpectedNew)
	assert.GreaterOrEqual(t, after.Overall.ChanceNew, before.Overall.ChanceNew)
}

func TestAggregateSeededIsReproducible(t *testing.T) {
	a := aggregate(t, scenarioBooster, scenarioRates(), scenarioCards(), scenarioOwned(), 123)
	b := aggregate(t, scenarioBooster, scenarioRates(), scenarioCards(), scenarioOwned(), 123)
	assert.Equal(t, a, b)
}

func TestAggregateReportsConfiguredRaritiesOnly(t *testing.T) {
	bs := aggregate(t, scenarioBooster, scenarioRates(), scenarioCards(), nil, 1)
	assert.Len(t, bs.Rarities, 2)
	assert.NotContains(t, bs.Rarities, pack.Crown)
}

func TestAggregateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tables, _ := picker.BuildTables(scenarioBooster, scenarioRates())
	_, err := picker.Aggregate(ctx, picker.NewSimulator(0, tables), picker.IndexPools(nil, nil), 10, gacha.NewSeededRNG(1))
	assert.ErrorIs(t, err, context.Canceled)
}
