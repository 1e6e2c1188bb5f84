package picker_test

import (
	"context"
	"fmt"
	"maps"

	"github.com/xtding233/packpicker/internal/pack"
)

type fakeCatalog struct {
	boosters []pack.Booster
	rates    map[int64][]pack.DropRate
	cards    map[int64][]pack.Card
}

func (f *fakeCatalog) ListBoosters(ctx context.Context) ([]pack.Booster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.boosters, nil
}

func (f *fakeCatalog) GetBooster(_ context.Context, tcgID string) (pack.Booster, bool, error) {
	for _, b := range f.boosters {
		if b.TCGID == tcgID {
			return b, true, nil
		}
	}
	return pack.Booster{}, false, nil
}

func (f *fakeCatalog) DropRates(_ context.Context, boosterID int64) ([]pack.DropRate, error) {
	return f.rates[boosterID], nil
}

func (f *fakeCatalog) Cards(_ context.Context, boosterID int64, pool pack.Pool) ([]pack.Card, error) {
	var out []pack.Card
	for _, c := range f.cards[boosterID] {
		if c.Pool() == pool {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeOwnership struct {
	owned map[string]map[int64]struct{}
}

func (f *fakeOwnership) OwnedCardIDs(_ context.Context, userID string, cardIDs []int64) (map[int64]struct{}, error) {
	out := map[int64]struct{}{}
	for _, id := range cardIDs {
		if _, ok := f.owned[userID][id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// cardRange returns n cards of one rarity with consecutive IDs starting at first.
func cardRange(first int64, n int, r pack.Rarity, sixth bool) []pack.Card {
	out := make([]pack.Card, n)
	for i := range out {
		id := first + int64(i)
		out[i] = pack.Card{ID: id, TCGID: cardTCGID(id), Name: cardTCGID(id), Rarity: r, SixthExclusive: sixth}
	}
	return out
}

func cardTCGID(id int64) string { return fmt.Sprintf("c-%03d", id) }

func ownedSet(ids ...int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func idRange(first, last int64) []int64 {
	var out []int64
	for id := first; id <= last; id++ {
		out = append(out, id)
	}
	return out
}

// scenarioBooster is a booster whose only table is "1-3" {Diamond-I: 0.8, Diamond-II: 0.2}.
var scenarioBooster = pack.Booster{ID: 1, TCGID: "A1", Name: "Genetic Apex", GodPackProb: pack.DefaultGodPackProb}

func scenarioRates() []pack.DropRate {
	return []pack.DropRate{
		{BoosterID: 1, Slot: pack.SlotFirstThree, Rarity: pack.OneDiamond, Probability: 0.8},
		{BoosterID: 1, Slot: pack.SlotFirstThree, Rarity: pack.TwoDiamond, Probability: 0.2},
	}
}

// scenarioCards is 10 Diamond-I cards (IDs 1-10) and 10 Diamond-II cards (IDs 11-20).
func scenarioCards() []pack.Card {
	return append(cardRange(1, 10, pack.OneDiamond, false), cardRange(11, 10, pack.TwoDiamond, false)...)
}

// scenarioOwned owns every Diamond-I card and half of the Diamond-II cards.
func scenarioOwned() map[int64]struct{} {
	return ownedSet(append(idRange(1, 10), idRange(11, 15)...)...)
}

func scenarioCatalog() (*fakeCatalog, *fakeOwnership) {
	cat := &fakeCatalog{
		boosters: []pack.Booster{scenarioBooster},
		rates:    map[int64][]pack.DropRate{1: scenarioRates()},
		cards:    map[int64][]pack.Card{1: scenarioCards()},
	}
	own := &fakeOwnership{owned: map[string]map[int64]struct{}{"ash": maps.Clone(scenarioOwned())}}
	return cat, own
}
