package picker

import (
	"math"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
)

// godPackSize is the number of god-table draws in a god pack.
const godPackSize = 5

// RarityOdds is the chance, in percent, that one pack holds at least one card
// of a rarity, split by how the card can arrive.
type RarityOdds struct {
	Regular float64 // slots 1-5 of a regular pack
	Sixth   float64 // bonus sixth slot alone
	God     float64 // inside a god pack, given a god pack
	Total   float64 // god-pack and sixth-card probabilities applied
}

// Odds computes per-rarity pack odds in closed form. The god pack is never
// drawn as a branch by the simulator; here its probability weights a separate
// five-draw god-table contribution:
//
//	total = (1-g) * (1 - (1-regular)(1 - s*q6)) + g * god
func Odds(b pack.Booster, tables DropTables) map[pack.Rarity]RarityOdds {
	g, _ := boosterProb(b, b.GodPackProb, pack.SlotGod)
	s, _ := boosterProb(b, b.SixthCardProb, pack.SlotSixth)

	out := map[pack.Rarity]RarityOdds{}
	for _, r := range tables.Rarities() {
		miss := math.Pow(1-tables.Prob(pack.SlotFirstThree, r), guaranteedDraws) *
			(1 - tables.Prob(pack.SlotFour, r)) *
			(1 - tables.Prob(pack.SlotFive, r))
		regular := 1 - miss
		sixth := s * tables.Prob(pack.SlotSixth, r)
		god := 1 - math.Pow(1-tables.Prob(pack.SlotGod, r), godPackSize)
		normal := 1 - (1-regular)*(1-sixth)
		total := (1-g)*normal + g*god

		out[r] = RarityOdds{
			Regular: gacha.Round2(regular * 100),
			Sixth:   gacha.Round2(sixth * 100),
			God:     gacha.Round2(god * 100),
			Total:   gacha.Round2(total * 100),
		}
	}
	return out
}
