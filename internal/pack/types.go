// Package pack holds the catalog vocabulary shared by the simulator, storage and API:
// rarities, slots, card pools and the read-only catalog records.
package pack

// Default booster probabilities used when the catalog leaves them unset.
const (
	DefaultGodPackProb   = 0.0005
	DefaultSixthCardProb = 0.0
)

// Booster is a purchasable pack product.
type Booster struct {
	ID            int64
	TCGID         string
	Name          string
	SetTCGID      string // first associated set, empty if none
	GodPackProb   float64
	SixthCardProb float64
}

// DropRate is one weighted (slot, rarity) row of a booster's drop table.
type DropRate struct {
	BoosterID   int64
	Slot        Slot
	Rarity      Rarity
	Probability float64
}

// Card is a catalog card as seen from one booster.
type Card struct {
	ID             int64
	TCGID          string
	Name           string
	Rarity         Rarity
	SixthExclusive bool
}

// Pool returns the booster card pool this card belongs to.
func (c Card) Pool() Pool {
	if c.SixthExclusive {
		return PoolSixth
	}
	return PoolNormal
}
