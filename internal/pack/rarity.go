package pack

import (
	"fmt"
	"strings"
)

// Rarity is a card rarity tier. The zero value is not a valid rarity.
// Declaration order is the display order.
type Rarity uint8

const (
	OneDiamond Rarity = iota + 1
	TwoDiamond
	ThreeDiamond
	FourDiamond
	OneStar
	TwoStar
	ThreeStar
	OneShiny
	TwoShiny
	Crown
)

var rarityNames = [...]string{
	OneDiamond:   "One Diamond",
	TwoDiamond:   "Two Diamond",
	ThreeDiamond: "Three Diamond",
	FourDiamond:  "Four Diamond",
	OneStar:      "One Star",
	TwoStar:      "Two Star",
	ThreeStar:    "Three Star",
	OneShiny:     "One Shiny",
	TwoShiny:     "Two Shiny",
	Crown:        "Crown",
}

// Rarities lists every rarity in display order.
func Rarities() []Rarity {
	out := make([]Rarity, 0, len(rarityNames)-1)
	for r := OneDiamond; r <= Crown; r++ {
		out = append(out, r)
	}
	return out
}

// Valid reports whether r is one of the declared rarities.
func (r Rarity) Valid() bool { return r >= OneDiamond && r <= Crown }

func (r Rarity) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rarity(%d)", uint8(r))
	}
	return rarityNames[r]
}

// Grouping returns the reporting group the rarity belongs to.
func (r Rarity) Grouping() Grouping {
	if r >= OneDiamond && r <= FourDiamond {
		return GroupBase
	}
	return GroupRare
}

// ParseRarity accepts the display name, case and surrounding space insensitive.
func ParseRarity(s string) (Rarity, error) {
	s = strings.TrimSpace(s)
	for r := OneDiamond; r <= Crown; r++ {
		if strings.EqualFold(rarityNames[r], s) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rarity %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rarity %d", uint8(r))
	}
	return []byte(rarityNames[r]), nil
}

func (r *Rarity) UnmarshalText(b []byte) error {
	v, err := ParseRarity(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Grouping is the base/rare partition used for aggregate reporting.
type Grouping uint8

const (
	GroupBase Grouping = iota // Diamond tiers
	GroupRare                 // Star, Shiny and Crown tiers
)

func (g Grouping) String() string {
	if g == GroupBase {
		return "base"
	}
	return "rare"
}
