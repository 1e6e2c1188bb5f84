package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/xtding233/packpicker/internal/gacha"
	"github.com/xtding233/packpicker/internal/pack"
)

// ErrInvalidSeed wraps every seed validation failure.
var ErrInvalidSeed = errors.New("seed validation failed")

// Validate checks the semantic constraints of a seed and reports every
// violation at once.
func Validate(s *Seed) error {
	var errs []string
	addf := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	sets := map[string]bool{}
	for i, st := range s.Sets {
		switch {
		case st.ID == "":
			addf("sets[%d].id is required", i)
		case sets[st.ID]:
			addf("sets[%d].id %q is duplicated", i, st.ID)
		}
		sets[st.ID] = true
	}

	boosters := map[string]bool{}
	for i, b := range s.Boosters {
		switch {
		case b.ID == "":
			addf("boosters[%d].id is required", i)
		case boosters[b.ID]:
			addf("boosters[%d].id %q is duplicated", i, b.ID)
		}
		boosters[b.ID] = true

		if b.GodPackProb != nil && gacha.ValidateProb(*b.GodPackProb) != nil {
			addf("boosters[%s].god_pack_prob must be in [0,1]", b.ID)
		}
		if b.SixthCardProb != nil && gacha.ValidateProb(*b.SixthCardProb) != nil {
			addf("boosters[%s].sixth_card_prob must be in [0,1]", b.ID)
		}
		for _, set := range b.Sets {
			if !sets[set] {
				addf("boosters[%s].sets references unknown set %q", b.ID, set)
			}
		}
		for _, slot := range slices.Sorted(maps.Keys(b.DropRates)) {
			if _, err := pack.ParseSlot(slot); err != nil {
				addf("boosters[%s].drop_rates: %v", b.ID, err)
				continue
			}
			rates := b.DropRates[slot]
			for _, rarity := range slices.Sorted(maps.Keys(rates)) {
				if _, err := pack.ParseRarity(rarity); err != nil {
					addf("boosters[%s].drop_rates[%s]: %v", b.ID, slot, err)
				}
				if gacha.ValidateWeight(rates[rarity]) != nil {
					addf("boosters[%s].drop_rates[%s][%s] must be a finite weight >= 0", b.ID, slot, rarity)
				}
			}
		}
	}

	cards := map[string]bool{}
	for i, c := range s.Cards {
		switch {
		case c.ID == "":
			addf("cards[%d].id is required", i)
		case cards[c.ID]:
			addf("cards[%d].id %q is duplicated", i, c.ID)
		}
		cards[c.ID] = true

		if _, err := pack.ParseRarity(c.Rarity); err != nil {
			addf("cards[%s].rarity: %v", c.ID, err)
		}
		if !sets[c.Set] {
			addf("cards[%s].set references unknown set %q", c.ID, c.Set)
		}
		for _, b := range c.Boosters {
			if !boosters[b] {
				addf("cards[%s].boosters references unknown booster %q", c.ID, b)
			}
		}
		if c.SixthExclusive && len(c.Boosters) > 1 {
			addf("cards[%s] is sixth-slot exclusive and may belong to at most one booster", c.ID)
		}
	}

	for _, user := range slices.Sorted(maps.Keys(s.Collections)) {
		if strings.TrimSpace(user) == "" {
			addf("collections has an empty user id")
		}
		owned := s.Collections[user]
		for _, id := range slices.Sorted(maps.Keys(owned)) {
			if !cards[id] {
				addf("collections[%s] references unknown card %q", user, id)
			}
			if owned[id] < 0 {
				addf("collections[%s][%s] quantity must be >= 0", user, id)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSeed, strings.Join(errs, "; "))
	}
	return nil
}
