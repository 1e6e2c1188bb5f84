package picker

import (
	"errors"
	"fmt"

	"github.com/xtding233/packpicker/internal/pack"
)

// ErrSimulationTimeout is returned when a refresh exceeds its time budget.
var ErrSimulationTimeout = errors.New("pack simulation timed out")

// ErrBoosterNotFound is returned for an unknown booster ID.
var ErrBoosterNotFound = errors.New("booster not found")

// Inconsistency reasons.
const (
	ReasonInvalidWeight = "invalid_weight"
	ReasonInvalidProb   = "invalid_probability"
	ReasonEmptyPool     = "empty_pool"
	ReasonForeignRow    = "foreign_row"
)

// InconsistencyError describes a catalog row that cannot be used as configured.
// It is reported and counted but never aborts a refresh.
type InconsistencyError struct {
	BoosterID string
	Slot      pack.Slot
	Rarity    pack.Rarity
	Reason    string
}

func (e *InconsistencyError) Error() string {
	if !e.Slot.Valid() {
		return fmt.Sprintf("booster %s: %s", e.BoosterID, e.Reason)
	}
	if !e.Rarity.Valid() {
		return fmt.Sprintf("booster %s slot %s: %s", e.BoosterID, e.Slot, e.Reason)
	}
	return fmt.Sprintf("booster %s slot %s rarity %s: %s", e.BoosterID, e.Slot, e.Rarity, e.Reason)
}
