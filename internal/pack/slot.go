package pack

import (
	"fmt"
	"strings"
)

// Slot identifies one drop-rate table of a booster.
type Slot uint8

const (
	SlotFirstThree Slot = iota + 1 // slots 1-3, one table shared by three draws
	SlotFour
	SlotFive
	SlotGod
	SlotSixth
)

var slotKeys = [...]string{
	SlotFirstThree: "1-3",
	SlotFour:       "4",
	SlotFive:       "5",
	SlotGod:        "god",
	SlotSixth:      "6",
}

// Slots lists every slot in table order.
func Slots() []Slot {
	return []Slot{SlotFirstThree, SlotFour, SlotFive, SlotGod, SlotSixth}
}

func (s Slot) Valid() bool { return s >= SlotFirstThree && s <= SlotSixth }

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Slot(%d)", uint8(s))
	}
	return slotKeys[s]
}

// ParseSlot accepts the storage keys plus "sixth" as an alias of "6".
func ParseSlot(s string) (Slot, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	if k == "sixth" {
		return SlotSixth, nil
	}
	for sl := SlotFirstThree; sl <= SlotSixth; sl++ {
		if slotKeys[sl] == k {
			return sl, nil
		}
	}
	return 0, fmt.Errorf("unknown slot %q", s)
}

func (s Slot) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid slot %d", uint8(s))
	}
	return []byte(slotKeys[s]), nil
}

func (s *Slot) UnmarshalText(b []byte) error {
	v, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Pool tags which card pool of a booster a draw lands in.
type Pool uint8

const (
	PoolNormal Pool = iota
	PoolSixth       // sixth-slot-exclusive cards
)

func (p Pool) String() string {
	if p == PoolSixth {
		return "sixth"
	}
	return "normal"
}

func (p Pool) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// PoolFor returns the card pool a slot draws from.
func PoolFor(s Slot) Pool {
	if s == SlotSixth {
		return PoolSixth
	}
	return PoolNormal
}
