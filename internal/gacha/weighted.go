package gacha

// Outcome is one categorical option with a relative weight.
type Outcome[T any] struct {
	Value  T
	Weight float64
}

// WeightedTable is a categorical distribution over relative weights.
// Weights need not sum to 1. Zero-weight entries are kept out of the table.
type WeightedTable[T any] struct {
	values     []T
	cumulative []float64
	total      float64
}

// NewWeightedTable builds a table from outcomes. It returns ErrInvalidWeight
// when any weight is negative or not finite.
func NewWeightedTable[T any](outcomes []Outcome[T]) (*WeightedTable[T], error) {
	t := &WeightedTable[T]{}
	for _, o := range outcomes {
		if err := validateWeight(o.Weight); err != nil {
			return nil, err
		}
		if o.Weight == 0 {
			continue
		}
		t.total += o.Weight
		t.values = append(t.values, o.Value)
		t.cumulative = append(t.cumulative, t.total)
	}
	return t, nil
}

// Empty reports whether the table has no positive weight, i.e. contributes no draw.
func (t *WeightedTable[T]) Empty() bool { return t == nil || t.total <= 0 }

// Len is the number of outcomes with positive weight.
func (t *WeightedTable[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.values)
}

// Prob returns the normalised probability of the i-th outcome.
func (t *WeightedTable[T]) Prob(i int) float64 {
	if t.Empty() || i < 0 || i >= len(t.values) {
		return 0
	}
	prev := 0.0
	if i > 0 {
		prev = t.cumulative[i-1]
	}
	return (t.cumulative[i] - prev) / t.total
}

// Value returns the i-th outcome.
func (t *WeightedTable[T]) Value(i int) T { return t.values[i] }

// Pick draws one outcome. ok is false for an empty table, in which case rng is not consumed.
func (t *WeightedTable[T]) Pick(rng RandomSource) (v T, ok bool) {
	if t.Empty() {
		return v, false
	}
	roll := rng.Float64() * t.total
	// linear scan: tables hold at most a handful of rarities
	for i, c := range t.cumulative {
		if roll < c {
			return t.values[i], true
		}
	}
	return t.values[len(t.values)-1], true
}
