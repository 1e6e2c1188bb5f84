package gacha

import "errors"

var ErrInvalidProb = errors.New("invalid probability p; must be 0..1")

// Flip is a Bernoulli trial that always consumes exactly one value from rng,
// so two runs with the same seed stay aligned whatever p is.
// p <= 0 never hits and p >= 1 always hits.
func Flip(p float64, rng RandomSource) bool {
	if rng == nil {
		rng = DefaultRNG()
	}
	u := rng.Float64()
	if !(p > 0) {
		return false
	}
	return u < p
}
