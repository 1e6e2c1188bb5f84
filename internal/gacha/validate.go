package gacha

import (
	"errors"
	"math"
)

var ErrInvalidWeight = errors.New("invalid weight; must be finite and >= 0")

func validateProb(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return ErrInvalidProb
	}
	if p < 0 || p > 1 {
		return ErrInvalidProb
	}
	return nil
}

// ValidateProb reports ErrInvalidProb unless p is a finite value in [0,1].
func ValidateProb(p float64) error { return validateProb(p) }

func validateWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return ErrInvalidWeight
	}
	return nil
}

// ValidateWeight reports ErrInvalidWeight unless w is finite and non-negative.
func ValidateWeight(w float64) error { return validateWeight(w) }
