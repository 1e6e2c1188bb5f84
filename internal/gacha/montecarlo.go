package gacha

import (
	"context"
	"math"
)

// DefaultTrials is the number of independent trials used by production runs.
const DefaultTrials = 5000

// ctxCheckEvery controls how often RunTrials polls ctx for cancellation.
const ctxCheckEvery = 256

// RunTrials repeats trial `trials` times against rng. Trials are independent;
// the rng is shared and advanced sequentially, so a seeded source makes the
// whole run reproducible. The context is polled between batches of trials and
// its error is returned as soon as it is done.
func RunTrials(ctx context.Context, trials int, rng RandomSource, trial func(RandomSource)) error {
	if trials <= 0 {
		return nil
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	for i := 0; i < trials; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		trial(rng)
	}
	return nil
}

// Round2 rounds to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Ratio returns num/den, or 0 when den is not positive.
func Ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

// Percent returns num/den as a percentage rounded to 2dp, 0 when den is not positive.
func Percent(num, den int) float64 {
	return Round2(Ratio(float64(num), float64(den)) * 100)
}

// Mean returns sum/n rounded to 2dp, 0 when n is not positive.
func Mean(sum, n int) float64 {
	return Round2(Ratio(float64(sum), float64(n)))
}
