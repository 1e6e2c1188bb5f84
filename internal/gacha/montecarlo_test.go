package gacha_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xtding233/packpicker/internal/gacha"
)

func TestRunTrialsCountsAndSeeds(t *testing.T) {
	run := func() (int, float64) {
		n := 0
		sum := 0.0
		err := gacha.RunTrials(context.Background(), 1000, gacha.NewSeededRNG(3), func(r gacha.RandomSource) {
			n++
			sum += r.Float64()
		})
		if err != nil {
			t.Fatal(err)
		}
		return n, sum
	}
	n1, s1 := run()
	n2, s2 := run()
	if n1 != 1000 || n2 != 1000 {
		t.Fatalf("trials run: %d %d", n1, n2)
	}
	if s1 != s2 {
		t.Fatalf("same seed must reproduce: %f vs %f", s1, s2)
	}
}

func TestRunTrialsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err := gacha.RunTrials(ctx, 100000, gacha.NewSeededRNG(1), func(gacha.RandomSource) {
		n++
		if n == 10 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if n >= 100000 {
		t.Fatalf("loop did not stop early")
	}
}

func TestPercentAndMeanGuardZero(t *testing.T) {
	if gacha.Percent(5, 0) != 0 || gacha.Mean(5, 0) != 0 {
		t.Fatalf("zero denominators must give 0")
	}
	if got := gacha.Percent(1, 3); got != 33.33 {
		t.Fatalf("Percent(1,3)=%v", got)
	}
	if got := gacha.Mean(2, 3); got != 0.67 {
		t.Fatalf("Mean(2,3)=%v", got)
	}
}
