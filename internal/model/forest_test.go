package model

import (
	"math"
	"math/rand"
	"testing"
)

// separable builds a two-cluster dataset: class 0 around x=0, class 1
// around x=10, with a noise feature.
func separable(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range x {
		class := i % 2
		center := float64(class) * 10
		x[i] = []float64{center + rng.NormFloat64(), rng.Float64() * 100}
		y[i] = class
	}
	return x, y
}

func TestGrowForest_LearnsSeparableData(t *testing.T) {
	x, y := separable(400, 1)
	f := GrowForest(x, y, ForestConfig{Trees: 25, MaxDepth: 6, MinLeaf: 2, Seed: 7})

	correct := 0
	for i := range x {
		if f.Classify(x[i]) == y[i] {
			correct++
		}
	}
	acc := float64(correct) / float64(len(x))
	if acc < 0.95 {
		t.Errorf("training accuracy = %.3f, want >= 0.95 on separable data", acc)
	}

	// Far from either cluster boundary the vote should be near-unanimous.
	p := f.Prob([]float64{10, 50})
	if p[ClassRepublican] < 0.9 {
		t.Errorf("Prob near class-1 center = %v", p)
	}
}

func TestProb_SumsToOne(t *testing.T) {
	x, y := separable(200, 2)
	f := GrowForest(x, y, ForestConfig{Trees: 10, MaxDepth: 4, MinLeaf: 2, Seed: 3})

	for _, row := range [][]float64{{0, 0}, {5, 50}, {10, 99}, {-20, 1}} {
		p := f.Prob(row)
		if math.Abs(p[0]+p[1]-1) > 1e-9 {
			t.Errorf("Prob(%v) = %v, does not sum to 1", row, p)
		}
	}
}

func TestGrowForest_PureLabels(t *testing.T) {
	x := [][]float64{{1, 1}, {2, 2}, {3, 3}}
	y := []int{1, 1, 1}
	f := GrowForest(x, y, ForestConfig{Trees: 5, MaxDepth: 4, MinLeaf: 1, Seed: 1})
	if got := f.Classify([]float64{2, 2}); got != 1 {
		t.Errorf("Classify on single-class data = %d, want 1", got)
	}
}
