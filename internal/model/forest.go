// Package model implements the party-preference imputation model: a random
// forest of CART trees over the geographic and demographic features, with a
// JSON artifact that round-trips encoders, medians and metrics so inference
// can run from a saved file.
package model

import (
	"math"
	"math/rand"
	"sort"
)

// Class indices. The forest is strictly binary; Swing and Unknown voters are
// never training labels.
const (
	ClassDemocrat   = 0
	ClassRepublican = 1
	NumClasses      = 2
)

// TreeNode is one node of a CART tree. Internal nodes route on
// Feature <= Threshold; leaves carry the training class counts.
type TreeNode struct {
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
	Counts    [2]int    `json:"counts,omitempty"`
}

// Forest is a bagged ensemble of CART trees with per-tree feature
// subsampling.
type Forest struct {
	Trees       []*TreeNode `json:"trees"`
	NumFeatures int         `json:"num_features"`
}

// ForestConfig controls tree growth.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

// GrowForest trains a random forest on the feature matrix x and binary
// labels y. Each tree sees a bootstrap sample of the rows and a random
// sqrt-sized feature subset at every split.
func GrowForest(x [][]float64, y []int, cfg ForestConfig) *Forest {
	f := &Forest{
		Trees:       make([]*TreeNode, 0, cfg.Trees),
		NumFeatures: len(x[0]),
	}
	mtry := int(math.Ceil(math.Sqrt(float64(f.NumFeatures))))
	rng := rand.New(rand.NewSource(cfg.Seed))

	for t := 0; t < cfg.Trees; t++ {
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		f.Trees = append(f.Trees, growNode(x, y, idx, 0, mtry, cfg, rng))
	}
	return f
}

func leaf(y []int, idx []int) *TreeNode {
	n := &TreeNode{Leaf: true}
	for _, i := range idx {
		n.Counts[y[i]]++
	}
	return n
}

func growNode(x [][]float64, y []int, idx []int, depth, mtry int, cfg ForestConfig, rng *rand.Rand) *TreeNode {
	if depth >= cfg.MaxDepth || len(idx) < 2*cfg.MinLeaf || pure(y, idx) {
		return leaf(y, idx)
	}

	feature, threshold, ok := bestSplit(x, y, idx, mtry, cfg.MinLeaf, rng)
	if !ok {
		return leaf(y, idx)
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      growNode(x, y, left, depth+1, mtry, cfg, rng),
		Right:     growNode(x, y, right, depth+1, mtry, cfg, rng),
	}
}

func pure(y []int, idx []int) bool {
	for _, i := range idx[1:] {
		if y[i] != y[idx[0]] {
			return false
		}
	}
	return true
}

// bestSplit searches a random feature subset for the split with the lowest
// weighted Gini impurity. Thresholds are midpoints between consecutive
// distinct values of the sorted sample.
func bestSplit(x [][]float64, y []int, idx []int, mtry, minLeaf int, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	features := rng.Perm(len(x[idx[0]]))[:mtry]

	best := math.Inf(1)
	order := make([]int, len(idx))
	for _, f := range features {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		var leftCounts, rightCounts [2]int
		for _, i := range order {
			rightCounts[y[i]]++
		}

		for pos := 1; pos < len(order); pos++ {
			prev := order[pos-1]
			leftCounts[y[prev]]++
			rightCounts[y[prev]]--
			if x[prev][f] == x[order[pos]][f] {
				continue
			}
			if pos < minLeaf || len(order)-pos < minLeaf {
				continue
			}
			score := weightedGini(leftCounts, rightCounts)
			if score < best {
				best = score
				feature = f
				threshold = (x[prev][f] + x[order[pos]][f]) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func weightedGini(left, right [2]int) float64 {
	nl := float64(left[0] + left[1])
	nr := float64(right[0] + right[1])
	return (nl*gini(left) + nr*gini(right)) / (nl + nr)
}

func gini(c [2]int) float64 {
	n := float64(c[0] + c[1])
	if n == 0 {
		return 0
	}
	p0 := float64(c[0]) / n
	p1 := float64(c[1]) / n
	return 1 - p0*p0 - p1*p1
}

// Prob returns the class probability pair for one row, averaged over the
// per-tree leaf distributions and renormalized so the pair sums to 1.
func (f *Forest) Prob(row []float64) [2]float64 {
	var sum [2]float64
	for _, tree := range f.Trees {
		n := tree
		for !n.Leaf {
			if row[n.Feature] <= n.Threshold {
				n = n.Left
			} else {
				n = n.Right
			}
		}
		total := float64(n.Counts[0] + n.Counts[1])
		if total == 0 {
			continue
		}
		sum[0] += float64(n.Counts[0]) / total
		sum[1] += float64(n.Counts[1]) / total
	}
	total := sum[0] + sum[1]
	if total == 0 {
		return [2]float64{0.5, 0.5}
	}
	return [2]float64{sum[0] / total, sum[1] / total}
}

// Classify returns the majority class for one row.
func (f *Forest) Classify(row []float64) int {
	p := f.Prob(row)
	if p[ClassRepublican] > p[ClassDemocrat] {
		return ClassRepublican
	}
	return ClassDemocrat
}
