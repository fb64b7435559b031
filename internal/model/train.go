package model

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
	"github.com/LoneStarCivic/LSC-Backend/internal/features"
	"github.com/LoneStarCivic/LSC-Backend/internal/obs"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// MinTrainingRowsPerClass is the floor below which training refuses to run:
// a forest grown on a handful of voters per party would just memorize them.
const MinTrainingRowsPerClass = 50

// TrainingConfig controls the training run.
type TrainingConfig struct {
	Trees        int
	MaxDepth     int
	MinLeaf      int
	TestFraction float64
	Seed         int64
	SampleCap    int
	Folds        int
}

// DefaultTrainingConfig matches the production runs.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Trees:        200,
		MaxDepth:     10,
		MinLeaf:      5,
		TestFraction: 0.2,
		Seed:         42,
		SampleCap:    400000,
		Folds:        5,
	}
}

// Metrics are the held-out evaluation results stored with the artifact.
// Confusion is indexed [actual][predicted] with the class constants.
type Metrics struct {
	TrainingRows  int       `json:"training_rows"`
	TestRows      int       `json:"test_rows"`
	TrainAccuracy float64   `json:"train_accuracy"`
	TestAccuracy  float64   `json:"test_accuracy"`
	Confusion     [2][2]int `json:"confusion"`
	CVMean        float64   `json:"cv_mean"`
	CVStd         float64   `json:"cv_std"`
}

// Model is the complete inference artifact: the forest plus everything
// needed to rebuild feature vectors identically at prediction time.
type Model struct {
	Forest    *Forest           `json:"forest"`
	Columns   []string          `json:"columns"`
	Encoders  features.Encoders `json:"encoders"`
	Medians   []float64         `json:"medians"`
	Metrics   Metrics           `json:"metrics"`
	TrainedAt time.Time         `json:"trained_at"`
}

// TrainingFailure describes why a training run produced no model. It is a
// value, not an error: the pipeline degrades to geographic-average
// imputation rather than aborting.
type TrainingFailure struct {
	Reason string `json:"reason"`
}

// TrainOutcome is the result of a training run. Exactly one of Model and
// Failure is set.
type TrainOutcome struct {
	Model   *Model
	Failure *TrainingFailure
}

// Train builds the imputation model from the voters with a firm binary
// primary classification. Swing and Unknown voters never become labels.
// Encoders are fit over the full population so inference-only categories
// still encode consistently.
func Train(all []*voterfile.Voter, priors *features.Priors, cfg TrainingConfig, logf obs.Logf) TrainOutcome {
	logf = obs.Or(logf)
	rng := rand.New(rand.NewSource(cfg.Seed))

	var labeled []*voterfile.Voter
	var labels []int
	perClass := [2]int{}
	for _, v := range all {
		switch v.PrimaryClassification {
		case classify.Democrat:
			labeled = append(labeled, v)
			labels = append(labels, ClassDemocrat)
			perClass[ClassDemocrat]++
		case classify.Republican:
			labeled = append(labeled, v)
			labels = append(labels, ClassRepublican)
			perClass[ClassRepublican]++
		}
	}
	if perClass[ClassDemocrat] < MinTrainingRowsPerClass || perClass[ClassRepublican] < MinTrainingRowsPerClass {
		return TrainOutcome{Failure: &TrainingFailure{
			Reason: "insufficient labeled voters per party",
		}}
	}

	if cfg.SampleCap > 0 && len(labeled) > cfg.SampleCap {
		logf("[model] capping training set: %d labeled -> %d sampled", len(labeled), cfg.SampleCap)
		labeled, labels = stratifiedSample(labeled, labels, cfg.SampleCap, rng)
	}

	enc := features.FitEncoders(all)
	matrix := make([][]float64, len(labeled))
	for i, v := range labeled {
		matrix[i] = features.Vector(v, priors, enc)
	}

	trainIdx, testIdx := stratifiedSplit(labels, cfg.TestFraction, rng)

	trainX := take(matrix, trainIdx)
	trainY := takeInt(labels, trainIdx)
	medians := features.Medians(trainX)
	for _, row := range matrix {
		features.Impute(row, medians)
	}

	logf("[model] training forest: %d trees, %d train rows, %d test rows",
		cfg.Trees, len(trainIdx), len(testIdx))
	forest := GrowForest(trainX, trainY, ForestConfig{
		Trees:    cfg.Trees,
		MaxDepth: cfg.MaxDepth,
		MinLeaf:  cfg.MinLeaf,
		Seed:     rng.Int63(),
	})

	m := &Model{
		Forest:    forest,
		Columns:   append([]string(nil), features.Columns...),
		Encoders:  enc,
		Medians:   medians,
		TrainedAt: time.Now().UTC(),
	}
	m.Metrics = evaluate(forest, matrix, labels, trainIdx, testIdx)
	m.Metrics.CVMean, m.Metrics.CVStd = crossValidate(trainX, trainY, cfg, rng)
	logf("[model] train accuracy %.4f, test accuracy %.4f, cv %.4f +/- %.4f",
		m.Metrics.TrainAccuracy, m.Metrics.TestAccuracy, m.Metrics.CVMean, m.Metrics.CVStd)
	return TrainOutcome{Model: m}
}

func evaluate(f *Forest, matrix [][]float64, labels []int, trainIdx, testIdx []int) Metrics {
	m := Metrics{TrainingRows: len(trainIdx), TestRows: len(testIdx)}

	correct := 0
	for _, i := range trainIdx {
		if f.Classify(matrix[i]) == labels[i] {
			correct++
		}
	}
	m.TrainAccuracy = float64(correct) / float64(len(trainIdx))

	correct = 0
	for _, i := range testIdx {
		pred := f.Classify(matrix[i])
		m.Confusion[labels[i]][pred]++
		if pred == labels[i] {
			correct++
		}
	}
	if len(testIdx) > 0 {
		m.TestAccuracy = float64(correct) / float64(len(testIdx))
	}
	return m
}

// crossValidate runs k-fold evaluation over the training rows with a
// reduced tree count, returning mean and standard deviation of fold
// accuracy.
func crossValidate(x [][]float64, y []int, cfg TrainingConfig, rng *rand.Rand) (mean, std float64) {
	if cfg.Folds < 2 || len(x) < cfg.Folds {
		return 0, 0
	}
	trees := cfg.Trees / 4
	if trees < 10 {
		trees = 10
	}

	perm := rng.Perm(len(x))
	scores := make([]float64, 0, cfg.Folds)
	for fold := 0; fold < cfg.Folds; fold++ {
		var trainIdx, testIdx []int
		for pos, i := range perm {
			if pos%cfg.Folds == fold {
				testIdx = append(testIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}
		f := GrowForest(take(x, trainIdx), takeInt(y, trainIdx), ForestConfig{
			Trees:    trees,
			MaxDepth: cfg.MaxDepth,
			MinLeaf:  cfg.MinLeaf,
			Seed:     rng.Int63(),
		})
		correct := 0
		for _, i := range testIdx {
			if f.Classify(x[i]) == y[i] {
				correct++
			}
		}
		scores = append(scores, float64(correct)/float64(len(testIdx)))
	}
	return stat.Mean(scores, nil), stat.StdDev(scores, nil)
}

// stratifiedSample downsamples to limit rows while preserving the class ratio.
func stratifiedSample(voters []*voterfile.Voter, labels []int, limit int, rng *rand.Rand) ([]*voterfile.Voter, []int) {
	byClass := [2][]int{}
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}

	keepVoters := make([]*voterfile.Voter, 0, limit)
	keepLabels := make([]int, 0, limit)
	for class, idx := range byClass {
		want := limit * len(idx) / len(labels)
		perm := rng.Perm(len(idx))
		if want > len(idx) {
			want = len(idx)
		}
		for _, p := range perm[:want] {
			keepVoters = append(keepVoters, voters[idx[p]])
			keepLabels = append(keepLabels, class)
		}
	}
	return keepVoters, keepLabels
}

// stratifiedSplit partitions row indices into train and test sets,
// preserving the class ratio in each.
func stratifiedSplit(labels []int, testFraction float64, rng *rand.Rand) (train, test []int) {
	byClass := [2][]int{}
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	for _, idx := range byClass {
		perm := rng.Perm(len(idx))
		cut := int(float64(len(idx)) * testFraction)
		for p, pos := range perm {
			if p < cut {
				test = append(test, idx[pos])
			} else {
				train = append(train, idx[pos])
			}
		}
	}
	return train, test
}

func take(matrix [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = matrix[j]
	}
	return out
}

func takeInt(values []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
