package bundle

import (
	"math"
	"testing"
)

// twoTreeEnsemble splits on feature 0 at 0.5: tree one adds 10 or 20,
// tree two adds 1 or 2.
func twoTreeEnsemble() *Ensemble {
	return &Ensemble{
		BaseScore: 100,
		Trees: []Tree{
			{Nodes: []Node{
				{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
				{Leaf: true, Value: 10},
				{Leaf: true, Value: 20},
			}},
			{Nodes: []Node{
				{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
				{Leaf: true, Value: 1},
				{Leaf: true, Value: 2},
			}},
		},
	}
}

func TestEnsemblePredict(t *testing.T) {
	e := twoTreeEnsemble()
	if got := e.Predict([]float64{0}); got != 111 {
		t.Fatalf("low branch: got %v want 111", got)
	}
	if got := e.Predict([]float64{1}); got != 122 {
		t.Fatalf("high branch: got %v want 122", got)
	}
}

func TestEnsemblePredictStages(t *testing.T) {
	e := twoTreeEnsemble()
	stages := e.PredictStages([]float64{1})
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if stages[0] != 120 || stages[1] != 122 {
		t.Fatalf("unexpected stages %v", stages)
	}
	// last stage must agree with the full prediction
	if stages[1] != e.Predict([]float64{1}) {
		t.Fatalf("stage mismatch with full prediction")
	}
}

func TestEnsembleMissingFeatureIsZero(t *testing.T) {
	e := twoTreeEnsemble()
	// empty vector: feature 0 reads as 0, below the threshold
	if got := e.Predict(nil); got != 111 {
		t.Fatalf("got %v want 111", got)
	}
}

func TestSeasonalValueWraps(t *testing.T) {
	// peak in January seen from December should be close to the peak
	dec := SeasonalValue(12.5, 1, 1)
	far := SeasonalValue(7, 1, 1)
	if dec <= far {
		t.Fatalf("december %v should beat july %v for a january peak", dec, far)
	}
	if v := SeasonalValue(1, 1, 1); math.Abs(v-1) > 1e-9 {
		t.Fatalf("at peak got %v want 1", v)
	}
}
