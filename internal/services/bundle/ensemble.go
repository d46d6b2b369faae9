package bundle

// Node is one split or leaf in a regression tree. Leaves carry the
// additive value; splits compare a feature against a threshold.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

// Tree is one boosted stage; node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Ensemble is a gradient-boosted tree regressor: the prediction is the
// base score plus the sum of every tree's leaf value.
type Ensemble struct {
	BaseScore float64 `json:"base_score"`
	Trees     []Tree  `json:"trees"`
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		v := 0.0
		if n.Feature >= 0 && n.Feature < len(x) {
			v = x[n.Feature]
		}
		if v < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Predict evaluates the full ensemble for one feature vector.
func (e *Ensemble) Predict(x []float64) float64 {
	sum := e.BaseScore
	for i := range e.Trees {
		sum += e.Trees[i].eval(x)
	}
	return sum
}

// PredictStages returns the prediction truncated to each successive tree
// count: stage i is the output of the first i+1 trees. The cross-stage
// spread feeds the confidence interval estimate.
func (e *Ensemble) PredictStages(x []float64) []float64 {
	out := make([]float64, len(e.Trees))
	sum := e.BaseScore
	for i := range e.Trees {
		sum += e.Trees[i].eval(x)
		out[i] = sum
	}
	return out
}

// NumStages reports how many per-stage estimates the ensemble exposes.
func (e *Ensemble) NumStages() int {
	return len(e.Trees)
}
