package regtree

import (
	"fmt"
)

// Options holds Predictor options.
type Options struct {
	ntreeLimit int
}

// Option is a configuration function.
type Option func(*Options)

// NtreeLimit sets the number of trees used for prediction and
// attribution.
//
// For newer XGBoost models, this is found in the model file, so it
// does not need to be provided.
func NtreeLimit(ntreeLimit int) func(*Options) {
	return func(o *Options) {
		o.ntreeLimit = ntreeLimit
	}
}

// Predictor computes predictions and feature contributions for a tree
// ensemble loaded from an XGBoost JSON model.
//
// A Predictor never mutates its trees after construction, so all of
// its methods are safe for concurrent use.
type Predictor struct {
	ntreeLimit int
	trees      []*Tree
}

// NewPredictor loads an XGBoost JSON model file and creates a
// Predictor. When no NtreeLimit option is given, the limit is taken
// from the model's best_ntree_limit attribute, falling back to the
// full tree count.
func NewPredictor(modelFile string, opts ...Option) (*Predictor, error) {
	var o Options
	for _, f := range opts {
		f(&o)
	}

	xgbModel, trees, err := parseModel(modelFile)
	if err != nil {
		return nil, err
	}

	if o.ntreeLimit == 0 {
		if best := xgbModel.Learner.Attributes.BestNtreeLimit; best != "" {
			best64, err := best.Int64()
			if err != nil {
				return nil, fmt.Errorf("getting best ntree limit as int64: %w", err)
			}
			o.ntreeLimit = int(best64)
		} else {
			o.ntreeLimit = len(trees)
		}
	}
	if o.ntreeLimit > len(trees) {
		return nil, fmt.Errorf("ntree limit %d exceeds model's %d trees", o.ntreeLimit, len(trees))
	}

	// Loaded trees never change shape, so the mean value caches can be
	// filled once here. Attribution calls then only read the trees.
	for _, tree := range trees {
		tree.FillNodeMeanValues()
	}

	return &Predictor{
		ntreeLimit: o.ntreeLimit,
		trees:      trees,
	}, nil
}

// NumTrees returns the number of trees used for prediction.
func (p *Predictor) NumTrees() int { return p.ntreeLimit }

// Trees returns the loaded trees, best-limit applied.
func (p *Predictor) Trees() []*Tree { return p.trees[:p.ntreeLimit] }

// fvecFor builds a dense feature vector from a row of optional
// values, nil meaning missing.
func fvecFor(features []*float32) *FVec {
	var feat FVec
	feat.Init(len(features))
	entries := make([]Entry, 0, len(features))
	for i, f := range features {
		if f == nil {
			continue
		}
		entries = append(entries, Entry{Index: i, Value: *f})
	}
	feat.Fill(entries)
	return &feat
}

// PredictValue returns the ensemble margin for the given feature row:
// the sum of each tree's leaf value. nil entries are missing values.
func (p *Predictor) PredictValue(features []*float32) float32 {
	feat := fvecFor(features)

	var sum float32
	for i := 0; i < p.ntreeLimit; i++ {
		sum += p.trees[i].PredictValue(feat, 0)
	}
	return sum
}

// PredictContributions calculates the exact per-feature contributions
// to the ensemble margin for the given feature row. The returned
// slice has one entry per feature plus a trailing bias term, and its
// entries sum to PredictValue of the same row.
//
// This is equivalent to PredictContribution() in xgboost.
func (p *Predictor) PredictContributions(features []*float32) ([]float32, error) {
	// +1 for the bias term: the expected prediction of each tree
	// before any feature is known.
	nColumns := len(features) + 1
	contribs := make([]float32, nColumns)

	feat := fvecFor(features)

	for i := 0; i < p.ntreeLimit; i++ {
		treeContribs := make([]float32, nColumns)
		err := p.trees[i].CalculateContributions(feat, 0, treeContribs, 0, 0)
		if err != nil {
			return nil, err
		}

		for ci := 0; ci < nColumns; ci++ {
			contribs[ci] += treeContribs[ci]
		}
	}

	return contribs, nil
}

// PredictContributionsApprox is the fast path-based variant of
// PredictContributions: each tree charges splits along its single
// decision path with the change in subtree mean value. Outputs still
// sum to PredictValue of the row, but are not Shapley values.
func (p *Predictor) PredictContributionsApprox(features []*float32) ([]float32, error) {
	nColumns := len(features) + 1
	contribs := make([]float32, nColumns)

	feat := fvecFor(features)

	for i := 0; i < p.ntreeLimit; i++ {
		if err := p.trees[i].CalculateContributionsApprox(feat, 0, contribs); err != nil {
			return nil, err
		}
	}

	return contribs, nil
}
