package regtree

// Much of this code is ported from the xgboost C++ code
// (tree_model.h, https://arxiv.org/abs/1706.06060).
//
// Copyright by XGBoost Contributors 2017-2023
//
// xgboost's code is Apache 2.0 licensed.

import (
	"fmt"
)

// PathElement is one entry of the decision path tracked by the
// TreeSHAP recursion. The pweight of the i'th element is the
// permutation weight of paths with i-1 ones in them.
type PathElement struct {
	FeatureIndex int
	ZeroFraction float32
	OneFraction  float32
	Pweight      float32
}

// CalculateContributions computes the exact per-feature contributions
// to the prediction for feat, writing them into contribs (length
// feat.Size()+1, the last slot being the bias). condition fixes one
// feature to off (-1), on (1) or leaves all free (0);
// conditionFeature is the index of the fixed feature.
//
// With condition == 0 the bias slot receives the tree's mean value and
// the entries of contribs sum to PredictValue(feat, root).
// FillNodeMeanValues must have been called on the current tree shape.
//
// This is equivalent to CalculateContributions() in xgboost.
func (t *Tree) CalculateContributions(
	feat *FVec,
	root int,
	contribs []float32,
	condition int,
	conditionFeature int,
) error {
	// Find the expected value of the tree's predictions.
	if condition == 0 {
		if !t.meanValuesFresh() {
			return errMeanValuesNotFilled
		}
		contribs[feat.Size()] += t.nodeMeanValues[root]
	}

	// Preallocate space for the unique path data. The scratch holds
	// one copied path per depth level, hence the triangular size.
	maxd := t.MaxDepthAt(root) + 2
	uniquePathData := make([]PathElement, (maxd*(maxd+1))/2)

	return t.treeShap(
		feat,
		contribs,
		root,
		0, // uniqueDepth
		uniquePathData,
		1, // parentZeroFraction
		1, // parentOneFraction
		-1,
		condition,
		conditionFeature,
		1, // conditionFraction
	)
}

// treeShap is the recursive computation of SHAP values for a decision
// tree.
//
// This is equivalent to TreeShap() in xgboost.
func (t *Tree) treeShap(
	feat *FVec,
	phi []float32, // AKA contribs
	nodeIndex,
	uniqueDepth int,
	parentUniquePath []PathElement,
	parentZeroFraction,
	parentOneFraction float32,
	parentFeatureIndex,
	condition,
	conditionFeature int,
	conditionFraction float32,
) error {
	node := &t.nodes[nodeIndex]

	// stop if we have no weight coming down to us
	if conditionFraction == 0 {
		return nil
	}

	// extend the unique path; each recursive call owns its own tail of
	// the scratch array so sibling branches never share entries
	uniquePath := parentUniquePath[uniqueDepth+1:]
	copy(uniquePath, parentUniquePath[:uniqueDepth+1])

	if condition == 0 || conditionFeature != parentFeatureIndex {
		extendPath(
			uniquePath,
			uniqueDepth,
			parentZeroFraction,
			parentOneFraction,
			parentFeatureIndex,
		)
	}

	splitIndex := node.SplitIndex()

	if node.IsLeaf() {
		for i := 1; i <= uniqueDepth; i++ {
			w, err := unwoundPathSum(uniquePath, uniqueDepth, i)
			if err != nil {
				return err
			}

			el := uniquePath[i]

			phi[el.FeatureIndex] += w *
				(el.OneFraction - el.ZeroFraction) *
				node.LeafValue() *
				conditionFraction
		}

		return nil
	}

	// Internal node.

	// Find which branch is "hot" (meaning x would follow it).
	hotIndex := t.GetNext(nodeIndex, feat.Value(splitIndex), feat.IsMissing(splitIndex))

	coldIndex := node.LeftChild()
	if hotIndex == coldIndex {
		coldIndex = node.RightChild()
	}

	w := t.stats[nodeIndex].SumHess
	hotZeroFraction := t.stats[hotIndex].SumHess / w
	coldZeroFraction := t.stats[coldIndex].SumHess / w

	incomingZeroFraction := float32(1)
	incomingOneFraction := float32(1)

	// see if we have already split on this feature,
	// if so we undo that split so we can redo it for this node
	var pathIndex int
	for ; pathIndex <= uniqueDepth; pathIndex++ {
		if uniquePath[pathIndex].FeatureIndex == splitIndex {
			break
		}
	}

	if pathIndex != uniqueDepth+1 {
		incomingZeroFraction = uniquePath[pathIndex].ZeroFraction
		incomingOneFraction = uniquePath[pathIndex].OneFraction
		unwindPath(uniquePath, uniqueDepth, pathIndex)
		uniqueDepth--
	}

	// divide up the conditionFraction among the recursive calls
	hotConditionFraction := conditionFraction
	coldConditionFraction := conditionFraction
	if condition > 0 && splitIndex == conditionFeature {
		coldConditionFraction = 0
		uniqueDepth--
	} else if condition < 0 && splitIndex == conditionFeature {
		hotConditionFraction *= hotZeroFraction
		coldConditionFraction *= coldZeroFraction
		uniqueDepth--
	}

	err := t.treeShap(
		feat,
		phi,
		hotIndex,
		uniqueDepth+1,
		uniquePath,
		hotZeroFraction*incomingZeroFraction,
		incomingOneFraction,
		splitIndex,
		condition,
		conditionFeature,
		hotConditionFraction,
	)
	if err != nil {
		return err
	}

	return t.treeShap(
		feat,
		phi,
		coldIndex,
		uniqueDepth+1,
		uniquePath,
		coldZeroFraction*incomingZeroFraction,
		0, // the cold branch was not chosen
		splitIndex,
		condition,
		conditionFeature,
		coldConditionFraction,
	)
}

// extend our decision path with a fraction of one and zero extensions
//
// This is equivalent to ExtendPath() in xgboost.
func extendPath(
	uniquePath []PathElement,
	uniqueDepth int,
	zeroFraction,
	oneFraction float32,
	featureIndex int,
) {
	uniquePath[uniqueDepth].FeatureIndex = featureIndex
	uniquePath[uniqueDepth].ZeroFraction = zeroFraction
	uniquePath[uniqueDepth].OneFraction = oneFraction

	if uniqueDepth == 0 {
		uniquePath[uniqueDepth].Pweight = 1
	} else {
		uniquePath[uniqueDepth].Pweight = 0
	}

	for i := uniqueDepth - 1; i >= 0; i-- {
		uniquePath[i+1].Pweight += oneFraction *
			uniquePath[i].Pweight *
			float32(i+1) /
			float32(uniqueDepth+1)

		uniquePath[i].Pweight = zeroFraction *
			uniquePath[i].Pweight *
			float32(uniqueDepth-i) /
			float32(uniqueDepth+1)
	}
}

// undo a previous extension of the decision path
//
// This is equivalent to UnwindPath() in xgboost.
func unwindPath(
	uniquePath []PathElement,
	uniqueDepth,
	pathIndex int,
) {
	oneFraction := uniquePath[pathIndex].OneFraction
	zeroFraction := uniquePath[pathIndex].ZeroFraction
	nextOnePortion := uniquePath[uniqueDepth].Pweight

	for i := uniqueDepth - 1; i >= 0; i-- {
		if oneFraction != 0 {
			tmp := uniquePath[i].Pweight

			uniquePath[i].Pweight = nextOnePortion *
				float32(uniqueDepth+1) / (float32(i+1) * oneFraction)

			nextOnePortion = tmp -
				uniquePath[i].Pweight*
					zeroFraction*
					float32(uniqueDepth-i)/float32(uniqueDepth+1)
		} else {
			uniquePath[i].Pweight = (uniquePath[i].Pweight * float32(uniqueDepth+1)) /
				(zeroFraction * float32(uniqueDepth-i))
		}
	}

	for i := pathIndex; i < uniqueDepth; i++ {
		uniquePath[i].FeatureIndex = uniquePath[i+1].FeatureIndex
		uniquePath[i].ZeroFraction = uniquePath[i+1].ZeroFraction
		uniquePath[i].OneFraction = uniquePath[i+1].OneFraction
	}
}

// determine what the total permutation weight would be if
// we unwound a previous extension in the decision path
//
// This is equivalent to UnwoundPathSum() in xgboost.
func unwoundPathSum(
	uniquePath []PathElement,
	uniqueDepth,
	pathIndex int,
) (float32, error) {
	oneFraction := uniquePath[pathIndex].OneFraction
	zeroFraction := uniquePath[pathIndex].ZeroFraction
	nextOnePortion := uniquePath[uniqueDepth].Pweight

	var total float32
	for i := uniqueDepth - 1; i >= 0; i-- {
		if oneFraction != 0 {
			tmp := nextOnePortion *
				float32(uniqueDepth+1) /
				(float32(i+1) * oneFraction)

			total += tmp

			nextOnePortion = uniquePath[i].Pweight -
				tmp*zeroFraction*
					(float32(uniqueDepth-i)/float32(uniqueDepth+1))

			continue
		}

		if zeroFraction != 0 {
			total += (uniquePath[i].Pweight / zeroFraction) /
				(float32(uniqueDepth-i) / float32(uniqueDepth+1))
			continue
		}

		if uniquePath[i].Pweight != 0 {
			return 0, fmt.Errorf("unique path %d must have zero weight", i)
		}
	}

	return total, nil
}
