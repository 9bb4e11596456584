package regtree

import "errors"

// errMeanValuesNotFilled is returned when an attribution call needs
// the node mean value cache but FillNodeMeanValues has not run since
// the tree last changed shape.
var errMeanValuesNotFilled = errors.New("node mean values not filled for current tree")

// FillNodeMeanValues computes the hessian-weighted mean prediction of
// every node's subtree. It is a no-op when the cache already matches
// the node count; after a structural change the cache must be
// refilled before attribution calls.
//
// Node statistics (SumHess) must be populated before calling this.
//
// This is equivalent to the two FillNodeMeanValues() functions in
// xgboost.
func (t *Tree) FillNodeMeanValues() {
	if len(t.nodeMeanValues) == t.Param.NumNodes {
		return
	}
	t.nodeMeanValues = make([]float32, t.Param.NumNodes)
	for root := 0; root < t.Param.NumRoots; root++ {
		t.fillNodeMeanValue(root)
	}
}

func (t *Tree) fillNodeMeanValue(nid int) float32 {
	node := &t.nodes[nid]

	var result float32
	if node.IsLeaf() {
		result = node.LeafValue()
	} else {
		left := node.LeftChild()
		right := node.RightChild()
		result = t.fillNodeMeanValue(left) * t.stats[left].SumHess
		result += t.fillNodeMeanValue(right) * t.stats[right].SumHess
		result /= t.stats[nid].SumHess
	}

	t.nodeMeanValues[nid] = result
	return result
}

// meanValuesFresh reports whether the mean value cache matches the
// current node count.
func (t *Tree) meanValuesFresh() bool {
	return len(t.nodeMeanValues) == t.Param.NumNodes && t.Param.NumNodes > 0
}

// CalculateContributionsApprox attributes the prediction for feat to
// individual features by walking the single decision path and charging
// each split with the change in subtree mean value. The bias slot
// (index feat.Size()) receives the root's mean value, and the entries
// of contribs sum to PredictValue(feat, root).
//
// FillNodeMeanValues must have been called on the current tree shape.
//
// This is equivalent to CalculateContributionsApprox() in xgboost.
func (t *Tree) CalculateContributionsApprox(feat *FVec, root int, contribs []float32) error {
	if !t.meanValuesFresh() {
		return errMeanValuesNotFilled
	}

	nid := root
	nodeValue := t.nodeMeanValues[nid]
	contribs[feat.Size()] += nodeValue
	if t.nodes[nid].IsLeaf() {
		return nil
	}

	var split int
	for !t.nodes[nid].IsLeaf() {
		split = t.nodes[nid].SplitIndex()
		nid = t.GetNext(nid, feat.Value(split), feat.IsMissing(split))
		newValue := t.nodeMeanValues[nid]
		contribs[split] += newValue - nodeValue
		nodeValue = newValue
	}
	contribs[split] += t.nodes[nid].LeafValue() - nodeValue
	return nil
}
