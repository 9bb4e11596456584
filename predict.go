package regtree

// GetNext returns the child to descend into from the given node. A
// missing feature follows the node's default direction; otherwise
// values strictly below the split condition go left and ties go right.
//
// This is equivalent to GetNext() in xgboost (tree_model.h).
func (t *Tree) GetNext(nid int, fvalue float32, isMissing bool) int {
	node := &t.nodes[nid]
	if isMissing {
		return node.DefaultChild()
	}
	if fvalue < node.SplitCond() {
		return node.LeftChild()
	}
	return node.RightChild()
}

// GetLeafIndex walks the tree from the given root using the feature
// vector and returns the index of the terminal leaf.
func (t *Tree) GetLeafIndex(feat *FVec, root int) int {
	nid := root
	for !t.nodes[nid].IsLeaf() {
		split := t.nodes[nid].SplitIndex()
		nid = t.GetNext(nid, feat.Value(split), feat.IsMissing(split))
	}
	return nid
}

// PredictValue returns the value of the leaf the feature vector lands
// on when descending from the given root.
func (t *Tree) PredictValue(feat *FVec, root int) float32 {
	return t.nodes[t.GetLeafIndex(feat, root)].LeafValue()
}
