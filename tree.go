// Package regtree implements the in-memory regression tree model used
// by gradient boosted tree ensembles: a compact node arena with
// deletion and reuse, dense feature vectors for prediction, and exact
// TreeSHAP feature attribution.
package regtree

// Much of this code is ported from the xgboost C++ code (tree_model.h).
//
// Copyright by XGBoost Contributors 2014-2023
//
// xgboost's code is Apache 2.0 licensed.

import (
	"fmt"
	"math"
)

// treeParamReserved is the number of reserved int32 slots padding
// TreeParam to 64-bit alignment in the binary format.
const treeParamReserved = 31

// TreeParam holds the meta parameters of a tree.
type TreeParam struct {
	// NumRoots is the number of start roots, at least 1.
	NumRoots int
	// NumNodes is the total number of nodes, deleted ones included.
	NumNodes int
	// NumDeleted is the number of deleted nodes awaiting reuse.
	NumDeleted int
	// MaxDepth is a depth statistic maintained by the tree builder.
	MaxDepth int
	// NumFeature is the number of features used for construction.
	NumFeature int
	// SizeLeafVector is the width of per-node leaf vectors, 0 when
	// leaves hold a single value.
	SizeLeafVector int
}

func (p *TreeParam) validate() error {
	if p.NumRoots < 1 {
		return fmt.Errorf("tree must have at least one root, got %d", p.NumRoots)
	}
	if p.NumFeature < 0 {
		return fmt.Errorf("negative feature count %d", p.NumFeature)
	}
	if p.SizeLeafVector < 0 {
		return fmt.Errorf("negative leaf vector size %d", p.SizeLeafVector)
	}
	return nil
}

// Tree is a regression tree held in a node arena. Nodes are addressed
// by dense integer indices; deleted slots are recycled through a free
// list. The zero value is not usable, use New.
//
// A Tree is not safe for concurrent mutation. Concurrent read-only
// prediction and attribution calls are safe as long as each caller
// uses its own FVec.
type Tree struct {
	// Param holds the tree's meta parameters. NumNodes, NumDeleted and
	// MaxDepth are maintained by the arena; the rest are fixed at New.
	Param TreeParam

	nodes        []Node
	deletedNodes []int
	stats        []NodeStat
	leafVector   []float32

	nodeMeanValues []float32
}

// New validates the given parameters and returns a tree of
// param.NumRoots parentless leaves, each with value 0.
func New(param TreeParam) (*Tree, error) {
	if err := param.validate(); err != nil {
		return nil, fmt.Errorf("invalid tree param: %w", err)
	}
	t := &Tree{Param: param}
	t.InitModel()
	return t, nil
}

// InitModel resets the tree to its initial state: one zero-valued leaf
// per root and an empty free list.
func (t *Tree) InitModel() {
	t.Param.NumNodes = t.Param.NumRoots
	t.Param.NumDeleted = 0
	t.nodes = make([]Node, t.Param.NumNodes)
	t.stats = make([]NodeStat, t.Param.NumNodes)
	t.leafVector = make([]float32, t.Param.NumNodes*t.Param.SizeLeafVector)
	t.deletedNodes = t.deletedNodes[:0]
	t.nodeMeanValues = nil
	for i := range t.nodes {
		t.nodes[i].SetLeaf(0)
		t.nodes[i].setParent(noNode, false)
	}
}

// Node returns the node with the given index. The pointer stays valid
// until the next allocation.
func (t *Tree) Node(nid int) *Node {
	return &t.nodes[nid]
}

// Stat returns the statistics of the node with the given index. The
// pointer stays valid until the next allocation.
func (t *Tree) Stat(nid int) *NodeStat {
	return &t.stats[nid]
}

// LeafVec returns the leaf vector of the given node, or nil when the
// tree holds single-valued leaves.
func (t *Tree) LeafVec(nid int) []float32 {
	if len(t.leafVector) == 0 {
		return nil
	}
	w := t.Param.SizeLeafVector
	return t.leafVector[nid*w : (nid+1)*w]
}

// allocNode returns a node index, reusing a deleted slot when one is
// available and growing the parallel arrays otherwise.
func (t *Tree) allocNode() int {
	if t.Param.NumDeleted != 0 {
		nid := t.deletedNodes[len(t.deletedNodes)-1]
		t.deletedNodes = t.deletedNodes[:len(t.deletedNodes)-1]
		t.Param.NumDeleted--
		return nid
	}
	nid := t.Param.NumNodes
	if nid+1 >= math.MaxInt32 {
		panic("regtree: number of nodes in the tree exceeds 2^31")
	}
	t.Param.NumNodes++
	t.nodes = append(t.nodes, Node{})
	t.stats = append(t.stats, NodeStat{})
	for i := 0; i < t.Param.SizeLeafVector; i++ {
		t.leafVector = append(t.leafVector, 0)
	}
	return nid
}

// deleteNode marks a node deleted and pushes it onto the free list.
// The parent link is kept intact to allow trace back. Roots cannot be
// deleted.
func (t *Tree) deleteNode(nid int) {
	if nid < t.Param.NumRoots {
		panic(fmt.Sprintf("regtree: cannot delete root node %d", nid))
	}
	t.deletedNodes = append(t.deletedNodes, nid)
	t.nodes[nid].markDelete()
	t.Param.NumDeleted++
}

// AddChilds splits the given leaf by attaching two freshly allocated
// leaf children. The node keeps its payload until SetSplit is called
// on it.
func (t *Tree) AddChilds(nid int) {
	if !t.nodes[nid].IsLeaf() {
		panic(fmt.Sprintf("regtree: AddChilds on non-leaf node %d", nid))
	}
	left := t.allocNode()
	right := t.allocNode()
	t.nodes[nid].setChildren(left, right)
	t.nodes[left].SetLeaf(0)
	t.nodes[right].SetLeaf(0)
	t.nodes[left].setParent(nid, true)
	t.nodes[right].setParent(nid, false)
}

// ChangeToLeaf turns an internal node whose children are both leaves
// back into a leaf with the given value, returning the children to the
// free list.
func (t *Tree) ChangeToLeaf(nid int, value float32) {
	left := t.nodes[nid].LeftChild()
	right := t.nodes[nid].RightChild()
	if !t.nodes[left].IsLeaf() || !t.nodes[right].IsLeaf() {
		panic(fmt.Sprintf("regtree: ChangeToLeaf on node %d whose children are not leaves", nid))
	}
	t.deleteNode(left)
	t.deleteNode(right)
	t.nodes[nid].SetLeaf(value)
}

// CollapseToLeaf prunes the whole subtree under the given node,
// leaving a single leaf with the given value. Intermediate leaves are
// forced to value 0 on the way up; the values they held are lost.
func (t *Tree) CollapseToLeaf(nid int, value float32) {
	if t.nodes[nid].IsLeaf() {
		return
	}
	if left := t.nodes[nid].LeftChild(); !t.nodes[left].IsLeaf() {
		t.CollapseToLeaf(left, 0)
	}
	if right := t.nodes[nid].RightChild(); !t.nodes[right].IsLeaf() {
		t.CollapseToLeaf(right, 0)
	}
	t.ChangeToLeaf(nid, value)
}

// GetDepth returns the depth of the given node, counting edges up to
// its root. With passRightChild set, edges where the node is a right
// child are not counted.
func (t *Tree) GetDepth(nid int, passRightChild bool) int {
	depth := 0
	for !t.nodes[nid].IsRoot() {
		if !passRightChild || t.nodes[nid].IsLeftChild() {
			depth++
		}
		nid = t.nodes[nid].Parent()
	}
	return depth
}

// MaxDepthAt returns the maximum depth of the subtree rooted at the
// given node; 0 for a leaf.
func (t *Tree) MaxDepthAt(nid int) int {
	if t.nodes[nid].IsLeaf() {
		return 0
	}
	left := t.MaxDepthAt(t.nodes[nid].LeftChild()) + 1
	right := t.MaxDepthAt(t.nodes[nid].RightChild()) + 1
	if left > right {
		return left
	}
	return right
}

// MaxDepthAll returns the maximum depth over all roots.
func (t *Tree) MaxDepthAll() int {
	maxd := 0
	for i := 0; i < t.Param.NumRoots; i++ {
		if d := t.MaxDepthAt(i); d > maxd {
			maxd = d
		}
	}
	return maxd
}

// NumExtraNodes returns the number of live nodes besides the roots.
func (t *Tree) NumExtraNodes() int {
	return t.Param.NumNodes - t.Param.NumRoots - t.Param.NumDeleted
}
