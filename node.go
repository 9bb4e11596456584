package regtree

// Much of this code is ported from the xgboost C++ code (tree_model.h).
//
// Copyright by XGBoost Contributors 2014-2023
//
// xgboost's code is Apache 2.0 licensed.

import "math"

const (
	// noNode marks the absence of a child or parent index.
	noNode = -1

	// deletedMark is the sindex value reserved for deleted nodes. Using a
	// sentinel instead of a separate flag keeps the node record at a fixed
	// 20 bytes, which the binary format depends on.
	deletedMark = math.MaxUint32

	splitIndexMask  = uint32(1)<<31 - 1
	defaultLeftBit  = uint32(1) << 31
	leftChildBit    = uint32(1) << 31
	parentIndexMask = uint32(1)<<31 - 1
)

// Node is one tree vertex. The record layout matches xgboost's
// tree_model.h byte for byte:
//
//   - parent packs the parent index with a high bit saying whether this
//     node is its parent's left child; -1 means the node is a root.
//   - cleft/cright are child indices; cleft == -1 means leaf.
//   - sindex packs the split feature index with a high bit for the
//     default (missing value) direction; all bits set means deleted.
//   - info holds the leaf value for leaves and the split condition for
//     internal nodes.
//
// All access goes through the methods below; nothing outside this file
// touches the packed fields directly.
type Node struct {
	parent int32
	cleft  int32
	cright int32
	sindex uint32
	info   float32
}

// LeftChild returns the index of the left child, or -1 for a leaf.
func (n *Node) LeftChild() int { return int(n.cleft) }

// RightChild returns the index of the right child, or -1 for a leaf.
func (n *Node) RightChild() int { return int(n.cright) }

// DefaultChild returns the child followed when the split feature is
// missing.
func (n *Node) DefaultChild() int {
	if n.DefaultLeft() {
		return n.LeftChild()
	}
	return n.RightChild()
}

// SplitIndex returns the feature index of the split condition.
func (n *Node) SplitIndex() int { return int(n.sindex & splitIndexMask) }

// DefaultLeft returns whether a missing feature value goes to the left
// child.
func (n *Node) DefaultLeft() bool { return n.sindex&defaultLeftBit != 0 }

// IsLeaf returns whether the node is a leaf.
func (n *Node) IsLeaf() bool { return n.cleft == noNode }

// LeafValue returns the leaf's value. Only meaningful for leaves.
func (n *Node) LeafValue() float32 { return n.info }

// SplitCond returns the split condition. Only meaningful for internal
// nodes; values strictly below it go left, everything else goes right.
func (n *Node) SplitCond() float32 { return n.info }

// Parent returns the index of the parent node. Only meaningful when
// IsRoot is false.
func (n *Node) Parent() int { return int(uint32(n.parent) & parentIndexMask) }

// IsLeftChild returns whether the node is its parent's left child.
func (n *Node) IsLeftChild() bool { return uint32(n.parent)&leftChildBit != 0 }

// IsRoot returns whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == noNode }

// IsDeleted returns whether the node has been deleted and is awaiting
// reuse through the free list.
func (n *Node) IsDeleted() bool { return n.sindex == deletedMark }

// SetSplit makes the node an internal node splitting on the given
// feature. defaultLeft selects the child used for missing values.
func (n *Node) SetSplit(splitIndex int, splitCond float32, defaultLeft bool) {
	s := uint32(splitIndex)
	if defaultLeft {
		s |= defaultLeftBit
	}
	n.sindex = s
	n.info = splitCond
}

// SetLeaf makes the node a leaf with the given value, detaching any
// children.
func (n *Node) SetLeaf(value float32) {
	n.info = value
	n.cleft = noNode
	n.cright = noNode
	n.sindex = 0
}

func (n *Node) setParent(pid int, isLeftChild bool) {
	p := uint32(pid)
	if isLeftChild {
		p |= leftChildBit
	}
	n.parent = int32(p)
}

func (n *Node) setChildren(left, right int) {
	n.cleft = int32(left)
	n.cright = int32(right)
}

func (n *Node) markDelete() {
	n.sindex = deletedMark
}

// NodeStat holds the per-node statistics kept alongside each node.
// They are populated by the tree-growth process and read back here as
// coverage weights.
type NodeStat struct {
	// LossChg is the loss change caused by the node's split.
	LossChg float32
	// SumHess is the sum of hessian values, used to measure how much
	// data the node covers. It is the mixing weight for mean values and
	// TreeSHAP zero fractions.
	SumHess float32
	// BaseWeight is the weight of the node before splitting.
	BaseWeight float32
	// LeafChildCnt is the number of children known to be leaves, used
	// during incremental growth.
	LeafChildCnt int32
}
