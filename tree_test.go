package regtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTwoLevelTree builds the tree used throughout the tests:
//
//	0:[f0<0.5] default=left
//	  1:leaf=1
//	  2:[f1<2] default=right
//	    3:leaf=2
//	    4:leaf=3
//
// with hessian sums 10 at the root, 4/6 one level down and 3/3 at the
// bottom leaves.
func newTwoLevelTree(t *testing.T) *Tree {
	t.Helper()

	tree, err := New(TreeParam{NumRoots: 1, NumFeature: 2})
	require.NoError(t, err)

	tree.AddChilds(0)
	tree.Node(0).SetSplit(0, 0.5, true)
	tree.Node(1).SetLeaf(1.0)

	tree.AddChilds(2)
	tree.Node(2).SetSplit(1, 2.0, false)
	tree.Node(3).SetLeaf(2.0)
	tree.Node(4).SetLeaf(3.0)

	for nid, sumHess := range map[int]float32{0: 10, 1: 4, 2: 6, 3: 3, 4: 3} {
		tree.Stat(nid).SumHess = sumHess
	}

	return tree
}

func TestNewValidatesParam(t *testing.T) {
	_, err := New(TreeParam{NumRoots: 0})
	require.Error(t, err)

	_, err = New(TreeParam{NumRoots: 1, SizeLeafVector: -1})
	require.Error(t, err)

	tree, err := New(TreeParam{NumRoots: 2, NumFeature: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Param.NumNodes)
	assert.True(t, tree.Node(0).IsRoot())
	assert.True(t, tree.Node(1).IsRoot())
	assert.True(t, tree.Node(1).IsLeaf())
}

func TestNodePacking(t *testing.T) {
	tree := newTwoLevelTree(t)

	root := tree.Node(0)
	assert.True(t, root.IsRoot())
	assert.False(t, root.IsLeaf())
	assert.Equal(t, 0, root.SplitIndex())
	assert.True(t, root.DefaultLeft())
	assert.Equal(t, 1, root.DefaultChild())
	assert.Equal(t, float32(0.5), root.SplitCond())

	right := tree.Node(2)
	assert.Equal(t, 0, right.Parent())
	assert.False(t, right.IsLeftChild())
	assert.False(t, right.DefaultLeft())
	assert.Equal(t, 4, right.DefaultChild())

	left := tree.Node(1)
	assert.Equal(t, 0, left.Parent())
	assert.True(t, left.IsLeftChild())
	assert.True(t, left.IsLeaf())
	assert.Equal(t, float32(1.0), left.LeafValue())
}

func TestAddChildsChangeToLeafRoundTrip(t *testing.T) {
	tree := newTwoLevelTree(t)

	extraBefore := tree.NumExtraNodes()
	numNodesBefore := tree.Param.NumNodes

	tree.AddChilds(3)
	assert.Equal(t, extraBefore+2, tree.NumExtraNodes())
	left := tree.Node(3).LeftChild()
	right := tree.Node(3).RightChild()

	tree.ChangeToLeaf(3, 7.0)
	assert.Equal(t, extraBefore, tree.NumExtraNodes())
	assert.Equal(t, numNodesBefore+2, tree.Param.NumNodes)
	assert.Equal(t, 2, tree.Param.NumDeleted)
	assert.True(t, tree.Node(3).IsLeaf())
	assert.Equal(t, float32(7.0), tree.Node(3).LeafValue())
	assert.True(t, tree.Node(left).IsDeleted())
	assert.True(t, tree.Node(right).IsDeleted())

	// Deleted children keep their parent link for trace back.
	assert.Equal(t, 3, tree.Node(left).Parent())
	assert.Equal(t, 3, tree.Node(right).Parent())
}

func TestFreeListReuse(t *testing.T) {
	tree := newTwoLevelTree(t)

	tree.AddChilds(1)
	first := tree.Node(1).LeftChild()
	second := tree.Node(1).RightChild()
	tree.ChangeToLeaf(1, 1.0)
	require.Equal(t, 2, tree.Param.NumDeleted)

	// New children come back out of the free list; no array growth.
	numNodesBefore := tree.Param.NumNodes
	tree.AddChilds(4)
	assert.Equal(t, numNodesBefore, tree.Param.NumNodes)
	assert.Equal(t, 0, tree.Param.NumDeleted)
	reused := []int{tree.Node(4).LeftChild(), tree.Node(4).RightChild()}
	assert.ElementsMatch(t, []int{first, second}, reused)
	assert.False(t, tree.Node(reused[0]).IsDeleted())
	assert.False(t, tree.Node(reused[1]).IsDeleted())
}

func TestCollapseToLeaf(t *testing.T) {
	tree := newTwoLevelTree(t)

	tree.CollapseToLeaf(0, 5.0)
	assert.True(t, tree.Node(0).IsLeaf())
	assert.Equal(t, float32(5.0), tree.Node(0).LeafValue())
	assert.Equal(t, 0, tree.NumExtraNodes())
	assert.Equal(t, 4, tree.Param.NumDeleted)
}

func TestDepth(t *testing.T) {
	tree := newTwoLevelTree(t)

	assert.Equal(t, 0, tree.GetDepth(0, false))
	assert.Equal(t, 1, tree.GetDepth(1, false))
	assert.Equal(t, 2, tree.GetDepth(4, false))
	// Node 4 is a right child of a right child.
	assert.Equal(t, 0, tree.GetDepth(4, true))
	// Node 3 is a left child of a right child.
	assert.Equal(t, 1, tree.GetDepth(3, true))

	assert.Equal(t, 2, tree.MaxDepthAt(0))
	assert.Equal(t, 0, tree.MaxDepthAt(1))
	assert.Equal(t, 2, tree.MaxDepthAll())
}

func TestArenaInvariantPanics(t *testing.T) {
	tree := newTwoLevelTree(t)

	assert.Panics(t, func() { tree.deleteNode(0) })
	assert.Panics(t, func() { tree.AddChilds(0) })
	// Node 0's right child is internal, so a one-level collapse must
	// refuse.
	assert.Panics(t, func() { tree.ChangeToLeaf(0, 1.0) })
}
