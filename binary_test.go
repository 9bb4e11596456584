package regtree

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryRoundTrip(t *testing.T) {
	tree := newTwoLevelTree(t)
	tree.Param.MaxDepth = 2
	tree.Stat(0).LossChg = 1.25
	tree.Stat(2).BaseWeight = -0.5

	// Produce deleted slots so the free list has to be rediscovered.
	tree.AddChilds(1)
	tree.ChangeToLeaf(1, 1.0)
	require.Equal(t, 2, tree.Param.NumDeleted)

	var buf bytes.Buffer
	require.NoError(t, tree.Save(&buf))
	assert.Equal(t, paramWireSize+tree.Param.NumNodes*(nodeWireSize+statWireSize), buf.Len())

	var loaded Tree
	require.NoError(t, loaded.Load(&buf))

	assert.Equal(t, tree.Param, loaded.Param)
	for nid := 0; nid < tree.Param.NumNodes; nid++ {
		assert.Equal(t, *tree.Node(nid), *loaded.Node(nid), "node %d", nid)
		assert.Equal(t, *tree.Stat(nid), *loaded.Stat(nid), "stat %d", nid)
	}
	assert.ElementsMatch(t, tree.deletedNodes, loaded.deletedNodes)

	feat := fvecFromRow(2, []Entry{{0, 0.9}, {1, 1.0}})
	assert.Equal(t, tree.PredictValue(feat, 0), loaded.PredictValue(feat, 0))

	// Reclaimed slots survive the round trip: allocation after load
	// reuses them instead of growing.
	numNodes := loaded.Param.NumNodes
	loaded.AddChilds(1)
	assert.Equal(t, numNodes, loaded.Param.NumNodes)
	assert.Equal(t, 0, loaded.Param.NumDeleted)
}

func TestBinaryRoundTripLeafVector(t *testing.T) {
	tree, err := New(TreeParam{NumRoots: 1, NumFeature: 1, SizeLeafVector: 2})
	require.NoError(t, err)
	tree.AddChilds(0)
	tree.Node(0).SetSplit(0, 1.0, false)
	tree.Node(1).SetLeaf(-1)
	tree.Node(2).SetLeaf(1)
	copy(tree.LeafVec(1), []float32{0.25, 0.75})
	copy(tree.LeafVec(2), []float32{0.9, 0.1})

	var buf bytes.Buffer
	require.NoError(t, tree.Save(&buf))

	var loaded Tree
	require.NoError(t, loaded.Load(&buf))
	assert.Equal(t, []float32{0.25, 0.75}, loaded.LeafVec(1))
	assert.Equal(t, []float32{0.9, 0.1}, loaded.LeafVec(2))
}

func TestLoadRejectsCorruptHeader(t *testing.T) {
	tree := newTwoLevelTree(t)

	var buf bytes.Buffer
	require.NoError(t, tree.Save(&buf))

	data := buf.Bytes()
	data[8] = 0xff // deleted count no longer matches the node array

	var loaded Tree
	assert.Error(t, loaded.Load(bytes.NewReader(data)))
}

func TestLoadRejectsHugeClaimedNodeCount(t *testing.T) {
	tree := newTwoLevelTree(t)

	var buf bytes.Buffer
	require.NoError(t, tree.Save(&buf))

	// A header claiming an enormous node array must fail on the short
	// body instead of sizing arrays to the claimed count.
	data := buf.Bytes()[:paramWireSize]
	binary.LittleEndian.PutUint32(data[4:], 1<<28)

	var loaded Tree
	assert.Error(t, loaded.Load(bytes.NewReader(data)))
}

func TestLoadRejectsTruncatedInput(t *testing.T) {
	tree := newTwoLevelTree(t)

	var buf bytes.Buffer
	require.NoError(t, tree.Save(&buf))

	var loaded Tree
	assert.Error(t, loaded.Load(bytes.NewReader(buf.Bytes()[:paramWireSize+10])))
}
