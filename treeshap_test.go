package regtree

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// condExpectation evaluates the tree's conditional-expectation game:
// splits on features in subset follow the instance, everything else is
// averaged with hessian weights.
func condExpectation(tree *Tree, nid int, feat *FVec, subset map[int]bool) float32 {
	node := tree.Node(nid)
	if node.IsLeaf() {
		return node.LeafValue()
	}
	split := node.SplitIndex()
	if subset[split] {
		next := tree.GetNext(nid, feat.Value(split), feat.IsMissing(split))
		return condExpectation(tree, next, feat, subset)
	}
	left := node.LeftChild()
	right := node.RightChild()
	lv := condExpectation(tree, left, feat, subset) * tree.Stat(left).SumHess
	rv := condExpectation(tree, right, feat, subset) * tree.Stat(right).SumHess
	return (lv + rv) / tree.Stat(nid).SumHess
}

// bruteForceShapley enumerates all feature subsets and computes each
// feature's Shapley value directly, plus the bias in the last slot.
func bruteForceShapley(tree *Tree, feat *FVec, numFeatures int) []float32 {
	factorial := func(n int) float64 {
		f := 1.0
		for i := 2; i <= n; i++ {
			f *= float64(i)
		}
		return f
	}
	value := func(mask int) float32 {
		subset := make(map[int]bool)
		for i := 0; i < numFeatures; i++ {
			if mask&(1<<i) != 0 {
				subset[i] = true
			}
		}
		return condExpectation(tree, 0, feat, subset)
	}

	phi := make([]float32, numFeatures+1)
	for i := 0; i < numFeatures; i++ {
		var total float64
		for mask := 0; mask < 1<<numFeatures; mask++ {
			if mask&(1<<i) != 0 {
				continue
			}
			s := bits.OnesCount(uint(mask))
			weight := factorial(s) * factorial(numFeatures-s-1) / factorial(numFeatures)
			total += weight * float64(value(mask|1<<i)-value(mask))
		}
		phi[i] = float32(total)
	}
	phi[numFeatures] = value(0)
	return phi
}

func exactContributions(t *testing.T, tree *Tree, feat *FVec, size int) []float32 {
	t.Helper()
	tree.FillNodeMeanValues()
	contribs := make([]float32, size+1)
	require.NoError(t, tree.CalculateContributions(feat, 0, contribs, 0, 0))
	return contribs
}

func TestContributionsSumToPrediction(t *testing.T) {
	tree := newTwoLevelTree(t)

	rows := [][]Entry{
		{{0, 0.9}, {1, 1.0}},
		{{0, 0.9}, {1, 5.0}},
		{{0, 0.1}},
		{{1, 3.0}},
		nil,
	}
	for _, row := range rows {
		feat := fvecFromRow(2, row)
		contribs := exactContributions(t, tree, feat, 2)

		var sum float32
		for _, c := range contribs {
			sum += c
		}
		assert.InDelta(t, tree.PredictValue(feat, 0), sum, 1e-5)
	}
}

func TestContributionsDepthOneTree(t *testing.T) {
	tree, err := New(TreeParam{NumRoots: 1, NumFeature: 1})
	require.NoError(t, err)
	tree.AddChilds(0)
	tree.Node(0).SetSplit(0, 0.5, true)
	tree.Node(1).SetLeaf(1.0)
	tree.Node(2).SetLeaf(3.0)
	tree.Stat(0).SumHess = 10
	tree.Stat(1).SumHess = 4
	tree.Stat(2).SumHess = 6

	// E[f] = (1*4 + 3*6) / 10 = 2.2; the single feature carries the
	// full difference to the prediction.
	feat := fvecFromRow(1, []Entry{{0, 0.9}})
	contribs := exactContributions(t, tree, feat, 1)
	assert.InDelta(t, 0.8, contribs[0], 1e-5)
	assert.InDelta(t, 2.2, contribs[1], 1e-5)
}

func TestContributionsMatchBruteForce(t *testing.T) {
	tree := newTwoLevelTree(t)

	rows := [][]Entry{
		{{0, 0.9}, {1, 1.0}},
		{{0, 0.9}, {1, 5.0}},
		{{0, 0.1}, {1, 3.0}},
		{{0, 0.9}},
		{{1, 1.0}},
		nil,
	}
	for _, row := range rows {
		feat := fvecFromRow(2, row)
		contribs := exactContributions(t, tree, feat, 2)
		want := bruteForceShapley(tree, feat, 2)

		for i := range want {
			assert.InDelta(t, want[i], contribs[i], 1e-4, "slot %d for row %v", i, row)
		}
	}
}

func TestContributionsDuplicateSplitFeature(t *testing.T) {
	// Both levels split on feature 0, so the recursion must unwind the
	// earlier path entry before re-extending it.
	tree, err := New(TreeParam{NumRoots: 1, NumFeature: 1})
	require.NoError(t, err)
	tree.AddChilds(0)
	tree.Node(0).SetSplit(0, 0.5, true)
	tree.Node(1).SetLeaf(1.0)
	tree.AddChilds(2)
	tree.Node(2).SetSplit(0, 2.0, false)
	tree.Node(3).SetLeaf(2.0)
	tree.Node(4).SetLeaf(3.0)
	for nid, sumHess := range map[int]float32{0: 10, 1: 4, 2: 6, 3: 3, 4: 3} {
		tree.Stat(nid).SumHess = sumHess
	}

	for _, row := range [][]Entry{
		{{0, 0.9}},
		{{0, 2.5}},
		{{0, 0.1}},
		nil,
	} {
		feat := fvecFromRow(1, row)
		contribs := exactContributions(t, tree, feat, 1)
		want := bruteForceShapley(tree, feat, 1)

		for i := range want {
			assert.InDelta(t, want[i], contribs[i], 1e-4, "slot %d for row %v", i, row)
		}
	}
}

func TestContributionsConditioned(t *testing.T) {
	tree := newTwoLevelTree(t)
	tree.FillNodeMeanValues()

	feat := fvecFromRow(2, []Entry{{0, 0.9}, {1, 1.0}})

	// Conditioning on feature 0 being present: the remaining game is
	// w(S) = v(S + {0}), so phi(f1) = v({0,1}) - v({0}) = 2.0 - 2.5.
	on := make([]float32, 3)
	require.NoError(t, tree.CalculateContributions(feat, 0, on, 1, 0))
	assert.Zero(t, on[0])
	assert.Zero(t, on[2]) // no bias when conditioning
	assert.InDelta(t, -0.5, on[1], 1e-5)

	// Conditioning on feature 0 being absent: phi(f1) = v({1}) - v({}),
	// with feature 0 always averaged out: 1.6 - 1.9.
	off := make([]float32, 3)
	require.NoError(t, tree.CalculateContributions(feat, 0, off, -1, 0))
	assert.Zero(t, off[0])
	assert.Zero(t, off[2])
	assert.InDelta(t, -0.3, off[1], 1e-5)
}

func TestContributionsConditionFeatureOutsideTree(t *testing.T) {
	tree := newTwoLevelTree(t)

	feat := fvecFromRow(2, []Entry{{0, 0.9}, {1, 1.0}})
	plain := exactContributions(t, tree, feat, 2)

	// Conditioning on a feature the tree never splits on only drops
	// the bias seeding.
	conditioned := make([]float32, 3)
	require.NoError(t, tree.CalculateContributions(feat, 0, conditioned, 1, 17))
	assert.InDelta(t, plain[0], conditioned[0], 1e-6)
	assert.InDelta(t, plain[1], conditioned[1], 1e-6)
	assert.Zero(t, conditioned[2])
}

func TestContributionsRequireMeanValues(t *testing.T) {
	tree := newTwoLevelTree(t)
	feat := fvecFromRow(2, nil)

	contribs := make([]float32, 3)
	err := tree.CalculateContributions(feat, 0, contribs, 0, 0)
	require.Error(t, err)
}
