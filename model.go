package regtree

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// XGBModel corresponds to an XGBoost JSON model.
type XGBModel struct {
	Learner Learner `json:"learner"`
}

// Learner is the top level part of an XGBoost model.
type Learner struct {
	Attributes      Attributes      `json:"attributes"`
	GradientBooster GradientBooster `json:"gradient_booster"`
}

// Attributes holds attributes from an XGBoost model.
type Attributes struct {
	BestNtreeLimit json.Number `json:"best_ntree_limit"`
}

// GradientBooster holds the XGBoost model.
type GradientBooster struct {
	Model Model `json:"model"`
}

// Model is the XGBoost model.
type Model struct {
	Trees []XGBTree `json:"trees"`
}

// XGBTree is one tree in an XGBoost model as decoded from JSON. The
// node fields are columnar, one slice entry per node index.
type XGBTree struct {
	BaseWeights     []float32    `json:"base_weights"`
	DefaultLeft     []int        `json:"default_left"`
	LeftChildren    []int        `json:"left_children"`
	RightChildren   []int        `json:"right_children"`
	LossChanges     []float32    `json:"loss_changes"`
	SplitConditions []float32    `json:"split_conditions"`
	SplitIndices    []int        `json:"split_indices"`
	SumHessian      []float32    `json:"sum_hessian"`
	TreeParam       XGBTreeParam `json:"tree_param"`
}

// XGBTreeParam holds tree parameters as decoded from JSON.
type XGBTreeParam struct {
	NumNodes   json.Number `json:"num_nodes"`
	NumFeature json.Number `json:"num_feature"`
}

func parseModel(file string) (*XGBModel, []*Tree, error) {
	buf, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, nil, fmt.Errorf("reading file: %w", err)
	}

	var xm XGBModel
	if err := json.Unmarshal(buf, &xm); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling: %w", err)
	}

	var trees []*Tree
	//nolint:gocritic // Copies inefficiently, but should only be done once.
	for _, xt := range xm.Learner.GradientBooster.Model.Trees {
		tree, err := parseTree(xt)
		if err != nil {
			return nil, nil, err
		}

		trees = append(trees, tree)
	}

	return &xm, trees, nil
}

// parseTree builds an arena Tree from the columnar JSON arrays.
func parseTree(xt XGBTree) (*Tree, error) {
	numNodes64, err := xt.TreeParam.NumNodes.Int64()
	if err != nil {
		return nil, fmt.Errorf("getting num nodes as int64: %w", err)
	}
	numNodes := int(numNodes64)
	if numNodes < 1 {
		return nil, fmt.Errorf("tree has %d nodes", numNodes)
	}
	if len(xt.BaseWeights) < numNodes ||
		len(xt.LeftChildren) < numNodes ||
		len(xt.RightChildren) < numNodes ||
		len(xt.SplitConditions) < numNodes ||
		len(xt.SplitIndices) < numNodes ||
		len(xt.DefaultLeft) < numNodes ||
		len(xt.SumHessian) < numNodes {
		return nil, fmt.Errorf("tree arrays shorter than num_nodes %d", numNodes)
	}

	numFeature := 0
	if xt.TreeParam.NumFeature != "" {
		nf, err := xt.TreeParam.NumFeature.Int64()
		if err != nil {
			return nil, fmt.Errorf("getting num feature as int64: %w", err)
		}
		numFeature = int(nf)
	}

	t, err := New(TreeParam{NumRoots: 1, NumFeature: numFeature})
	if err != nil {
		return nil, err
	}
	t.Param.NumNodes = numNodes
	t.nodes = make([]Node, numNodes)
	t.stats = make([]NodeStat, numNodes)

	for i := 0; i < numNodes; i++ {
		node := &t.nodes[i]
		if i == 0 {
			node.setParent(noNode, false)
		}

		left := xt.LeftChildren[i]
		right := xt.RightChildren[i]

		if left == noNode {
			node.SetLeaf(xt.BaseWeights[i])
		} else {
			if left >= numNodes || right >= numNodes || right == noNode {
				return nil, fmt.Errorf("node %d has children %d/%d outside tree of %d nodes",
					i, left, right, numNodes)
			}
			node.SetSplit(xt.SplitIndices[i], xt.SplitConditions[i], xt.DefaultLeft[i] == 1)
			node.setChildren(left, right)
			t.nodes[left].setParent(i, true)
			t.nodes[right].setParent(i, false)
		}

		t.stats[i].SumHess = xt.SumHessian[i]
		t.stats[i].BaseWeight = xt.BaseWeights[i]
		if i < len(xt.LossChanges) {
			t.stats[i].LossChg = xt.LossChanges[i]
		}
	}

	return t, nil
}
