package regtree

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Dump renders the tree as a human-readable string in the requested
// format, "text" or "json". The feature map supplies display names and
// types for split features and may be nil. With withStats set, split
// gain and hessian cover are included.
//
// Dump reads the arena only; it never mutates the tree.
func (t *Tree) Dump(fmap *FeatureMap, withStats bool, format string) (string, error) {
	switch format {
	case "text":
		var sb strings.Builder
		for root := 0; root < t.Param.NumRoots; root++ {
			t.dumpText(&sb, fmap, root, 0, withStats)
		}
		return sb.String(), nil
	case "json":
		roots := make([]*jsonDumpNode, t.Param.NumRoots)
		for root := 0; root < t.Param.NumRoots; root++ {
			roots[root] = t.dumpJSON(fmap, root, 0, withStats)
		}
		var out []byte
		var err error
		if t.Param.NumRoots == 1 {
			out, err = json.MarshalIndent(roots[0], "", "  ")
		} else {
			out, err = json.MarshalIndent(roots, "", "  ")
		}
		if err != nil {
			return "", fmt.Errorf("marshaling dump: %w", err)
		}
		return string(out), nil
	}
	return "", fmt.Errorf("unknown dump format %q", format)
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func (t *Tree) dumpText(sb *strings.Builder, fmap *FeatureMap, nid, depth int, withStats bool) {
	for i := 0; i < depth; i++ {
		sb.WriteByte('\t')
	}

	node := &t.nodes[nid]
	if node.IsLeaf() {
		fmt.Fprintf(sb, "%d:leaf=%s", nid, formatFloat(node.LeafValue()))
		if withStats {
			fmt.Fprintf(sb, ",cover=%s", formatFloat(t.stats[nid].SumHess))
		}
		sb.WriteByte('\n')
		return
	}

	split := node.SplitIndex()
	switch fmap.Type(split) {
	case Indicator:
		// An indicator split tests whether the flag is set: yes is the
		// branch a set flag takes, no is the default (unset) branch.
		yes := node.LeftChild()
		if node.DefaultLeft() {
			yes = node.RightChild()
		}
		fmt.Fprintf(sb, "%d:[%s] yes=%d,no=%d",
			nid, fmap.Name(split), yes, node.DefaultChild())
	case Integer:
		fmt.Fprintf(sb, "%d:[%s<%d] yes=%d,no=%d,missing=%d",
			nid, fmap.Name(split), int64(node.SplitCond()),
			node.LeftChild(), node.RightChild(), node.DefaultChild())
	default:
		fmt.Fprintf(sb, "%d:[%s<%s] yes=%d,no=%d,missing=%d",
			nid, fmap.Name(split), formatFloat(node.SplitCond()),
			node.LeftChild(), node.RightChild(), node.DefaultChild())
	}
	if withStats {
		fmt.Fprintf(sb, ",gain=%s,cover=%s",
			formatFloat(t.stats[nid].LossChg), formatFloat(t.stats[nid].SumHess))
	}
	sb.WriteByte('\n')

	t.dumpText(sb, fmap, node.LeftChild(), depth+1, withStats)
	t.dumpText(sb, fmap, node.RightChild(), depth+1, withStats)
}

type jsonDumpNode struct {
	NodeID         int             `json:"nodeid"`
	Depth          *int            `json:"depth,omitempty"`
	Split          string          `json:"split,omitempty"`
	SplitCondition *float32        `json:"split_condition,omitempty"`
	Yes            *int            `json:"yes,omitempty"`
	No             *int            `json:"no,omitempty"`
	Missing        *int            `json:"missing,omitempty"`
	Gain           *float32        `json:"gain,omitempty"`
	Cover          *float32        `json:"cover,omitempty"`
	Leaf           *float32        `json:"leaf,omitempty"`
	Children       []*jsonDumpNode `json:"children,omitempty"`
}

func (t *Tree) dumpJSON(fmap *FeatureMap, nid, depth int, withStats bool) *jsonDumpNode {
	node := &t.nodes[nid]
	out := &jsonDumpNode{NodeID: nid}

	if node.IsLeaf() {
		leaf := node.LeafValue()
		out.Leaf = &leaf
		if withStats {
			cover := t.stats[nid].SumHess
			out.Cover = &cover
		}
		return out
	}

	split := node.SplitIndex()
	d := depth
	yes := node.LeftChild()
	no := node.RightChild()

	out.Depth = &d
	out.Split = fmap.Name(split)
	if fmap.Type(split) == Indicator {
		// Flag splits carry no threshold and no separate missing branch.
		if node.DefaultLeft() {
			yes = node.RightChild()
		}
		no = node.DefaultChild()
	} else {
		cond := node.SplitCond()
		missing := node.DefaultChild()
		out.SplitCondition = &cond
		out.Missing = &missing
	}
	out.Yes = &yes
	out.No = &no
	if withStats {
		gain := t.stats[nid].LossChg
		cover := t.stats[nid].SumHess
		out.Gain = &gain
		out.Cover = &cover
	}
	out.Children = []*jsonDumpNode{
		t.dumpJSON(fmap, node.LeftChild(), depth+1, withStats),
		t.dumpJSON(fmap, node.RightChild(), depth+1, withStats),
	}
	return out
}
