package regtree

// Binary model layout, compatible with xgboost's tree_model.h: a
// 148-byte TreeParam header (6 int32 fields plus 31 reserved int32 of
// padding), the node array (20-byte records), the node stat array
// (16-byte records), and a length-prefixed leaf vector payload when
// SizeLeafVector is nonzero. All values are little endian.

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	nodeWireSize  = 20
	statWireSize  = 16
	paramWireSize = (6 + treeParamReserved) * 4

	// loadChunkRecords bounds how many records Load reads per batch.
	// The header's node count is untrusted, so arrays grow as records
	// actually arrive; a corrupt count fails on the first short read
	// instead of demanding a huge allocation up front.
	loadChunkRecords = 1 << 12
)

// Save writes the tree to w in the binary model format.
func (t *Tree) Save(w io.Writer) error {
	if t.Param.NumNodes != len(t.nodes) || t.Param.NumNodes != len(t.stats) {
		return fmt.Errorf("node count %d does not match arrays (%d nodes, %d stats)",
			t.Param.NumNodes, len(t.nodes), len(t.stats))
	}
	if t.Param.NumNodes == 0 {
		return fmt.Errorf("cannot save a tree with no nodes")
	}

	buf := make([]byte, paramWireSize+t.Param.NumNodes*(nodeWireSize+statWireSize))

	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(int32(t.Param.NumRoots)))
	le.PutUint32(buf[4:], uint32(int32(t.Param.NumNodes)))
	le.PutUint32(buf[8:], uint32(int32(t.Param.NumDeleted)))
	le.PutUint32(buf[12:], uint32(int32(t.Param.MaxDepth)))
	le.PutUint32(buf[16:], uint32(int32(t.Param.NumFeature)))
	le.PutUint32(buf[20:], uint32(int32(t.Param.SizeLeafVector)))

	off := paramWireSize
	for i := range t.nodes {
		n := &t.nodes[i]
		le.PutUint32(buf[off:], uint32(n.parent))
		le.PutUint32(buf[off+4:], uint32(n.cleft))
		le.PutUint32(buf[off+8:], uint32(n.cright))
		le.PutUint32(buf[off+12:], n.sindex)
		le.PutUint32(buf[off+16:], math.Float32bits(n.info))
		off += nodeWireSize
	}
	for i := range t.stats {
		s := &t.stats[i]
		le.PutUint32(buf[off:], math.Float32bits(s.LossChg))
		le.PutUint32(buf[off+4:], math.Float32bits(s.SumHess))
		le.PutUint32(buf[off+8:], math.Float32bits(s.BaseWeight))
		le.PutUint32(buf[off+12:], uint32(s.LeafChildCnt))
		off += statWireSize
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing tree: %w", err)
	}

	if t.Param.SizeLeafVector != 0 {
		lv := make([]byte, 8+4*len(t.leafVector))
		le.PutUint64(lv[0:], uint64(len(t.leafVector)))
		for i, v := range t.leafVector {
			le.PutUint32(lv[8+4*i:], math.Float32bits(v))
		}
		if _, err := w.Write(lv); err != nil {
			return fmt.Errorf("writing leaf vector: %w", err)
		}
	}

	return nil
}

// Load reads a tree in the binary model format from r, replacing the
// receiver's contents. Deleted nodes are rediscovered by scanning for
// the deleted sentinel, and the resulting free list must match the
// header's deleted count.
func (t *Tree) Load(r io.Reader) error {
	hdr := make([]byte, paramWireSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return fmt.Errorf("reading tree param: %w", err)
	}

	le := binary.LittleEndian
	t.Param.NumRoots = int(int32(le.Uint32(hdr[0:])))
	t.Param.NumNodes = int(int32(le.Uint32(hdr[4:])))
	t.Param.NumDeleted = int(int32(le.Uint32(hdr[8:])))
	t.Param.MaxDepth = int(int32(le.Uint32(hdr[12:])))
	t.Param.NumFeature = int(int32(le.Uint32(hdr[16:])))
	t.Param.SizeLeafVector = int(int32(le.Uint32(hdr[20:])))

	if err := t.Param.validate(); err != nil {
		return fmt.Errorf("invalid tree param: %w", err)
	}
	if t.Param.NumNodes <= 0 {
		return fmt.Errorf("invalid node count %d", t.Param.NumNodes)
	}
	if t.Param.NumDeleted < 0 || t.Param.NumDeleted > t.Param.NumNodes-t.Param.NumRoots {
		return fmt.Errorf("invalid deleted count %d for %d nodes", t.Param.NumDeleted, t.Param.NumNodes)
	}

	buf := make([]byte, loadChunkRecords*nodeWireSize)

	t.nodes = t.nodes[:0]
	for remaining := t.Param.NumNodes; remaining > 0; {
		n := remaining
		if n > loadChunkRecords {
			n = loadChunkRecords
		}
		chunk := buf[:n*nodeWireSize]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return fmt.Errorf("reading nodes: %w", err)
		}
		for off := 0; off < len(chunk); off += nodeWireSize {
			t.nodes = append(t.nodes, Node{
				parent: int32(le.Uint32(chunk[off:])),
				cleft:  int32(le.Uint32(chunk[off+4:])),
				cright: int32(le.Uint32(chunk[off+8:])),
				sindex: le.Uint32(chunk[off+12:]),
				info:   math.Float32frombits(le.Uint32(chunk[off+16:])),
			})
		}
		remaining -= n
	}

	t.stats = t.stats[:0]
	for remaining := t.Param.NumNodes; remaining > 0; {
		n := remaining
		if n > loadChunkRecords {
			n = loadChunkRecords
		}
		chunk := buf[:n*statWireSize]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return fmt.Errorf("reading node stats: %w", err)
		}
		for off := 0; off < len(chunk); off += statWireSize {
			t.stats = append(t.stats, NodeStat{
				LossChg:      math.Float32frombits(le.Uint32(chunk[off:])),
				SumHess:      math.Float32frombits(le.Uint32(chunk[off+4:])),
				BaseWeight:   math.Float32frombits(le.Uint32(chunk[off+8:])),
				LeafChildCnt: int32(le.Uint32(chunk[off+12:])),
			})
		}
		remaining -= n
	}

	t.leafVector = nil
	if t.Param.SizeLeafVector != 0 {
		var length uint64
		if err := binary.Read(r, le, &length); err != nil {
			return fmt.Errorf("reading leaf vector length: %w", err)
		}
		want := uint64(t.Param.NumNodes) * uint64(t.Param.SizeLeafVector)
		if length != want {
			return fmt.Errorf("leaf vector length %d, want %d", length, want)
		}
		for remaining := int(length); remaining > 0; {
			n := remaining
			if n > loadChunkRecords {
				n = loadChunkRecords
			}
			chunk := buf[:n*4]
			if _, err := io.ReadFull(r, chunk); err != nil {
				return fmt.Errorf("reading leaf vector: %w", err)
			}
			for off := 0; off < len(chunk); off += 4 {
				t.leafVector = append(t.leafVector, math.Float32frombits(le.Uint32(chunk[off:])))
			}
			remaining -= n
		}
	}

	// Rediscover deleted nodes.
	t.deletedNodes = t.deletedNodes[:0]
	for i := t.Param.NumRoots; i < t.Param.NumNodes; i++ {
		if t.nodes[i].IsDeleted() {
			t.deletedNodes = append(t.deletedNodes, i)
		}
	}
	if len(t.deletedNodes) != t.Param.NumDeleted {
		return fmt.Errorf("found %d deleted nodes, header says %d",
			len(t.deletedNodes), t.Param.NumDeleted)
	}

	t.nodeMeanValues = nil
	return nil
}
