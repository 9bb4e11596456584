package regtree

// Entry is one element of a sparse feature row: a feature index and
// its value.
type Entry struct {
	Index int
	Value float32
}

// FVec is a dense feature vector a tree can be traversed with. It is
// built once with Init and then reused across rows through Fill/Drop
// cycles, so a large batch never pays for full resets.
//
// An FVec is owned by the caller of a prediction or attribution call
// and must not be shared across concurrent calls.
type FVec struct {
	values  []float32
	missing []bool
}

// Init sets the capacity of the vector and marks every entry missing.
func (f *FVec) Init(size int) {
	f.values = make([]float32, size)
	f.missing = make([]bool, size)
	for i := range f.missing {
		f.missing[i] = true
	}
}

// Fill writes the sparse row's values into the vector. Indices beyond
// the capacity are ignored. Cost is proportional to the row's
// nonzeros, not the capacity.
func (f *FVec) Fill(inst []Entry) {
	for _, e := range inst {
		if e.Index >= len(f.values) {
			continue
		}
		f.values[e.Index] = e.Value
		f.missing[e.Index] = false
	}
}

// Drop marks the sparse row's indices missing again, returning the
// vector to its post-Init state so it can be reused for the next row.
// Must be called with the row previously passed to Fill.
func (f *FVec) Drop(inst []Entry) {
	for _, e := range inst {
		if e.Index >= len(f.values) {
			continue
		}
		f.missing[e.Index] = true
	}
}

// Size returns the capacity of the vector.
func (f *FVec) Size() int { return len(f.values) }

// Value returns the i-th feature value. Only meaningful when the entry
// is not missing.
func (f *FVec) Value(i int) float32 { return f.values[i] }

// IsMissing returns whether the i-th entry is missing.
func (f *FVec) IsMissing(i int) bool { return f.missing[i] }
