package vtab

import (
	"fmt"

	mvtab "modernc.org/sqlite/vtab"

	"github.com/gosqlvec/vecvtab"
	"github.com/gosqlvec/vecvtab/pkg/ann"
)

// Insert is the only mutation vector_search tables support: a plain INSERT
// with an explicit rowid and a vector blob for column 0. The distance
// column is computed, never stored.
func (t *Table) Insert(cols []mvtab.Value, rowid *int64) error {
	if rowid == nil {
		return fmt.Errorf("%w: vector_search requires an explicit rowid on insert", vecvtab.ErrType)
	}
	rid := *rowid
	if rid < 0 {
		return fmt.Errorf("%w: rowid must be a non-negative integer, got %d", vecvtab.ErrType, rid)
	}
	if rid > ann.MaxLabel {
		return fmt.Errorf("%w: rowid %d", ann.ErrLabelOutOfRange, rid)
	}
	if len(cols) == 0 {
		return fmt.Errorf("%w: missing vector column value", vecvtab.ErrType)
	}
	blob, ok := cols[0].([]byte)
	if !ok {
		return fmt.Errorf("%w: column %s must be a blob", vecvtab.ErrType, t.space.Name)
	}

	vec, err := vecvtab.VectorFromBlob(blob)
	if err != nil {
		return err
	}
	if vec.Dim() != t.space.Dim {
		return fmt.Errorf("%w: inserted vector has dimension %d, table has dimension %d",
			vecvtab.ErrDimensionMismatch, vec.Dim(), t.space.Dim)
	}
	if t.space.Normalize {
		vec = vec.Normalize()
	}

	if _, exists := t.known[rid]; exists {
		return fmt.Errorf("%w: rowid %d", vecvtab.ErrDuplicateRowid, rid)
	}
	if err := t.index.Add(rid, vec); err != nil {
		return err
	}
	t.known[rid] = struct{}{}
	return nil
}

// Update is not supported: vectors are immutable once indexed, since the
// embedded HNSW graph has no in-place replace.
func (t *Table) Update(oldRowid int64, cols []mvtab.Value, newRowid *int64) error {
	return fmt.Errorf("%w: UPDATE on vector_search tables", vecvtab.ErrUnsupportedOp)
}

// Delete is not supported: the embedded HNSW graph has no node removal.
func (t *Table) Delete(rowid int64) error {
	return fmt.Errorf("%w: DELETE on vector_search tables", vecvtab.ErrUnsupportedOp)
}
