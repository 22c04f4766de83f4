package vtab

import (
	"fmt"

	mvtab "modernc.org/sqlite/vtab"

	"github.com/gosqlvec/vecvtab"
	"github.com/gosqlvec/vecvtab/pkg/ann"
)

// Cursor implements mvtab.Cursor. A cursor is only ever useful after Filter
// has been called with idxVector: scanning a vector_search table without
// going through knn_search is rejected, there is no "scan everything" path.
type Cursor struct {
	table   *Table
	results []ann.Neighbor
	pos     int
}

// Filter dispatches on the idx_num BestIndex assigned. idxVector is the
// only plan that produces rows; any other plan (including idxRowid, which
// BestIndex recognizes but Filter does not serve) is rejected with an error.
func (c *Cursor) Filter(idxNum int, idxStr string, vals []mvtab.Value) error {
	c.results = nil
	c.pos = 0

	if idxNum != idxVector {
		return fmt.Errorf("%w: vector_search tables can only be queried through knn_search", vecvtab.ErrUnsupportedOp)
	}
	return c.filterVector(vals)
}

func (c *Cursor) filterVector(vals []mvtab.Value) error {
	if len(vals) == 0 {
		return fmt.Errorf("%w: knn_param() must be used as knn_search's 2nd argument", vecvtab.ErrType)
	}

	param, ok := vecvtab.ResolveKNNParamToken(vals[0])
	if !ok {
		return fmt.Errorf("%w: knn_param() must be used as knn_search's 2nd argument", vecvtab.ErrType)
	}
	defer vecvtab.ReleaseKNNParamToken(vals[0])

	if param.Query.Dim() != c.table.space.Dim {
		return fmt.Errorf("%w: query vector has dimension %d, table has dimension %d",
			vecvtab.ErrDimensionMismatch, param.Query.Dim(), c.table.space.Dim)
	}

	query := param.Query
	if c.table.space.Normalize {
		query = query.Normalize()
	}

	c.results = c.table.index.SearchKNN(query, param.K)
	return nil
}

func (c *Cursor) Next() error {
	c.pos++
	return nil
}

func (c *Cursor) Eof() bool {
	return c.pos >= len(c.results)
}

func (c *Cursor) Rowid() (int64, error) {
	if c.Eof() {
		return 0, fmt.Errorf("cursor is past the end of its result set")
	}
	return c.results[c.pos].Label, nil
}

// Column returns column N for the current row: 0 is the vector blob
// (fetched back from the index by label), 1 is the knn distance. Any other
// index is out of range for this table's two-column schema.
func (c *Cursor) Column(n int) (mvtab.Value, error) {
	if c.Eof() {
		return nil, fmt.Errorf("cursor is past the end of its result set")
	}
	row := c.results[c.pos]

	switch n {
	case 0:
		vec, ok := c.table.index.GetByLabel(row.Label)
		if !ok {
			return nil, fmt.Errorf("%w: label %d", vecvtab.ErrNotFound, row.Label)
		}
		return vec.ToBlob(), nil
	case 1:
		return float64(row.Distance), nil
	default:
		return nil, fmt.Errorf("Invalid column index: %d", n)
	}
}

func (c *Cursor) Close() error { return nil }
