// Package vtab is the virtual-table adapter: it bridges modernc.org/sqlite's
// vtab protocol (create, cursor open/close, best-index planning, filter, row
// iteration, column fetch, insert, find-function) to an ann.Index.
package vtab

import (
	"fmt"
	"strings"

	mvtab "modernc.org/sqlite/vtab"

	"github.com/gosqlvec/vecvtab"
	"github.com/gosqlvec/vecvtab/pkg/ann"
)

// ModuleName is the name the extension registers the virtual table module
// under: CREATE VIRTUAL TABLE t USING vector_search(...).
const ModuleName = "vector_search"

const (
	knnSearchFuncName = "knn_search"
	knnParamFuncName  = "knn_param"
)

// knnConstraintOp is the function-constraint opcode BestIndex and
// FindFunction use to recognize knn_search(col, param) in a WHERE clause.
// 150 mirrors SQLite's own SQLITE_INDEX_CONSTRAINT_FUNCTION base value for
// vtab-overloaded functions; modernc.org/sqlite/vtab's ConstraintOp follows
// the same numbering (see DESIGN.md for the grounding of this assumption).
const knnConstraintOp mvtab.ConstraintOp = 150

// idxNum values BestIndex assigns and Filter dispatches on.
const (
	idxNone int = iota
	idxVector
	idxRowid
)

// Module implements mvtab.Module for vector_search. It holds no state of
// its own; each CREATE VIRTUAL TABLE produces an independent Table.
type Module struct{}

func (m *Module) Create(ctx mvtab.Context, args []string) (mvtab.Table, error) {
	return connect(ctx, args)
}

func (m *Module) Connect(ctx mvtab.Context, args []string) (mvtab.Table, error) {
	return connect(ctx, args)
}

// connect parses the two module arguments, declares the table's two-column
// schema, and instantiates the ANN index.
func connect(ctx mvtab.Context, args []string) (mvtab.Table, error) {
	// args[0]=module name, args[1]=db name, args[2]=table name, args[3:]=module args.
	moduleArgs := args[3:]
	if len(moduleArgs) != 2 {
		return nil, fmt.Errorf("%w: vector_search requires exactly two module arguments (space, options), got %d", vecvtab.ErrParse, len(moduleArgs))
	}

	space, err := vecvtab.VectorSpaceFromString(unquoteArg(moduleArgs[0]))
	if err != nil {
		return nil, err
	}
	opts, err := vecvtab.IndexOptionsFromString(unquoteArg(moduleArgs[1]))
	if err != nil {
		return nil, err
	}

	schema := fmt.Sprintf("CREATE TABLE x(%s, distance REAL HIDDEN)", space.Name)
	if err := ctx.Declare(schema); err != nil {
		return nil, fmt.Errorf("declare schema: %w", err)
	}

	return &Table{
		space: space,
		opts:  opts,
		index: ann.New(space, opts),
		known: make(map[int64]struct{}),
	}, nil
}

// unquoteArg strips one layer of single- or double-quoting from a module
// argument, the way real sqlite vtab implementations (FTS5, rtree) dequote
// the raw text handed to xCreate/xConnect.
func unquoteArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if len(arg) >= 2 {
		first, last := arg[0], arg[len(arg)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			inner := arg[1 : len(arg)-1]
			return strings.ReplaceAll(inner, string(first)+string(first), string(first))
		}
	}
	return arg
}

// Table implements mvtab.Table, mvtab.Updater, and the FindFunction hook
// for a single CREATE VIRTUAL TABLE instance.
type Table struct {
	space vecvtab.VectorSpace
	opts  vecvtab.IndexOptions
	index *ann.Index
	known map[int64]struct{}
}

// BestIndex recognizes two constraint shapes: a knn_search function
// constraint on the vector column (idxVector, the hot path), and an
// equality constraint on rowid (idxRowid, reserved; Filter rejects it). If both are present in a single plan, whichever is last in
// info.Constraints wins — the documented tie-break.
func (t *Table) BestIndex(info *mvtab.IndexInfo) error {
	idxNum := idxNone
	argIdx := 0

	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		switch {
		case c.Column == 0 && c.Op == knnConstraintOp:
			c.ArgIndex = argIdx
			c.Omit = true
			argIdx++
			idxNum = idxVector
		case c.Column == -1 && c.Op == mvtab.OpEQ:
			c.ArgIndex = argIdx
			c.Omit = true
			argIdx++
			idxNum = idxRowid
		}
	}

	if idxNum == idxVector {
		info.EstimatedCost = 1.0
		info.EstimatedRows = 10
	} else {
		info.EstimatedCost = 1e10
		info.EstimatedRows = int64(t.index.Len())
	}
	info.IdxNum = idxNum
	return nil
}

// FindFunction lets the planner overload knn_search(col, param) as a
// function constraint on the vector column, recognized in BestIndex above.
func (t *Table) FindFunction(name string, argc int) (mvtab.ConstraintOp, bool) {
	if name == knnSearchFuncName && argc == 2 {
		return knnConstraintOp, true
	}
	return 0, false
}

func (t *Table) Open() (mvtab.Cursor, error) {
	return &Cursor{table: t}, nil
}

func (t *Table) Disconnect() error { return nil }

func (t *Table) Destroy() error { return nil }
