package vtab

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	msqlite "modernc.org/sqlite"
	mvtab "modernc.org/sqlite/vtab"

	"github.com/gosqlvec/vecvtab"
)

// errKNNSearchIsMarkerOnly documents that knn_search's function body is
// never meant to be evaluated directly: it only exists to be recognized by
// BestIndex/FindFunction as a function constraint on the vector column.
var errKNNSearchIsMarkerOnly = fmt.Errorf("knn_search is a planner marker and has no direct value")

// Register installs the vector_search virtual table module against db,
// plus the knn_search and knn_param scalar functions the module's planner
// hooks rely on. Calling Register more than once against the same db is a
// caller error the same way re-declaring a module name is.
func Register(db *sql.DB) error {
	if err := mvtab.RegisterModule(db, ModuleName, &Module{}); err != nil {
		return fmt.Errorf("register %s module: %w", ModuleName, err)
	}
	if err := msqlite.RegisterDeterministicScalarFunction(knnSearchFuncName, 2, knnSearchMarker); err != nil {
		return fmt.Errorf("register %s: %w", knnSearchFuncName, err)
	}
	if err := msqlite.RegisterScalarFunction(knnParamFuncName, 2, knnParam); err != nil {
		return fmt.Errorf("register %s: %w", knnParamFuncName, err)
	}
	return nil
}

// knnSearchMarker is knn_search's body as seen by a plain scalar-function
// call path. It is never reached on the indexed hot path: BestIndex marks
// the constraint Omit=true, so the engine never re-checks it by calling the
// function directly. It only runs if knn_search is used outside of a
// vector_search table's WHERE clause, which is a misuse we reject.
func knnSearchMarker(ctx *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	return nil, errKNNSearchIsMarkerOnly
}

// knnParam builds the opaque KNNParam token knn_search's Filter resolves.
// It is registered non-deterministic: unlike a pure distance function, each
// call allocates a fresh registry entry, so the engine must not memoize or
// elide repeated calls with identical arguments.
func knnParam(ctx *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: knn_param takes exactly 2 arguments", vecvtab.ErrType)
	}
	blob, ok := args[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: knn_param's first argument must be a blob", vecvtab.ErrType)
	}
	query, err := vecvtab.VectorFromBlob(blob)
	if err != nil {
		return nil, err
	}
	k, ok := toInt64(args[1])
	if !ok || k <= 0 {
		return nil, fmt.Errorf("%w: knn_param's second argument must be a positive integer", vecvtab.ErrType)
	}

	token := vecvtab.NewKNNParamToken(&vecvtab.KNNParam{Query: query, K: k})
	return token, nil
}

func toInt64(v driver.Value) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}
