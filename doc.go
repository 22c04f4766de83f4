// Package vecvtab embeds an approximate nearest-neighbor vector index inside
// modernc.org/sqlite as a virtual table extension.
//
// A host application registers the extension against a *sql.DB, then issues
// ordinary SQL:
//
//	CREATE VIRTUAL TABLE t USING vector_search(
//	    '{"name":"v","dim":128,"distance_type":"l2"}',
//	    '{"max_elements":100000,"M":16,"ef_construction":200}'
//	);
//	INSERT INTO t(rowid, v) VALUES (1, ?);
//	SELECT rowid, distance FROM t WHERE knn_search(v, knn_param(?, 10));
//
// The table's single vector column is backed by an in-memory HNSW graph
// (pkg/ann); row storage, the query planner, and the cursor protocol are all
// supplied by the host engine. See pkg/vtab for the adapter that bridges the
// two, and SPEC_FULL.md for the full component breakdown.
package vecvtab
