// Package ann wraps github.com/fogfish/hnsw as the ANN index contract the
// virtual-table adapter relies on: add, search_knn, and get_by_label over
// integer labels, with a hard capacity ceiling the embedded library does not
// itself enforce.
package ann

import (
	"fmt"
	"math"
	"sort"

	"github.com/fogfish/hnsw"
	hnswvector "github.com/fogfish/hnsw/vector"
	surface "github.com/kshard/vector"

	"github.com/gosqlvec/vecvtab"
)

// MaxLabel is the largest row identifier the index can hold: fogfish/hnsw
// keys its graph nodes by uint32, so host rowids (int64) must fit that
// native width. See SPEC_FULL.md's label-width-mismatch note.
const MaxLabel = math.MaxUint32

var (
	// ErrLabelOutOfRange is returned when a label does not fit the index's
	// native uint32 key width.
	ErrLabelOutOfRange = fmt.Errorf("label exceeds index's native width (max %d)", uint32(MaxLabel))
)

// Neighbor is one result row from SearchKNN: a label and its distance to
// the query vector under the index's configured metric, ascending.
type Neighbor struct {
	Label    int64
	Distance float32
}

// Index is a capacity-bounded HNSW graph over (label, vector) pairs for a
// single metric. It owns the vectors it stores; callers that need a vector
// back must go through GetByLabel.
type Index struct {
	space   vecvtab.VectorSpace
	opts    vecvtab.IndexOptions
	graph   *hnsw.HNSW[hnswvector.VF32]
	vectors map[uint32]vecvtab.Vector
	size    int
}

// New builds an empty Index for the given space and options. The metric is
// fixed at construction: MetricCosine and MetricIP-with-normalize behave
// identically because the adapter normalizes stored and query vectors
// before they ever reach the index.
func New(space vecvtab.VectorSpace, opts vecvtab.IndexOptions) *Index {
	idx := &Index{
		space:   space,
		opts:    opts,
		vectors: make(map[uint32]vecvtab.Vector),
	}
	switch space.Metric {
	case vecvtab.MetricIP:
		idx.graph = hnsw.New(hnswvector.SurfaceVF32(surface.Dot()), hnsw.WithM(opts.M), hnsw.WithEfConstruction(opts.EfConstruction))
	case vecvtab.MetricCosine:
		idx.graph = hnsw.New(hnswvector.SurfaceVF32(surface.Cosine()), hnsw.WithM(opts.M), hnsw.WithEfConstruction(opts.EfConstruction))
	default:
		idx.graph = hnsw.New(hnswvector.SurfaceVF32(surface.Euclidean()), hnsw.WithM(opts.M), hnsw.WithEfConstruction(opts.EfConstruction))
	}
	return idx
}

// Add inserts vec under label. It fails if label collides with an existing
// label, if label does not fit the index's native width, or if inserting
// would exceed max_elements.
func (idx *Index) Add(label int64, vec vecvtab.Vector) error {
	if label < 0 || label > MaxLabel {
		return ErrLabelOutOfRange
	}
	key := uint32(label)

	if _, exists := idx.vectors[key]; exists {
		return fmt.Errorf("label %d already present", label)
	}
	if idx.size >= idx.opts.MaxElements {
		return fmt.Errorf("%w: max_elements=%d", vecvtab.ErrCapacityExceeded, idx.opts.MaxElements)
	}

	idx.graph.Insert(hnswvector.VF32{Key: key, Vec: vec.Data()})
	idx.vectors[key] = vec
	idx.size++
	return nil
}

// SearchKNN returns up to k labels closest to query, ascending by distance,
// recomputed against the index's own stored (possibly normalized) vectors
// rather than trusted from the graph traversal — mirroring how the graph
// is only used to shortlist candidates cheaply.
func (idx *Index) SearchKNN(query vecvtab.Vector, k int64) []Neighbor {
	if idx.size == 0 || k <= 0 {
		return nil
	}

	efSearch := idx.opts.EfConstruction
	candidateCount := int(k) * 2
	if candidateCount < efSearch {
		candidateCount = efSearch
	}
	if candidateCount > idx.size {
		candidateCount = idx.size
	}

	hits := idx.graph.Search(hnswvector.VF32{Key: 0, Vec: query.Data()}, candidateCount, efSearch)

	results := make([]Neighbor, 0, len(hits))
	dist := distanceFunc(idx.space.Metric)
	for _, hit := range hits {
		vec, ok := idx.vectors[hit.Key]
		if !ok {
			continue
		}
		results = append(results, Neighbor{
			Label:    int64(hit.Key),
			Distance: dist(query.Data(), vec.Data()),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if int64(len(results)) > k {
		results = results[:k]
	}
	return results
}

// GetByLabel returns the (possibly normalized) vector stored under label.
func (idx *Index) GetByLabel(label int64) (vecvtab.Vector, bool) {
	if label < 0 || label > MaxLabel {
		return vecvtab.Vector{}, false
	}
	v, ok := idx.vectors[uint32(label)]
	return v, ok
}

// Len returns the current number of stored vectors.
func (idx *Index) Len() int {
	return idx.size
}

func distanceFunc(m vecvtab.Metric) func(a, b []float32) float32 {
	switch m {
	case vecvtab.MetricIP:
		return negativeDot
	case vecvtab.MetricCosine:
		return cosineDistance
	default:
		return euclidean
	}
}

// euclidean is squared L2 distance, not the square root: this matches
// hnswlib's L2Space (and the distances documented in SPEC_FULL.md's
// end-to-end scenarios), which never takes the final sqrt since it is
// monotonic in the squared sum and cheaper to compute.
func euclidean(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func negativeDot(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return -dot
}

func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/float32(math.Sqrt(float64(na))*math.Sqrt(float64(nb)))
}
