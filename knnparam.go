package vecvtab

import (
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"
)

// knnParamDiscriminator is the fixed tag carried by every token produced by
// NewKNNParamToken. It is the Go-native stand-in for the C extension's
// tagged-pointer discriminator string: since the host engine and the
// extension run in the same process here, there is no void* to tag, so the
// "pointer" is a registry key and the tag is its prefix.
const knnParamDiscriminator = "vector_search_knn_param"

// KNNParam is the heap-allocated (query_vector, k) tuple produced by
// knn_param() and consumed by knn_search()'s Filter.
type KNNParam struct {
	Query Vector
	K     int64
}

var (
	knnParamRegistry sync.Map // uint64 -> *KNNParam
	knnParamSeq      uint64
)

// NewKNNParamToken registers p and returns the opaque blob token that flows
// through the host's value ABI as the result of knn_param(). The token is
// knnParamDiscriminator followed by an 8-byte little-endian registry key.
//
// A finalizer on p is the deleter of last resort: knn_search's Filter calls
// ReleaseKNNParamToken once the token resolves, but a knn_param() value that is misused — passed to some other
// scalar function, selected as a bare column, or otherwise never reaching
// Filter — would otherwise pin its registry entry forever. Once p becomes
// unreachable, the finalizer reclaims the slot the same way it would if
// Filter had released it explicitly.
func NewKNNParamToken(p *KNNParam) []byte {
	key := atomic.AddUint64(&knnParamSeq, 1)
	knnParamRegistry.Store(key, p)
	runtime.SetFinalizer(p, func(*KNNParam) { knnParamRegistry.Delete(key) })

	token := make([]byte, len(knnParamDiscriminator)+8)
	copy(token, knnParamDiscriminator)
	binary.LittleEndian.PutUint64(token[len(knnParamDiscriminator):], key)
	return token
}

// ResolveKNNParamToken validates the discriminator and resolves the
// registered *KNNParam for a value produced by NewKNNParamToken. Any value
// that is not a well-formed, correctly tagged token — a plain integer, a
// blob from some other function, a tampered tag — is rejected here, which
// is what makes knn_search's parameter channel tamper-evident.
func ResolveKNNParamToken(v any) (*KNNParam, bool) {
	b, ok := v.([]byte)
	if !ok || len(b) != len(knnParamDiscriminator)+8 {
		return nil, false
	}
	if string(b[:len(knnParamDiscriminator)]) != knnParamDiscriminator {
		return nil, false
	}
	key := binary.LittleEndian.Uint64(b[len(knnParamDiscriminator):])
	raw, ok := knnParamRegistry.Load(key)
	if !ok {
		return nil, false
	}
	return raw.(*KNNParam), true
}

// ReleaseKNNParamToken is the deleter: Filter calls it exactly once, after
// the parameter has been consumed, so the registry entry is freed
// immediately on the happy path rather than waiting on the finalizer
// backstop in NewKNNParamToken.
func ReleaseKNNParamToken(v any) {
	b, ok := v.([]byte)
	if !ok || len(b) != len(knnParamDiscriminator)+8 {
		return
	}
	key := binary.LittleEndian.Uint64(b[len(knnParamDiscriminator):])
	if raw, ok := knnParamRegistry.Load(key); ok {
		runtime.SetFinalizer(raw.(*KNNParam), nil)
	}
	knnParamRegistry.Delete(key)
}
