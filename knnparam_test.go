package vecvtab

import (
	"encoding/binary"
	"runtime"
	"testing"
	"time"
)

func TestKNNParamTokenRoundTrip(t *testing.T) {
	want := &KNNParam{Query: NewVector([]float32{1, 2, 3}), K: 5}
	token := NewKNNParamToken(want)

	got, ok := ResolveKNNParamToken(token)
	if !ok {
		t.Fatalf("ResolveKNNParamToken() ok = false, want true")
	}
	if got.K != want.K || got.Query.Dim() != want.Query.Dim() {
		t.Errorf("got %+v, want %+v", got, want)
	}

	ReleaseKNNParamToken(token)
	if _, ok := ResolveKNNParamToken(token); ok {
		t.Errorf("token resolved after release")
	}
}

func TestResolveKNNParamTokenRejectsForeignValues(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{name: "int64", v: int64(5)},
		{name: "nil", v: nil},
		{name: "unrelated blob", v: []byte("not a token at all, wrong shape")},
		{name: "tampered tag", v: append([]byte("wrong_discriminator_string"), make([]byte, 8)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ResolveKNNParamToken(tt.v); ok {
				t.Errorf("ResolveKNNParamToken(%v) ok = true, want false", tt.v)
			}
		})
	}
}

// TestKNNParamTokenReclaimedWithoutRelease covers a token that is never
// threaded through ReleaseKNNParamToken — the misuse path (knn_param()
// used as a bare scalar, or bound to a plan that never reaches Filter).
// The finalizer set in NewKNNParamToken must still reclaim the registry
// slot once the KNNParam becomes unreachable, instead of leaking it for
// the life of the process.
func TestKNNParamTokenReclaimedWithoutRelease(t *testing.T) {
	p := &KNNParam{Query: NewVector([]float32{1, 2}), K: 3}
	token := NewKNNParamToken(p)
	key := binary.LittleEndian.Uint64(token[len(knnParamDiscriminator):])
	p = nil

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if _, ok := knnParamRegistry.Load(key); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("registry entry for an unreleased, unreachable token was never reclaimed")
}

func TestKNNParamTokensAreIndependent(t *testing.T) {
	a := NewKNNParamToken(&KNNParam{Query: NewVector([]float32{1}), K: 1})
	b := NewKNNParamToken(&KNNParam{Query: NewVector([]float32{2}), K: 2})

	gotA, ok := ResolveKNNParamToken(a)
	if !ok || gotA.K != 1 {
		t.Fatalf("token a resolved to %+v", gotA)
	}
	gotB, ok := ResolveKNNParamToken(b)
	if !ok || gotB.K != 2 {
		t.Fatalf("token b resolved to %+v", gotB)
	}
}
