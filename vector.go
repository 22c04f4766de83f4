package vecvtab

import (
	"encoding/binary"
	"fmt"
	"math"

	math32 "github.com/chewxy/math32"
)

// Vector is a fixed-width sequence of 32-bit floats. It is a value type:
// operations return new Vectors rather than mutating in place, but the hot
// paths (decode, normalize) move the backing slice instead of copying it.
type Vector struct {
	data []float32
}

// NewVector wraps data as a Vector without copying. Callers that still hold
// a reference to data must treat it as owned by the Vector from this point.
func NewVector(data []float32) Vector {
	return Vector{data: data}
}

// VectorFromBlob decodes the raw little-endian contiguous bytes of a blob
// into a Vector. It fails if blob is empty or its length is not a multiple
// of 4; the round-trip law from_blob(to_blob(v)) == v holds bitwise.
func VectorFromBlob(blob []byte) (Vector, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return Vector{}, wrapError("decode_vector", fmt.Errorf("%w: length %d is not a positive multiple of 4", ErrDecode, len(blob)))
	}
	dim := len(blob) / 4
	data := make([]float32, dim)
	for i := 0; i < dim; i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		data[i] = math.Float32frombits(bits)
	}
	return Vector{data: data}, nil
}

// ToBlob encodes the vector as contiguous little-endian bytes, the bit-exact
// inverse of VectorFromBlob.
func (v Vector) ToBlob() []byte {
	blob := make([]byte, len(v.data)*4)
	for i, f := range v.data {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], math.Float32bits(f))
	}
	return blob
}

// Dim returns the vector's dimension.
func (v Vector) Dim() int {
	return len(v.data)
}

// Data returns the underlying float32 slice. Callers must not mutate it.
func (v Vector) Data() []float32 {
	return v.data
}

// Normalize returns a new Vector scaled to unit Euclidean norm. A zero
// vector normalizes to itself, per spec (deterministic, not an error).
func (v Vector) Normalize() Vector {
	var sumSq float32
	for _, f := range v.data {
		sumSq += f * f
	}
	if sumSq == 0 {
		return v
	}
	norm := math32.Sqrt(sumSq)
	out := make([]float32, len(v.data))
	for i, f := range v.data {
		out[i] = f / norm
	}
	return Vector{data: out}
}
