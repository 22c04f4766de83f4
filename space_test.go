package vecvtab

import (
	"errors"
	"testing"
)

func TestVectorSpaceFromString(t *testing.T) {
	tests := []struct {
		name       string
		literal    string
		wantDim    int
		wantMetric Metric
		wantNorm   bool
	}{
		{
			name:       "l2",
			literal:    `{"name":"v","dim":128,"distance_type":"l2"}`,
			wantDim:    128,
			wantMetric: MetricL2,
			wantNorm:   false,
		},
		{
			name:       "cosine forces normalize",
			literal:    `{"name":"embedding","dim":3,"distance_type":"cosine"}`,
			wantDim:    3,
			wantMetric: MetricCosine,
			wantNorm:   true,
		},
		{
			name:       "ip",
			literal:    `{"name":"v","dim":8,"distance_type":"ip"}`,
			wantDim:    8,
			wantMetric: MetricIP,
			wantNorm:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space, err := VectorSpaceFromString(tt.literal)
			if err != nil {
				t.Fatalf("VectorSpaceFromString() error = %v", err)
			}
			if space.Dim != tt.wantDim {
				t.Errorf("Dim = %d, want %d", space.Dim, tt.wantDim)
			}
			if space.Metric != tt.wantMetric {
				t.Errorf("Metric = %v, want %v", space.Metric, tt.wantMetric)
			}
			if space.Normalize != tt.wantNorm {
				t.Errorf("Normalize = %v, want %v", space.Normalize, tt.wantNorm)
			}
		})
	}
}

func TestVectorSpaceFromStringRejects(t *testing.T) {
	tests := []struct {
		name    string
		literal string
	}{
		{name: "not json", literal: `not json at all`},
		{name: "unknown field", literal: `{"name":"v","dim":3,"distance_type":"l2","extra":true}`},
		{name: "missing name", literal: `{"dim":3,"distance_type":"l2"}`},
		{name: "bad identifier", literal: `{"name":"1bad","dim":3,"distance_type":"l2"}`},
		{name: "zero dim", literal: `{"name":"v","dim":0,"distance_type":"l2"}`},
		{name: "unknown metric", literal: `{"name":"v","dim":3,"distance_type":"hamming"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VectorSpaceFromString(tt.literal)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("VectorSpaceFromString() error = %v, want ErrParse", err)
			}
		})
	}
}
