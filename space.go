package vecvtab

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metric identifies a distance/similarity function over a VectorSpace.
type Metric int

const (
	// MetricL2 is squared Euclidean distance.
	MetricL2 Metric = iota
	// MetricIP is (negative) inner product.
	MetricIP
	// MetricCosine is cosine distance; it forces normalization.
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "l2"
	case MetricIP:
		return "ip"
	case MetricCosine:
		return "cosine"
	default:
		return "unknown"
	}
}

func parseMetric(s string) (Metric, error) {
	switch s {
	case "l2":
		return MetricL2, nil
	case "ip":
		return MetricIP, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("%w: unknown distance_type %q", ErrParse, s)
	}
}

// VectorSpace is the column name, dimension, metric, and normalization
// policy declared by the first CREATE VIRTUAL TABLE module argument.
type VectorSpace struct {
	Name      string
	Dim       int
	Metric    Metric
	Normalize bool
}

// spaceLiteral is the JSON shape accepted by VectorSpaceFromString.
// Unknown keys are a parse error, enforced by DisallowUnknownFields.
type spaceLiteral struct {
	Name         string `json:"name"`
	Dim          int    `json:"dim"`
	DistanceType string `json:"distance_type"`
}

// VectorSpaceFromString parses a JSON-shaped literal such as
// {"name":"v","dim":128,"distance_type":"cosine"} into a VectorSpace.
//
// Cosine forces Normalize=true. IP with Normalize=true is equivalent to
// Cosine but keeps Metric=MetricIP; the literal has no key that sets
// Normalize, so this function never produces that combination.
func VectorSpaceFromString(literal string) (VectorSpace, error) {
	dec := json.NewDecoder(strings.NewReader(literal))
	dec.DisallowUnknownFields()

	var lit spaceLiteral
	if err := dec.Decode(&lit); err != nil {
		return VectorSpace{}, wrapError("parse_space", fmt.Errorf("%w: %v", ErrParse, err))
	}

	if lit.Name == "" {
		return VectorSpace{}, wrapError("parse_space", fmt.Errorf("%w: missing \"name\"", ErrParse))
	}
	if !isValidIdentifier(lit.Name) {
		return VectorSpace{}, wrapError("parse_space", fmt.Errorf("%w: %q is not a valid column identifier", ErrParse, lit.Name))
	}
	if lit.Dim <= 0 {
		return VectorSpace{}, wrapError("parse_space", fmt.Errorf("%w: \"dim\" must be positive, got %d", ErrParse, lit.Dim))
	}

	metric, err := parseMetric(lit.DistanceType)
	if err != nil {
		return VectorSpace{}, wrapError("parse_space", err)
	}

	space := VectorSpace{
		Name:   lit.Name,
		Dim:    lit.Dim,
		Metric: metric,
	}
	if metric == MetricCosine {
		space.Normalize = true
	}
	return space, nil
}

// isValidIdentifier reports whether name can appear unquoted as a column
// name in the host's CREATE TABLE statement: ASCII letters, digits, and
// underscore, not starting with a digit.
func isValidIdentifier(name string) bool {
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			// always valid
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
