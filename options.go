package vecvtab

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IndexOptions are the HNSW construction parameters declared by the second
// CREATE VIRTUAL TABLE module argument.
type IndexOptions struct {
	MaxElements    int
	M              int
	EfConstruction int
	RandomSeed     int
}

// DefaultIndexOptions matches the defaults in §3: M=16, ef_construction=200,
// random_seed=100. MaxElements has no sensible default and must be supplied.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		M:              16,
		EfConstruction: 200,
		RandomSeed:     100,
	}
}

// optionsLiteral is the JSON shape accepted by IndexOptionsFromString. All
// fields are optional pointers so we can tell "absent" from "zero".
type optionsLiteral struct {
	MaxElements    *int `json:"max_elements"`
	M              *int `json:"M"`
	EfConstruction *int `json:"ef_construction"`
	RandomSeed     *int `json:"random_seed"`
}

const int31Max = 1<<31 - 1

// IndexOptionsFromString parses a JSON-shaped literal such as
// {"max_elements":100000,"M":16,"ef_construction":200,"random_seed":100}.
// Every present integer must be in [1, 2^31); max_elements has no default
// and is required.
func IndexOptionsFromString(literal string) (IndexOptions, error) {
	dec := json.NewDecoder(strings.NewReader(literal))
	dec.DisallowUnknownFields()

	var lit optionsLiteral
	if err := dec.Decode(&lit); err != nil {
		return IndexOptions{}, wrapError("parse_options", fmt.Errorf("%w: %v", ErrParse, err))
	}

	opts := DefaultIndexOptions()

	if lit.MaxElements == nil {
		return IndexOptions{}, wrapError("parse_options", fmt.Errorf("%w: missing \"max_elements\"", ErrParse))
	}
	if err := validateRange("max_elements", *lit.MaxElements); err != nil {
		return IndexOptions{}, wrapError("parse_options", err)
	}
	opts.MaxElements = *lit.MaxElements

	if lit.M != nil {
		if err := validateRange("M", *lit.M); err != nil {
			return IndexOptions{}, wrapError("parse_options", err)
		}
		opts.M = *lit.M
	}
	if lit.EfConstruction != nil {
		if err := validateRange("ef_construction", *lit.EfConstruction); err != nil {
			return IndexOptions{}, wrapError("parse_options", err)
		}
		opts.EfConstruction = *lit.EfConstruction
	}
	if lit.RandomSeed != nil {
		// random_seed may legitimately be any value accepted by the range
		// rule; see SPEC_FULL.md on why it is validated but inert.
		if err := validateRange("random_seed", *lit.RandomSeed); err != nil {
			return IndexOptions{}, wrapError("parse_options", err)
		}
		opts.RandomSeed = *lit.RandomSeed
	}

	return opts, nil
}

func validateRange(key string, v int) error {
	if v < 1 || v > int31Max {
		return fmt.Errorf("%w: %q must be in [1, 2^31), got %d", ErrParse, key, v)
	}
	return nil
}
