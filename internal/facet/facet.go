// Package facet computes terms and range facets over a candidate document set.
//
// Facets are computed per shard into a Partial while the shard is read-locked,
// then the partials of every shard are merged into a Result.
package facet

import (
	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/errors"
)

// DefaultTermsSize is the number of terms reported when a terms facet does not set Size.
const DefaultTermsSize = 10

// Spec describes a facet. The set of variants is closed: Terms and Range.
type Spec interface {
	isSpec()
	FieldName() string
}

// Terms counts the distinct raw values of a text field.
type Terms struct {
	Field string
	Size  int
}

// Range buckets the values of a numeric field.
type Range struct {
	Field  string
	Ranges []Bounds
}

// Bounds is a half-open interval [From, To). A nil bound is unbounded.
type Bounds struct {
	From *float64 `json:"from,omitempty"`
	To   *float64 `json:"to,omitempty"`
}

// Contains reports whether v lies in [From, To).
func (b Bounds) Contains(v float64) bool {
	if b.From != nil && v < *b.From {
		return false
	}
	if b.To != nil && v >= *b.To {
		return false
	}
	return true
}

func (Terms) isSpec() {}
func (Range) isSpec() {}

func (t Terms) FieldName() string { return t.Field }
func (r Range) FieldName() string { return r.Field }

// Validate checks a facet against the mapped type of its field.
// Unmapped fields are accepted and produce empty results.
func Validate(spec Spec, fieldType config.FieldType, mapped bool) error {
	switch s := spec.(type) {
	case Terms:
		if s.Field == "" {
			return errors.NewInvalidQueryError("", "terms facet requires a field")
		}
		if s.Size < 0 {
			return errors.NewInvalidQueryError(s.Field, "terms facet size must not be negative")
		}
		if mapped && fieldType != config.FieldTypeText {
			return errors.NewInvalidQueryError(s.Field, "terms facet requires a text field")
		}
	case Range:
		if s.Field == "" {
			return errors.NewInvalidQueryError("", "range facet requires a field")
		}
		if len(s.Ranges) == 0 {
			return errors.NewInvalidQueryError(s.Field, "range facet requires at least one range")
		}
		for _, b := range s.Ranges {
			if b.From != nil && b.To != nil && *b.From >= *b.To {
				return errors.NewInvalidQueryError(s.Field, "range facet bucket is empty: from must be lower than to")
			}
		}
		if mapped && fieldType != config.FieldTypeNumber {
			return errors.NewInvalidQueryError(s.Field, "range facet requires a numeric field")
		}
	default:
		return errors.NewInvalidQueryError("", "unknown facet type")
	}
	return nil
}

// Result is the outcome of a facet: a *TermsResult or a *RangeResult.
type Result interface {
	isResult()
}

// TermCount is one bucket of a terms facet.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// TermsResult reports the most frequent values of a field.
// Total counts every (document, value) pair, Other the pairs outside Terms and
// Missing the candidate documents without the field.
type TermsResult struct {
	Type    string      `json:"_type"`
	Terms   []TermCount `json:"terms"`
	Total   int         `json:"total"`
	Other   int         `json:"other"`
	Missing int         `json:"missing"`
}

// RangeBucket is one bucket of a range facet. Min and Max are zero when Count is zero.
type RangeBucket struct {
	Bounds
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Total float64 `json:"total"`
	Mean  float64 `json:"mean"`
}

// RangeResult reports the buckets of a range facet in request order.
type RangeResult struct {
	Type    string        `json:"_type"`
	Ranges  []RangeBucket `json:"ranges"`
	Missing int           `json:"missing"`
}

func (*TermsResult) isResult() {}
func (*RangeResult) isResult() {}
