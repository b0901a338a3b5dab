// Package query defines the query tree evaluated by the search service and
// parses it from the JSON search DSL.
package query

// Query is a node of the query tree. The set of variants is closed:
// MatchAll, Term, Match, Range, Bool and QueryString.
type Query interface {
	isQuery()
}

// MatchAll matches every document with a constant score of 1.
type MatchAll struct{}

// Term matches documents whose raw value of Field equals Value, without analysis.
// Value is a string, or a float64 for numeric fields.
type Term struct {
	Field string
	Value interface{}
}

// Match analyzes Text and matches documents containing any resulting term in Field.
// Hits are scored with BM25.
type Match struct {
	Field string
	Text  string
}

// Range matches documents whose numeric Field lies in [From, To]. A nil bound is open.
type Range struct {
	Field string
	From  *float64
	To    *float64
}

// Bool combines clauses. Must clauses are intersected and their scores summed;
// Filter clauses are intersected without contributing to the score; MustNot
// clauses are subtracted. A Bool with only MustNot clauses starts from every document.
type Bool struct {
	Must    []Query
	Filter  []Query
	MustNot []Query
}

// QueryString is a free-text query of whitespace separated clauses, each of the
// form [field:]text[^boost]. Clauses are OR-ed; clauses without a field are
// searched in Fields, or the index's default search fields when empty.
type QueryString struct {
	Query  string
	Fields []string
}

func (MatchAll) isQuery()    {}
func (Term) isQuery()        {}
func (Match) isQuery()       {}
func (Range) isQuery()       {}
func (Bool) isQuery()        {}
func (QueryString) isQuery() {}

// Clause is one parsed QueryString clause.
type Clause struct {
	Field string // empty when the clause targets the default fields
	Text  string
	Boost float64
}
