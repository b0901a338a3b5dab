package search

import (
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/index"
	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/query"
	"github.com/gcbaptista/go-facet-search/internal/shard"
)

// matchSet is the outcome of evaluating a query on one shard.
// The bitmap belongs to the caller and may be modified.
type matchSet struct {
	docs   *roaring.Bitmap
	scores map[uint32]float64 // nil when every document scores 1
}

func (m matchSet) score(docID uint32) float64 {
	if m.scores == nil {
		return 1.0
	}
	return m.scores[docID]
}

// resolvedClause is a query string clause bound to one text field.
type resolvedClause struct {
	field string
	text  string
	boost float64
}

// plan binds queries to one snapshot of the mapping. It is shared read-only
// by the goroutines evaluating each shard.
type plan struct {
	mapping       map[string]config.FieldType
	defaultFields []string
	bm25          *BM25Calculator
}

func (p *plan) fieldType(field string) (config.FieldType, bool) {
	t, ok := p.mapping[field]
	return t, ok
}

// validate checks every node of q against the mapping.
func (p *plan) validate(q query.Query) error {
	switch q := q.(type) {
	case nil, query.MatchAll:
		return nil
	case query.Term:
		if q.Field == "" {
			return errors.NewInvalidQueryError("", "term query requires a field")
		}
		if t, ok := p.fieldType(q.Field); ok && t == config.FieldTypeNumber {
			if s, isString := q.Value.(string); isString {
				if _, err := strconv.ParseFloat(s, 64); err != nil {
					return errors.NewInvalidQueryError(q.Field, "term value '"+s+"' is not a number")
				}
			}
		}
		return nil
	case query.Match:
		if q.Field == "" {
			return errors.NewInvalidQueryError("", "match query requires a field")
		}
		if t, ok := p.fieldType(q.Field); ok && t != config.FieldTypeText {
			return errors.NewInvalidQueryError(q.Field, "match query requires a text field")
		}
		return nil
	case query.Range:
		if q.Field == "" {
			return errors.NewInvalidQueryError("", "range query requires a field")
		}
		if t, ok := p.fieldType(q.Field); ok && t != config.FieldTypeNumber {
			return errors.NewInvalidQueryError(q.Field, "range query requires a numeric field")
		}
		return nil
	case query.Bool:
		for _, group := range [][]query.Query{q.Must, q.Filter, q.MustNot} {
			for _, clause := range group {
				if err := p.validate(clause); err != nil {
					return err
				}
			}
		}
		return nil
	case query.QueryString:
		_, err := p.resolveClauses(q)
		return err
	default:
		return errors.NewInvalidQueryError("", "unsupported query type")
	}
}

// resolveClauses expands a query string into one clause per searched field.
// Unmapped fields are skipped; numeric fields are rejected.
func (p *plan) resolveClauses(qs query.QueryString) ([]resolvedClause, error) {
	clauses, err := query.ParseQueryString(qs.Query)
	if err != nil {
		return nil, err
	}

	defaultFields := qs.Fields
	if len(defaultFields) == 0 {
		defaultFields = p.defaultFields
	}

	var resolved []resolvedClause
	for _, clause := range clauses {
		fields := defaultFields
		if clause.Field != "" {
			fields = []string{clause.Field}
		}
		for _, field := range fields {
			t, ok := p.fieldType(field)
			if !ok {
				continue
			}
			if t != config.FieldTypeText {
				return nil, errors.NewInvalidQueryError(field, "query string clauses require a text field")
			}
			resolved = append(resolved, resolvedClause{field: field, text: clause.Text, boost: clause.Boost})
		}
	}
	return resolved, nil
}

// analyzedTerms records the field -> terms that q scores with BM25.
func (p *plan) analyzedTerms(q query.Query, out map[string]map[string]struct{}) {
	switch q := q.(type) {
	case query.Match:
		addTerms(out, q.Field, q.Text)
	case query.QueryString:
		clauses, _ := p.resolveClauses(q)
		for _, c := range clauses {
			addTerms(out, c.field, c.text)
		}
	case query.Bool:
		for _, group := range [][]query.Query{q.Must, q.Filter, q.MustNot} {
			for _, clause := range group {
				p.analyzedTerms(clause, out)
			}
		}
	}
}

// eval evaluates a validated query on one read-locked shard.
func (p *plan) eval(sh *shard.Shard, q query.Query) matchSet {
	switch q := q.(type) {
	case nil, query.MatchAll:
		return matchSet{docs: sh.Store.Live.Clone()}

	case query.Term:
		return matchSet{docs: sh.Index.LookupExact(q.Field, p.termKey(q)).Clone()}

	case query.Range:
		return matchSet{docs: sh.Index.LookupRange(q.Field, q.From, q.To)}

	case query.Match:
		return p.evalAnalyzed(sh, []resolvedClause{{field: q.Field, text: q.Text, boost: 1}})

	case query.QueryString:
		clauses, _ := p.resolveClauses(q)
		return p.evalAnalyzed(sh, clauses)

	case query.Bool:
		return p.evalBool(sh, q)
	}
	return matchSet{docs: roaring.New()}
}

// termKey returns the raw-value key a term query looks up.
func (p *plan) termKey(q query.Term) string {
	switch v := q.Value.(type) {
	case float64:
		return index.NumberKey(v)
	case string:
		if t, _ := p.fieldType(q.Field); t == config.FieldTypeNumber {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return index.NumberKey(f)
			}
		}
		return v
	}
	return ""
}

// evalAnalyzed ORs the clauses; a document scores the boosted BM25 sum of every term it matches.
func (p *plan) evalAnalyzed(sh *shard.Shard, clauses []resolvedClause) matchSet {
	result := matchSet{docs: roaring.New(), scores: make(map[uint32]float64)}
	for _, clause := range clauses {
		if t, ok := p.fieldType(clause.field); !ok || t != config.FieldTypeText {
			continue
		}
		byTerm := sh.Index.LookupAnalyzed(clause.field, clause.text)
		terms := make([]string, 0, len(byTerm))
		for term := range byTerm {
			terms = append(terms, term)
		}
		// Summing in a fixed order keeps equal documents on different shards tied.
		sort.Strings(terms)
		for _, term := range terms {
			for _, posting := range byTerm[term] {
				fieldLength := sh.Index.FieldLength(clause.field, posting.DocID)
				result.scores[posting.DocID] += clause.boost * p.bm25.Score(clause.field, term, posting.TermFrequency, fieldLength)
				result.docs.Add(posting.DocID)
			}
		}
	}
	return result
}

func (p *plan) evalBool(sh *shard.Shard, q query.Bool) matchSet {
	var docs *roaring.Bitmap
	must := make([]matchSet, 0, len(q.Must))
	for _, clause := range q.Must {
		m := p.eval(sh, clause)
		if docs == nil {
			docs = m.docs
		} else {
			docs.And(m.docs)
		}
		must = append(must, m)
	}
	if docs == nil {
		docs = sh.Store.Live.Clone()
	}

	for _, clause := range q.Filter {
		docs.And(p.eval(sh, clause).docs)
	}
	for _, clause := range q.MustNot {
		docs.AndNot(p.eval(sh, clause).docs)
	}

	if len(must) == 0 {
		return matchSet{docs: docs}
	}

	scores := make(map[uint32]float64, docs.GetCardinality())
	it := docs.Iterator()
	for it.HasNext() {
		docID := it.Next()
		total := 0.0
		for _, m := range must {
			total += m.score(docID)
		}
		scores[docID] = total
	}
	return matchSet{docs: docs, scores: scores}
}
