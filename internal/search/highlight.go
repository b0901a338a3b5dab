package search

import (
	"strings"

	"github.com/gcbaptista/go-facet-search/internal/query"
	"github.com/gcbaptista/go-facet-search/internal/tokenizer"
	"github.com/gcbaptista/go-facet-search/model"
)

const (
	highlightPreTag  = "<em>"
	highlightPostTag = "</em>"
)

// highlightTerms records the field -> analyzed terms that q matches on.
// MustNot clauses are skipped since their terms never appear in a hit.
func (p *plan) highlightTerms(q query.Query, out map[string]map[string]struct{}) {
	switch q := q.(type) {
	case query.Term:
		if s, ok := q.Value.(string); ok {
			addTerms(out, q.Field, s)
		}
	case query.Match:
		addTerms(out, q.Field, q.Text)
	case query.QueryString:
		clauses, _ := p.resolveClauses(q)
		for _, c := range clauses {
			addTerms(out, c.field, c.text)
		}
	case query.Bool:
		for _, clause := range q.Must {
			p.highlightTerms(clause, out)
		}
		for _, clause := range q.Filter {
			p.highlightTerms(clause, out)
		}
	}
}

func addTerms(out map[string]map[string]struct{}, field, text string) {
	if out[field] == nil {
		out[field] = make(map[string]struct{})
	}
	for _, term := range tokenizer.UniqueTerms(text) {
		out[field][term] = struct{}{}
	}
}

// highlight returns, per requested field, the values of source containing a
// matched term, with every matched token wrapped in <em></em>.
func highlight(source model.Fields, fields []string, terms map[string]map[string]struct{}) map[string][]string {
	var out map[string][]string
	for _, field := range fields {
		fieldTerms := terms[field]
		if len(fieldTerms) == 0 {
			continue
		}

		var values []string
		switch v := source[field].(type) {
		case string:
			values = []string{v}
		case []string:
			values = v
		}

		for _, value := range values {
			fragment, ok := highlightValue(value, fieldTerms)
			if !ok {
				continue
			}
			if out == nil {
				out = make(map[string][]string)
			}
			out[field] = append(out[field], fragment)
		}
	}
	return out
}

func highlightValue(value string, terms map[string]struct{}) (string, bool) {
	var b strings.Builder
	last := 0
	matched := false
	for _, span := range tokenizer.Spans(value) {
		if _, ok := terms[span.Term]; !ok {
			continue
		}
		matched = true
		b.WriteString(value[last:span.Start])
		b.WriteString(highlightPreTag)
		b.WriteString(value[span.Start:span.End])
		b.WriteString(highlightPostTag)
		last = span.End
	}
	if !matched {
		return "", false
	}
	b.WriteString(value[last:])
	return b.String(), true
}
