package query

import (
	"strconv"
	"strings"

	"github.com/gcbaptista/go-facet-search/internal/errors"
)

// ParseQueryString splits a query string into clauses.
//
//	"heineken colour:pale^2" -> [{"" "heineken" 1} {"colour" "pale" 2}]
func ParseQueryString(s string) ([]Clause, error) {
	var clauses []Clause
	for _, token := range strings.Fields(s) {
		clause := Clause{Boost: 1}

		if i := strings.LastIndexByte(token, '^'); i >= 0 {
			boost, err := strconv.ParseFloat(token[i+1:], 64)
			if err != nil || boost <= 0 {
				return nil, errors.NewInvalidQueryError("", "invalid boost in query string clause '"+token+"'")
			}
			clause.Boost = boost
			token = token[:i]
		}

		if i := strings.IndexByte(token, ':'); i > 0 {
			clause.Field = token[:i]
			token = token[i+1:]
		}

		if token == "" {
			return nil, errors.NewInvalidQueryError(clause.Field, "empty query string clause")
		}
		clause.Text = token
		clauses = append(clauses, clause)
	}
	if len(clauses) == 0 {
		return nil, errors.NewInvalidQueryError("", "query string is empty")
	}
	return clauses, nil
}
