package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gcbaptista/go-facet-search/internal/errors"
)

// Parse decodes a query from its JSON DSL form:
//
//	{"match_all": {}}
//	{"term": {"brand": "Heineken"}}
//	{"match": {"brand": "heineken"}}                 ("text" is accepted as an alias)
//	{"range": {"price": {"from": 5, "to": 10}}}      ("gte"/"lte" are accepted too)
//	{"bool": {"must": [...], "filter": [...], "must_not": [...]}}
//	{"query_string": {"query": "heineken colour:pale^2", "fields": ["brand"]}}
//
// An empty or null document parses as MatchAll.
func Parse(data []byte) (Query, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return MatchAll{}, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, errors.NewInvalidQueryError("", "query must be a JSON object: "+err.Error())
	}
	if len(wrapper) != 1 {
		return nil, errors.NewInvalidQueryError("", fmt.Sprintf("query must have exactly one variant, got %d", len(wrapper)))
	}

	for kind, body := range wrapper {
		switch kind {
		case "match_all":
			return MatchAll{}, nil
		case "term":
			return parseTerm(body)
		case "match", "text":
			return parseMatch(body)
		case "range":
			return parseRange(body)
		case "bool":
			return parseBool(body)
		case "query_string":
			return parseQueryString(body)
		default:
			return nil, errors.NewInvalidQueryError("", "unknown query type '"+kind+"'")
		}
	}
	return nil, errors.NewInvalidQueryError("", "empty query")
}

// singleField decodes {"<field>": <value>} and returns the field and its raw value.
func singleField(kind string, body json.RawMessage) (string, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", nil, errors.NewInvalidQueryError("", kind+" query must be an object")
	}
	if len(fields) != 1 {
		return "", nil, errors.NewInvalidQueryError("", kind+" query must name exactly one field")
	}
	for field, value := range fields {
		if field == "" {
			return "", nil, errors.NewInvalidQueryError("", kind+" query field name cannot be empty")
		}
		return field, value, nil
	}
	return "", nil, nil
}

func parseTerm(body json.RawMessage) (Query, error) {
	field, raw, err := singleField("term", body)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, errors.NewInvalidQueryError(field, "invalid term value")
	}
	if obj, ok := value.(map[string]interface{}); ok {
		value = obj["value"]
	}
	switch value.(type) {
	case string, float64:
		return Term{Field: field, Value: value}, nil
	default:
		return nil, errors.NewInvalidQueryError(field, "term value must be a string or a number")
	}
}

func parseMatch(body json.RawMessage) (Query, error) {
	field, raw, err := singleField("match", body)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, errors.NewInvalidQueryError(field, "invalid match value")
	}
	if obj, ok := value.(map[string]interface{}); ok {
		value = obj["query"]
	}
	text, ok := value.(string)
	if !ok {
		return nil, errors.NewInvalidQueryError(field, "match text must be a string")
	}
	return Match{Field: field, Text: text}, nil
}

func parseRange(body json.RawMessage) (Query, error) {
	field, raw, err := singleField("range", body)
	if err != nil {
		return nil, err
	}

	var bounds map[string]*float64
	if err := json.Unmarshal(raw, &bounds); err != nil {
		return nil, errors.NewInvalidQueryError(field, "range bounds must be numbers")
	}
	r := Range{Field: field}
	for key, v := range bounds {
		switch key {
		case "from", "gte":
			r.From = v
		case "to", "lte":
			r.To = v
		default:
			return nil, errors.NewInvalidQueryError(field, "unknown range bound '"+key+"'")
		}
	}
	if r.From != nil && r.To != nil && *r.From > *r.To {
		return nil, errors.NewInvalidQueryError(field, "range lower bound exceeds upper bound")
	}
	return r, nil
}

func parseBool(body json.RawMessage) (Query, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(body, &sections); err != nil {
		return nil, errors.NewInvalidQueryError("", "bool query must be an object")
	}

	keys := make([]string, 0, len(sections))
	for key := range sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b Bool
	for _, key := range keys {
		clauses, err := parseClauses(sections[key])
		if err != nil {
			return nil, err
		}
		switch key {
		case "must":
			b.Must = clauses
		case "filter":
			b.Filter = clauses
		case "must_not":
			b.MustNot = clauses
		default:
			return nil, errors.NewInvalidQueryError("", "unknown bool section '"+key+"'")
		}
	}
	if len(b.Must)+len(b.Filter)+len(b.MustNot) == 0 {
		return nil, errors.NewInvalidQueryError("", "bool query needs at least one clause")
	}
	return b, nil
}

// parseClauses accepts either a single query object or an array of them.
func parseClauses(raw json.RawMessage) ([]Query, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		q, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		return []Query{q}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.NewInvalidQueryError("", "bool clauses must be an object or an array")
	}
	clauses := make([]Query, 0, len(items))
	for _, item := range items {
		q, err := Parse(item)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, q)
	}
	return clauses, nil
}

func parseQueryString(body json.RawMessage) (Query, error) {
	var qs struct {
		Query  *string  `json:"query"`
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(body, &qs); err != nil {
		return nil, errors.NewInvalidQueryError("", "query_string must be an object")
	}
	if qs.Query == nil {
		return nil, errors.NewInvalidQueryError("", "query_string requires a query")
	}
	if _, err := ParseQueryString(*qs.Query); err != nil {
		return nil, err
	}
	return QueryString{Query: *qs.Query, Fields: qs.Fields}, nil
}
