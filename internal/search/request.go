package search

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/facet"
	"github.com/gcbaptista/go-facet-search/internal/query"
)

type requestBody struct {
	Query      json.RawMessage            `json:"query"`
	PostFilter json.RawMessage            `json:"post_filter"`
	Facets     map[string]json.RawMessage `json:"facets"`
	From       *int                       `json:"from"`
	Size       *int                       `json:"size"`
	Highlight  []string                   `json:"highlight"`
}

type facetBody struct {
	Terms *struct {
		Field string `json:"field"`
		Size  int    `json:"size"`
	} `json:"terms"`
	Range *struct {
		Field  string         `json:"field"`
		Ranges []facet.Bounds `json:"ranges"`
	} `json:"range"`
	FacetFilter json.RawMessage `json:"facet_filter"`
	Global      bool            `json:"global"`
}

// ParseRequest decodes a search request from its JSON DSL form.
// defaultSize is used when the body does not set "size".
//
//	{
//	  "query": {"match": {"brand": "heineken"}},
//	  "post_filter": {"term": {"colour": "PALE"}},
//	  "facets": {
//	    "brands": {"terms": {"field": "brand", "size": 10}},
//	    "prices": {"range": {"field": "price", "ranges": [{"to": 3}, {"from": 3, "to": 6}, {"from": 6}]},
//	               "facet_filter": {"range": {"size": {"from": 1}}}}
//	  },
//	  "from": 0, "size": 10, "highlight": ["brand"]
//	}
func ParseRequest(data []byte, defaultSize int) (Request, error) {
	req := Request{Size: defaultSize}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}

	var body requestBody
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		return Request{}, errors.NewInvalidQueryError("", "malformed search request: "+err.Error())
	}

	q, err := query.Parse(body.Query)
	if err != nil {
		return Request{}, err
	}
	req.Query = q

	if len(body.PostFilter) > 0 {
		pf, err := query.Parse(body.PostFilter)
		if err != nil {
			return Request{}, err
		}
		req.PostFilter = pf
	}

	if body.From != nil {
		req.From = *body.From
	}
	if body.Size != nil {
		req.Size = *body.Size
	}
	req.Highlight = body.Highlight

	if len(body.Facets) > 0 {
		req.Facets = make(map[string]FacetRequest, len(body.Facets))
		for name, raw := range body.Facets {
			fr, err := parseFacet(name, raw)
			if err != nil {
				return Request{}, err
			}
			req.Facets[name] = fr
		}
	}
	return req, nil
}

func parseFacet(name string, raw json.RawMessage) (FacetRequest, error) {
	if name == "" {
		return FacetRequest{}, errors.NewInvalidQueryError("", "facet name cannot be empty")
	}

	var body facetBody
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		return FacetRequest{}, errors.NewInvalidQueryError("", "malformed facet '"+name+"': "+err.Error())
	}

	var fr FacetRequest
	switch {
	case body.Terms != nil && body.Range != nil:
		return FacetRequest{}, errors.NewInvalidQueryError("", "facet '"+name+"' must be either terms or range")
	case body.Terms != nil:
		fr.Spec = facet.Terms{Field: body.Terms.Field, Size: body.Terms.Size}
	case body.Range != nil:
		fr.Spec = facet.Range{Field: body.Range.Field, Ranges: body.Range.Ranges}
	default:
		return FacetRequest{}, errors.NewInvalidQueryError("", "facet '"+name+"' has no type")
	}

	if len(body.FacetFilter) > 0 {
		filter, err := query.Parse(body.FacetFilter)
		if err != nil {
			return FacetRequest{}, err
		}
		fr.Filter = filter
	}
	fr.Global = body.Global
	return fr, nil
}

type multiRequestBody struct {
	Queries []struct {
		Name   string          `json:"name"`
		Search json.RawMessage `json:"search"`
	} `json:"queries"`
}

// ParseMultiRequest decodes a multi-search request:
//
//	{"queries": [{"name": "dark", "search": {"query": {"term": {"colour": "DARK"}}}}]}
func ParseMultiRequest(data []byte, defaultSize int) (MultiRequest, error) {
	var body multiRequestBody
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		return MultiRequest{}, errors.NewInvalidQueryError("", "malformed multi-search request: "+err.Error())
	}

	multi := MultiRequest{Queries: make([]NamedRequest, 0, len(body.Queries))}
	for _, entry := range body.Queries {
		req, err := ParseRequest(entry.Search, defaultSize)
		if err != nil {
			return MultiRequest{}, fmt.Errorf("query '%s': %w", entry.Name, err)
		}
		multi.Queries = append(multi.Queries, NamedRequest{Name: entry.Name, Request: req})
	}
	return multi, nil
}
