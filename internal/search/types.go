package search

import (
	"github.com/gcbaptista/go-facet-search/internal/facet"
	"github.com/gcbaptista/go-facet-search/internal/query"
	"github.com/gcbaptista/go-facet-search/model"
)

// Request is a search against one index.
type Request struct {
	Query      query.Query             // nil means MatchAll
	PostFilter query.Query             // narrows hits after facets are computed
	Facets     map[string]FacetRequest // keyed by facet name
	From       int
	Size       int      // 0 returns no hits; TotalHits and facets are still computed
	Highlight  []string // fields to return highlighted fragments for
}

// FacetRequest is one named facet of a Request.
type FacetRequest struct {
	Spec   facet.Spec
	Filter query.Query // applied to the facet's candidates only
	Global bool        // start from every document instead of the query's matches
}

// Hit is one ranked document.
type Hit struct {
	ID        string              `json:"_id"`
	Score     float64             `json:"_score"`
	Source    model.Fields        `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// Result is the outcome of a Request.
type Result struct {
	TotalHits int                     `json:"total_hits"`
	MaxScore  float64                 `json:"max_score"`
	Hits      []Hit                   `json:"hits"`
	Facets    map[string]facet.Result `json:"facets,omitempty"`
	Took      int64                   `json:"took"` // milliseconds
	QueryID   string                  `json:"query_id"`
}

// NamedRequest is one entry of a MultiRequest.
type NamedRequest struct {
	Name    string
	Request Request
}

// MultiRequest runs several searches against the same index in parallel.
type MultiRequest struct {
	Queries []NamedRequest
}

// MultiResult holds the result of every named search.
type MultiResult struct {
	Results          map[string]Result `json:"results"`
	TotalQueries     int               `json:"total_queries"`
	ProcessingTimeMs float64           `json:"processing_time_ms"`
}

// SuggestRequest asks for terms of Field completing or resembling Text.
type SuggestRequest struct {
	Field    string `json:"field"`
	Text     string `json:"text"`
	Size     int    `json:"size"`
	MaxEdits int    `json:"max_edits"`
}

// Suggestion is one suggested term.
type Suggestion struct {
	Term     string `json:"term"`
	DocFreq  int    `json:"doc_freq"`
	Distance int    `json:"distance"` // 0 for prefix completions
}

// SuggestResult lists suggestions, prefix completions first.
type SuggestResult struct {
	Suggestions []Suggestion `json:"suggestions"`
}
