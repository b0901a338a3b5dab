package search_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/index"
	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/facet"
	"github.com/gcbaptista/go-facet-search/internal/indexing"
	"github.com/gcbaptista/go-facet-search/internal/query"
	"github.com/gcbaptista/go-facet-search/internal/search"
	"github.com/gcbaptista/go-facet-search/internal/shard"
	"github.com/gcbaptista/go-facet-search/model"
)

var corpus = []model.Document{
	model.NewDocument("d1", model.Fields{"brand": "Heineken", "colour": "PALE", "title": "pale lager beer", "price": 2.0}),
	model.NewDocument("d2", model.Fields{"brand": "Kriek", "colour": "DARK", "title": "dark cherry beer", "price": 5.0}),
	model.NewDocument("d3", model.Fields{"brand": "Grimbergen", "colour": "DARK", "title": "dark abbey ale", "price": 7.0}),
	model.NewDocument("d4", model.Fields{"brand": "Heineken", "colour": "WHITE", "title": "white beer beer", "price": 3.0}),
	model.NewDocument("d5", model.Fields{"brand": "Kriek", "title": "sour cherry"}),
}

func f(v float64) *float64 { return &v }

func newSearcher(t *testing.T, shards int, docs []model.Document) *search.Service {
	t.Helper()

	settings := &config.IndexSettings{
		Name:           "beers",
		NumberOfShards: shards,
		Mappings: map[string]config.FieldType{
			"brand":  config.FieldTypeText,
			"colour": config.FieldTypeText,
			"title":  config.FieldTypeText,
			"price":  config.FieldTypeNumber,
		},
	}
	set := shard.NewSet(shards)
	mapping := index.NewMapping(settings.Mappings)

	indexer, err := indexing.NewService(settings.Name, set, mapping)
	require.NoError(t, err)
	for _, doc := range docs {
		_, err := indexer.Put(doc)
		require.NoError(t, err)
	}

	svc, err := search.NewService(set, mapping, settings, search.WithMaxResultWindow(100))
	require.NoError(t, err)
	return svc
}

func hitIDs(result search.Result) []string {
	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids
}

func TestSearch_Queries(t *testing.T) {
	svc := newSearcher(t, 2, corpus)

	tests := []struct {
		name    string
		req     search.Request
		wantIDs []string // in rank order; nil skips the check
		total   int
	}{
		{
			name:    "match all ranks ties by id",
			req:     search.Request{Size: 10},
			wantIDs: []string{"d1", "d2", "d3", "d4", "d5"},
			total:   5,
		},
		{
			name:    "term uses the raw value",
			req:     search.Request{Query: query.Term{Field: "brand", Value: "Heineken"}, Size: 10},
			wantIDs: []string{"d1", "d4"},
			total:   2,
		},
		{
			name:  "term is not analyzed",
			req:   search.Request{Query: query.Term{Field: "brand", Value: "heineken"}, Size: 10},
			total: 0,
		},
		{
			name:  "match is analyzed",
			req:   search.Request{Query: query.Match{Field: "title", Text: "CHERRY"}, Size: 10},
			total: 2,
		},
		{
			name:    "range is inclusive",
			req:     search.Request{Query: query.Range{Field: "price", From: f(3), To: f(5)}, Size: 10},
			wantIDs: []string{"d2", "d4"},
			total:   2,
		},
		{
			name: "bool intersects must and filter and subtracts must_not",
			req: search.Request{Query: query.Bool{
				Must:    []query.Query{query.Match{Field: "title", Text: "beer"}},
				Filter:  []query.Query{query.Range{Field: "price", From: f(3)}},
				MustNot: []query.Query{query.Term{Field: "colour", Value: "WHITE"}},
			}, Size: 10},
			wantIDs: []string{"d2"},
			total:   1,
		},
		{
			name:    "must_not alone starts from every document",
			req:     search.Request{Query: query.Bool{MustNot: []query.Query{query.Term{Field: "brand", Value: "Kriek"}}}, Size: 10},
			wantIDs: []string{"d1", "d3", "d4"},
			total:   3,
		},
		{
			name:  "query_string ors clauses",
			req:   search.Request{Query: query.QueryString{Query: "title:cherry brand:heineken^2"}, Size: 10},
			total: 4,
		},
		{
			name:  "size zero still counts",
			req:   search.Request{Query: query.Match{Field: "title", Text: "dark"}},
			total: 2,
		},
		{
			name:  "unmapped field matches nothing",
			req:   search.Request{Query: query.Match{Field: "style", Text: "ale"}, Size: 10},
			total: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Search(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.total, result.TotalHits)
			assert.LessOrEqual(t, len(result.Hits), tt.req.Size)
			if tt.wantIDs != nil {
				assert.Equal(t, tt.wantIDs, hitIDs(result))
			}
			for i := 1; i < len(result.Hits); i++ {
				assert.GreaterOrEqual(t, result.Hits[i-1].Score, result.Hits[i].Score, "hits must be ranked by score")
			}
		})
	}
}

func TestSearch_BM25Ranking(t *testing.T) {
	svc := newSearcher(t, 1, corpus)

	result, err := svc.Search(context.Background(), search.Request{Query: query.Match{Field: "title", Text: "beer"}, Size: 10})
	require.NoError(t, err)
	require.Equal(t, 3, result.TotalHits)
	assert.Equal(t, "d4", result.Hits[0].ID, "two occurrences of the term rank first")
	assert.Equal(t, result.Hits[0].Score, result.MaxScore)

	boosted, err := svc.Search(context.Background(), search.Request{Query: query.QueryString{Query: "title:cherry brand:heineken^3"}, Size: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1", "d4"}, hitIDs(boosted)[:2], "boosted clause ranks first")
}

func TestSearch_Pagination(t *testing.T) {
	svc := newSearcher(t, 3, corpus)

	var pages [][]string
	for from := 0; from < 5; from += 2 {
		result, err := svc.Search(context.Background(), search.Request{From: from, Size: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, result.TotalHits)
		pages = append(pages, hitIDs(result))
	}
	assert.Equal(t, [][]string{{"d1", "d2"}, {"d3", "d4"}, {"d5"}}, pages)

	result, err := svc.Search(context.Background(), search.Request{From: 10, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	assert.Equal(t, 5, result.TotalHits)
}

func TestSearch_ShardCountIndependence(t *testing.T) {
	beers := model.NewBeerGenerator(11).GenerateN(300)
	docs := make([]model.Document, len(beers))
	for i, beer := range beers {
		fields, err := model.ToFields(beer)
		require.NoError(t, err)
		fields["title"] = string(beer.Colour) + " beer from " + beer.Brand
		docs[i] = model.NewDocument(fmt.Sprintf("beer-%d", i), fields)
	}

	req := search.Request{
		Query: query.Bool{
			Must:   []query.Query{query.Match{Field: "title", Text: "dark beer heineken"}},
			Filter: []query.Query{query.Range{Field: "price", To: f(8)}},
		},
		Facets: map[string]search.FacetRequest{
			"brands": {Spec: facet.Terms{Field: "brand"}},
		},
		Size: 50,
	}

	single, err := newSearcher(t, 1, docs).Search(context.Background(), req)
	require.NoError(t, err)
	sharded, err := newSearcher(t, 5, docs).Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, single.TotalHits, sharded.TotalHits)
	assert.Equal(t, single.Facets, sharded.Facets)
	require.Len(t, sharded.Hits, len(single.Hits))
	for i := range single.Hits {
		assert.Equal(t, single.Hits[i].ID, sharded.Hits[i].ID, "rank %d", i)
		assert.InDelta(t, single.Hits[i].Score, sharded.Hits[i].Score, 1e-9, "rank %d", i)
	}
}

func TestSearch_BoolMustIntersectsAndSumsClauses(t *testing.T) {
	beers := model.NewBeerGenerator(23).GenerateN(90)
	docs := make([]model.Document, len(beers))
	for i, beer := range beers {
		fields, err := model.ToFields(beer)
		require.NoError(t, err)
		fields["title"] = string(beer.Colour) + " beer from " + beer.Brand
		docs[i] = model.NewDocument(fmt.Sprintf("beer-%d", i), fields)
	}
	svc := newSearcher(t, 3, docs)

	clauses := []query.Query{
		query.Match{Field: "title", Text: "dark beer"},
		query.Range{Field: "price", From: f(2), To: f(8)},
		query.Term{Field: "brand", Value: "Kriek"},
	}

	// Scores of each clause evaluated on its own, keyed by document ID.
	perClause := make([]map[string]float64, len(clauses))
	for i, clause := range clauses {
		res, err := svc.Search(context.Background(), search.Request{Query: clause, Size: 100})
		require.NoError(t, err)
		require.Equal(t, res.TotalHits, len(res.Hits), "clause %d must fit in one page", i)
		perClause[i] = make(map[string]float64, len(res.Hits))
		for _, hit := range res.Hits {
			perClause[i][hit.ID] = hit.Score
		}
	}

	expected := make(map[string]float64)
	for id, score := range perClause[0] {
		total, inAll := score, true
		for _, scores := range perClause[1:] {
			s, ok := scores[id]
			if !ok {
				inAll = false
				break
			}
			total += s
		}
		if inAll {
			expected[id] = total
		}
	}
	require.NotEmpty(t, expected)

	res, err := svc.Search(context.Background(), search.Request{Query: query.Bool{Must: clauses}, Size: 100})
	require.NoError(t, err)
	assert.Equal(t, len(expected), res.TotalHits)
	require.Len(t, res.Hits, len(expected))
	for _, hit := range res.Hits {
		want, ok := expected[hit.ID]
		require.True(t, ok, "%s is not in every clause", hit.ID)
		assert.InDelta(t, want, hit.Score, 1e-9, "score of %s", hit.ID)
	}
}

func TestSearch_FacetsAndPostFilter(t *testing.T) {
	svc := newSearcher(t, 2, corpus)

	req := search.Request{
		PostFilter: query.Term{Field: "colour", Value: "DARK"},
		Facets: map[string]search.FacetRequest{
			"colours": {Spec: facet.Terms{Field: "colour"}},
			"prices": {
				Spec:   facet.Range{Field: "price", Ranges: []facet.Bounds{{To: f(3)}, {From: f(3), To: f(6)}, {From: f(6)}}},
				Filter: query.Term{Field: "brand", Value: "Heineken"},
			},
			"all_brands": {
				Spec:   facet.Terms{Field: "brand"},
				Global: true,
			},
		},
		Size: 10,
	}
	result, err := svc.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"d2", "d3"}, hitIDs(result), "post_filter narrows hits")

	colours := result.Facets["colours"].(*facet.TermsResult)
	assert.Equal(t, 4, colours.Total, "facets ignore post_filter")
	assert.Equal(t, 1, colours.Missing)
	assert.Equal(t, facet.TermCount{Term: "DARK", Count: 2}, colours.Terms[0])

	prices := result.Facets["prices"].(*facet.RangeResult)
	assert.Equal(t, []int{1, 1, 0}, []int{prices.Ranges[0].Count, prices.Ranges[1].Count, prices.Ranges[2].Count})

	brands := result.Facets["all_brands"].(*facet.TermsResult)
	assert.Equal(t, 5, brands.Total)
}

func TestSearch_GlobalFacetIgnoresQuery(t *testing.T) {
	svc := newSearcher(t, 2, corpus)

	result, err := svc.Search(context.Background(), search.Request{
		Query: query.Term{Field: "brand", Value: "Kriek"},
		Facets: map[string]search.FacetRequest{
			"scoped": {Spec: facet.Terms{Field: "brand"}},
			"global": {Spec: facet.Terms{Field: "brand"}, Global: true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Facets["scoped"].(*facet.TermsResult).Total)
	assert.Equal(t, 5, result.Facets["global"].(*facet.TermsResult).Total)
	assert.Empty(t, result.Hits)
}

func TestSearch_Highlight(t *testing.T) {
	svc := newSearcher(t, 1, corpus)

	result, err := svc.Search(context.Background(), search.Request{
		Query:     query.Match{Field: "title", Text: "Dark"},
		Highlight: []string{"title", "brand"},
		Size:      10,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)

	for _, hit := range result.Hits {
		require.Contains(t, hit.Highlight, "title")
		assert.NotContains(t, hit.Highlight, "brand")
	}
	assert.Equal(t, "d2", result.Hits[0].ID)
	assert.Equal(t, []string{"<em>dark</em> cherry beer"}, result.Hits[0].Highlight["title"])
}

func TestSearch_InvalidRequests(t *testing.T) {
	svc := newSearcher(t, 2, corpus)

	tests := []struct {
		name string
		req  search.Request
	}{
		{name: "range on text field", req: search.Request{Query: query.Range{Field: "brand", From: f(1)}}},
		{name: "match on number field", req: search.Request{Query: query.Match{Field: "price", Text: "3"}}},
		{name: "terms facet on number field", req: search.Request{Facets: map[string]search.FacetRequest{"p": {Spec: facet.Terms{Field: "price"}}}}},
		{name: "invalid post_filter", req: search.Request{PostFilter: query.Range{Field: "colour", To: f(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tt.req)
			var invalid *errors.InvalidQueryError
			assert.True(t, stderrors.As(err, &invalid), "got %v", err)
		})
	}

	t.Run("window too large", func(t *testing.T) {
		_, err := svc.Search(context.Background(), search.Request{From: 95, Size: 10})
		var validation *errors.ValidationError
		assert.True(t, stderrors.As(err, &validation), "got %v", err)
	})

	t.Run("from near the int limit", func(t *testing.T) {
		_, err := svc.Search(context.Background(), search.Request{From: math.MaxInt - 5, Size: 10})
		var validation *errors.ValidationError
		assert.True(t, stderrors.As(err, &validation), "got %v", err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Search(ctx, search.Request{Size: 1})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMultiSearch(t *testing.T) {
	svc := newSearcher(t, 2, corpus)

	result, err := svc.MultiSearch(context.Background(), search.MultiRequest{Queries: []search.NamedRequest{
		{Name: "dark", Request: search.Request{Query: query.Term{Field: "colour", Value: "DARK"}}},
		{Name: "kriek", Request: search.Request{Query: query.Term{Field: "brand", Value: "Kriek"}, Size: 1}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalQueries)
	assert.Equal(t, 2, result.Results["dark"].TotalHits)
	assert.Equal(t, []string{"d2"}, hitIDs(result.Results["kriek"]))

	_, err = svc.MultiSearch(context.Background(), search.MultiRequest{Queries: []search.NamedRequest{
		{Name: "a", Request: search.Request{}},
		{Name: "a", Request: search.Request{}},
	}})
	assert.Error(t, err, "duplicate names are rejected")

	_, err = svc.MultiSearch(context.Background(), search.MultiRequest{})
	assert.Error(t, err)

	_, err = svc.MultiSearch(context.Background(), search.MultiRequest{Queries: []search.NamedRequest{
		{Name: "ok", Request: search.Request{}},
		{Name: "bad", Request: search.Request{Query: query.Range{Field: "brand"}}},
	}})
	var invalid *errors.InvalidQueryError
	assert.True(t, stderrors.As(err, &invalid), "got %v", err)
}

func TestSuggest(t *testing.T) {
	svc := newSearcher(t, 3, corpus)

	tests := []struct {
		name     string
		req      search.SuggestRequest
		wantTerm string
		wantErr  bool
	}{
		{name: "prefix completion", req: search.SuggestRequest{Field: "brand", Text: "hei"}, wantTerm: "heineken"},
		{name: "last token is completed", req: search.SuggestRequest{Field: "title", Text: "sour ch", MaxEdits: 2}, wantTerm: "cherry"},
		{name: "typo within edits", req: search.SuggestRequest{Field: "brand", Text: "krik", MaxEdits: 1}, wantTerm: "kriek"},
		{name: "prefix only without edits", req: search.SuggestRequest{Field: "brand", Text: "krik"}},
		{name: "unmapped field", req: search.SuggestRequest{Field: "style", Text: "ale"}},
		{name: "number field", req: search.SuggestRequest{Field: "price", Text: "3"}, wantErr: true},
		{name: "too many edits", req: search.SuggestRequest{Field: "brand", Text: "k", MaxEdits: 3}, wantErr: true},
		{name: "missing field", req: search.SuggestRequest{Text: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Suggest(context.Background(), tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantTerm == "" {
				assert.Empty(t, result.Suggestions)
				return
			}
			require.NotEmpty(t, result.Suggestions)
			assert.Equal(t, tt.wantTerm, result.Suggestions[0].Term)
		})
	}
}
