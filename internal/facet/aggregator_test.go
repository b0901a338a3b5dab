package facet

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/index"
	"github.com/gcbaptista/go-facet-search/model"
)

func ptr(v float64) *float64 { return &v }

// beerShards spreads count generated beers round-robin over n inverted indexes
// and returns them with the candidate bitmap of each shard.
func beerShards(t *testing.T, count, n int) ([]model.Beer, []*index.InvertedIndex, []*roaring.Bitmap) {
	t.Helper()

	beers := model.NewBeerGenerator(7).GenerateN(count)
	indexes := make([]*index.InvertedIndex, n)
	candidates := make([]*roaring.Bitmap, n)
	for i := range indexes {
		indexes[i] = index.NewInvertedIndex()
		candidates[i] = roaring.New()
	}
	for i, beer := range beers {
		fields, err := model.ToFields(beer)
		require.NoError(t, err)
		shard := i % n
		docID := uint32(i / n)
		indexes[shard].Add(docID, fields)
		candidates[shard].Add(docID)
	}
	return beers, indexes, candidates
}

func collectAll(spec Spec, indexes []*index.InvertedIndex, candidates []*roaring.Bitmap) Result {
	partials := make([]Partial, len(indexes))
	for i := range indexes {
		partials[i] = Collect(spec, indexes[i], candidates[i])
	}
	return Merge(spec, partials, DefaultTermsSize)
}

func TestTermsFacet(t *testing.T) {
	beers, indexes, candidates := beerShards(t, 1000, 3)

	expected := make(map[string]int)
	for _, beer := range beers {
		expected[beer.Brand]++
	}

	result, ok := collectAll(Terms{Field: "brand"}, indexes, candidates).(*TermsResult)
	require.True(t, ok)
	assert.Equal(t, "terms", result.Type)
	require.Len(t, result.Terms, len(model.Brands))

	sum := 0
	for i, tc := range result.Terms {
		assert.Equal(t, expected[tc.Term], tc.Count, "count of %s", tc.Term)
		sum += tc.Count
		if i > 0 {
			assert.GreaterOrEqual(t, result.Terms[i-1].Count, tc.Count, "terms must be sorted by count")
		}
	}
	assert.Equal(t, 1000, sum)
	assert.Equal(t, 1000, result.Total)
	assert.Zero(t, result.Other)
	assert.Zero(t, result.Missing)
}

func TestTermsFacet_SizeAndOther(t *testing.T) {
	_, indexes, candidates := beerShards(t, 300, 2)

	result := collectAll(Terms{Field: "brand", Size: 1}, indexes, candidates).(*TermsResult)
	require.Len(t, result.Terms, 1)
	assert.Equal(t, 300-result.Terms[0].Count, result.Other)
}

func TestTermsFacet_TiesBreakByTerm(t *testing.T) {
	ii := index.NewInvertedIndex()
	ii.Add(0, model.Fields{"tags": []string{"b", "a"}})
	ii.Add(1, model.Fields{"tags": []string{"a", "b", "c"}})
	ii.Add(2, model.Fields{"price": 1.0})

	candidates := roaring.BitmapOf(0, 1, 2)
	result := Merge(Terms{Field: "tags"}, []Partial{Collect(Terms{Field: "tags"}, ii, candidates)}, 10).(*TermsResult)

	assert.Equal(t, []TermCount{{Term: "a", Count: 2}, {Term: "b", Count: 2}, {Term: "c", Count: 1}}, result.Terms)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 1, result.Missing)
}

func TestRangeFacet(t *testing.T) {
	beers, indexes, candidates := beerShards(t, 1000, 3)

	spec := Range{Field: "price", Ranges: []Bounds{{To: ptr(3)}, {From: ptr(3), To: ptr(6)}, {From: ptr(6)}}}
	result, ok := collectAll(spec, indexes, candidates).(*RangeResult)
	require.True(t, ok)
	assert.Equal(t, "range", result.Type)
	require.Len(t, result.Ranges, 3)

	expected := make([]int, 3)
	for _, beer := range beers {
		switch {
		case beer.Price < 3:
			expected[0]++
		case beer.Price < 6:
			expected[1]++
		default:
			expected[2]++
		}
	}

	sum := 0
	for i, bucket := range result.Ranges {
		assert.Equal(t, expected[i], bucket.Count, "bucket %d", i)
		sum += bucket.Count
		if bucket.Count == 0 {
			continue
		}
		assert.True(t, bucket.Contains(bucket.Min), "bucket %d min %v outside its bounds", i, bucket.Min)
		assert.True(t, bucket.Contains(bucket.Max), "bucket %d max %v outside its bounds", i, bucket.Max)
		assert.InDelta(t, bucket.Total/float64(bucket.Count), bucket.Mean, 1e-9)
	}
	assert.Equal(t, 1000, sum, "buckets must be exhaustive and exclusive")
	assert.Zero(t, result.Missing)
}

func TestRangeFacet_MissingAndEmptyBucket(t *testing.T) {
	ii := index.NewInvertedIndex()
	ii.Add(0, model.Fields{"price": 1.5})
	ii.Add(1, model.Fields{"price": 2.5})
	ii.Add(2, model.Fields{"brand": "Kriek"})

	spec := Range{Field: "price", Ranges: []Bounds{{To: ptr(2)}, {From: ptr(2), To: ptr(3)}, {From: ptr(100)}}}
	result := Merge(spec, []Partial{Collect(spec, ii, roaring.BitmapOf(0, 1, 2))}, 10).(*RangeResult)

	assert.Equal(t, 1, result.Missing)
	assert.Equal(t, 1, result.Ranges[0].Count)
	assert.Equal(t, 1.5, result.Ranges[0].Min)
	assert.Equal(t, 2.5, result.Ranges[1].Max)
	assert.Equal(t, RangeBucket{Bounds: Bounds{From: ptr(100)}}, result.Ranges[2])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		spec      Spec
		fieldType config.FieldType
		mapped    bool
		wantErr   bool
	}{
		{name: "terms on text", spec: Terms{Field: "brand"}, fieldType: config.FieldTypeText, mapped: true},
		{name: "terms on number", spec: Terms{Field: "price"}, fieldType: config.FieldTypeNumber, mapped: true, wantErr: true},
		{name: "terms on unmapped field", spec: Terms{Field: "nope"}},
		{name: "terms negative size", spec: Terms{Field: "brand", Size: -1}, fieldType: config.FieldTypeText, mapped: true, wantErr: true},
		{name: "range on number", spec: Range{Field: "price", Ranges: []Bounds{{To: ptr(3)}}}, fieldType: config.FieldTypeNumber, mapped: true},
		{name: "range without buckets", spec: Range{Field: "price"}, fieldType: config.FieldTypeNumber, mapped: true, wantErr: true},
		{name: "range inverted bucket", spec: Range{Field: "price", Ranges: []Bounds{{From: ptr(5), To: ptr(3)}}}, fieldType: config.FieldTypeNumber, mapped: true, wantErr: true},
		{name: "range on text", spec: Range{Field: "brand", Ranges: []Bounds{{To: ptr(3)}}}, fieldType: config.FieldTypeText, mapped: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec, tt.fieldType, tt.mapped)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
