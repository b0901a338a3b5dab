package facet

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/gcbaptista/go-facet-search/index"
)

// Partial is the shard-local state of one facet.
type Partial struct {
	terms   map[string]int
	total   int
	missing int
	buckets []RangeBucket
}

// Collect computes the facet over the candidates of one shard.
// The caller holds the shard's read lock.
func Collect(spec Spec, ii *index.InvertedIndex, candidates *roaring.Bitmap) Partial {
	switch s := spec.(type) {
	case Terms:
		return collectTerms(s, ii, candidates)
	case Range:
		return collectRange(s, ii, candidates)
	}
	return Partial{}
}

func collectTerms(spec Terms, ii *index.InvertedIndex, candidates *roaring.Bitmap) Partial {
	p := Partial{terms: make(map[string]int)}
	for value, docs := range ii.RawValues(spec.Field) {
		count := int(docs.AndCardinality(candidates))
		if count == 0 {
			continue
		}
		p.terms[value] = count
		p.total += count
	}
	withField := candidates.AndCardinality(ii.FieldDocs(spec.Field))
	p.missing = int(candidates.GetCardinality() - withField)
	return p
}

func collectRange(spec Range, ii *index.InvertedIndex, candidates *roaring.Bitmap) Partial {
	p := Partial{buckets: newBuckets(spec.Ranges)}
	it := candidates.Iterator()
	for it.HasNext() {
		docID := it.Next()
		v, ok := ii.NumericValue(spec.Field, docID)
		if !ok {
			p.missing++
			continue
		}
		for i := range p.buckets {
			b := &p.buckets[i]
			if !b.Contains(v) {
				continue
			}
			b.Count++
			b.Total += v
			b.Min = math.Min(b.Min, v)
			b.Max = math.Max(b.Max, v)
		}
	}
	return p
}

func newBuckets(ranges []Bounds) []RangeBucket {
	buckets := make([]RangeBucket, len(ranges))
	for i, r := range ranges {
		buckets[i] = RangeBucket{Bounds: r, Min: math.Inf(1), Max: math.Inf(-1)}
	}
	return buckets
}

// Merge combines the partials of every shard into the facet's result.
// defaultSize replaces a terms facet Size of zero.
func Merge(spec Spec, partials []Partial, defaultSize int) Result {
	switch s := spec.(type) {
	case Terms:
		return mergeTerms(s, partials, defaultSize)
	case Range:
		return mergeRange(s, partials)
	}
	return nil
}

func mergeTerms(spec Terms, partials []Partial, defaultSize int) *TermsResult {
	counts := make(map[string]int)
	result := &TermsResult{Type: "terms", Terms: []TermCount{}}
	for _, p := range partials {
		for term, count := range p.terms {
			counts[term] += count
		}
		result.Total += p.total
		result.Missing += p.missing
	}

	all := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		all = append(all, TermCount{Term: term, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Term < all[j].Term
	})

	size := spec.Size
	if size == 0 {
		size = defaultSize
	}
	if size <= 0 {
		size = DefaultTermsSize
	}
	if len(all) > size {
		all = all[:size]
	}

	reported := 0
	for _, tc := range all {
		reported += tc.Count
	}
	result.Terms = append(result.Terms, all...)
	result.Other = result.Total - reported
	return result
}

func mergeRange(spec Range, partials []Partial) *RangeResult {
	result := &RangeResult{Type: "range", Ranges: newBuckets(spec.Ranges)}
	for _, p := range partials {
		result.Missing += p.missing
		for i, b := range p.buckets {
			if i >= len(result.Ranges) || b.Count == 0 {
				continue
			}
			out := &result.Ranges[i]
			out.Count += b.Count
			out.Total += b.Total
			out.Min = math.Min(out.Min, b.Min)
			out.Max = math.Max(out.Max, b.Max)
		}
	}
	for i := range result.Ranges {
		b := &result.Ranges[i]
		if b.Count == 0 {
			b.Min, b.Max = 0, 0
			continue
		}
		b.Mean = b.Total / float64(b.Count)
	}
	return result
}
