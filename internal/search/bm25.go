package search

import (
	"math"

	"github.com/gcbaptista/go-facet-search/internal/shard"
)

const (
	bm25K1 = 1.2  // Controls term frequency saturation
	bm25B  = 0.75 // Controls how much effect field length has
)

// fieldStats are the length statistics of one field across every shard.
type fieldStats struct {
	docs        int
	totalLength int
}

// corpusStats hold the index-wide statistics BM25 needs, so that scores do not
// depend on how documents are spread over shards.
type corpusStats struct {
	fields  map[string]fieldStats
	docFreq map[string]map[string]int // field -> term -> documents containing it
}

// collectStats gathers statistics for the given field -> terms.
// The caller holds read locks on every shard.
func collectStats(shards shard.Set, terms map[string]map[string]struct{}) *corpusStats {
	stats := &corpusStats{
		fields:  make(map[string]fieldStats, len(terms)),
		docFreq: make(map[string]map[string]int, len(terms)),
	}
	for field, fieldTerms := range terms {
		fs := fieldStats{}
		df := make(map[string]int, len(fieldTerms))
		for _, sh := range shards {
			docs, total := sh.Index.FieldStats(field)
			fs.docs += docs
			fs.totalLength += total
			for term := range fieldTerms {
				df[term] += len(sh.Index.Terms[field][term])
			}
		}
		stats.fields[field] = fs
		stats.docFreq[field] = df
	}
	return stats
}

// BM25Calculator handles BM25 score calculations
type BM25Calculator struct {
	stats *corpusStats
}

// NewBM25Calculator creates a new BM25 calculator
func newBM25Calculator(stats *corpusStats) *BM25Calculator {
	return &BM25Calculator{stats: stats}
}

// IDF = log(1 + (N - df + 0.5) / (df + 0.5)) where N = documents with the field,
// df = documents containing the term. Always positive, so a term present in
// every document still contributes.
func (calc *BM25Calculator) IDF(field, term string) float64 {
	docCount := float64(calc.stats.fields[field].docs)
	docFreq := float64(calc.stats.docFreq[field][term])
	if docCount == 0 || docFreq == 0 {
		return 0.0
	}
	return math.Log(1 + (docCount-docFreq+0.5)/(docFreq+0.5))
}

// Score calculates BM25 with field length normalization
// BM25 = IDF * (tf * (k1 + 1)) / (tf + k1 * (1 - b + b * (|d| / avgdl)))
func (calc *BM25Calculator) Score(field, term string, termFreq, fieldLength int) float64 {
	fs := calc.stats.fields[field]
	if fs.docs == 0 || termFreq == 0 {
		return 0.0
	}
	avgFieldLength := float64(fs.totalLength) / float64(fs.docs)
	if avgFieldLength == 0 {
		avgFieldLength = 1
	}

	tf := float64(termFreq)
	bm25TF := (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*(float64(fieldLength)/avgFieldLength)))
	return calc.IDF(field, term) * bm25TF
}
