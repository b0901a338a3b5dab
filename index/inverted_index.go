package index

import (
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/gcbaptista/go-facet-search/internal/tokenizer"
	"github.com/gcbaptista/go-facet-search/model"
)

// InvertedIndex holds the searchable structures of one shard.
// Callers hold Mu: write lock for Add/Remove/Reset, read lock for lookups.
type InvertedIndex struct {
	Mu sync.RWMutex

	// Terms maps field -> analyzed term -> postings.
	Terms map[string]map[string]PostingList
	// Raw maps field -> unanalyzed value -> documents holding it. Numbers are
	// keyed by their shortest decimal representation.
	Raw map[string]map[string]*roaring.Bitmap
	// Numbers maps field -> document -> value for numeric fields.
	Numbers map[string]map[uint32]float64
	// Present maps field -> documents with at least one value for it.
	Present map[string]*roaring.Bitmap
	// Lengths maps field -> document -> analyzed token count.
	Lengths map[string]map[uint32]int
	// TotalLengths maps field -> sum of Lengths, for average field length.
	TotalLengths map[string]int
}

// NewInvertedIndex creates an empty index.
func NewInvertedIndex() *InvertedIndex {
	ii := &InvertedIndex{}
	ii.Reset()
	return ii
}

// Reset drops every entry.
func (ii *InvertedIndex) Reset() {
	ii.Terms = make(map[string]map[string]PostingList)
	ii.Raw = make(map[string]map[string]*roaring.Bitmap)
	ii.Numbers = make(map[string]map[uint32]float64)
	ii.Present = make(map[string]*roaring.Bitmap)
	ii.Lengths = make(map[string]map[uint32]int)
	ii.TotalLengths = make(map[string]int)
}

// NumberKey is the raw-value key of a numeric value.
func NumberKey(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Add indexes normalized fields (string, []string or float64 values) under docID.
func (ii *InvertedIndex) Add(docID uint32, fields model.Fields) {
	for field, value := range fields {
		switch v := value.(type) {
		case string:
			ii.addText(docID, field, []string{v})
		case []string:
			ii.addText(docID, field, v)
		case float64:
			ii.addNumber(docID, field, v)
		}
	}
}

// Remove deletes every entry derived from fields for docID.
// fields must be the values that were passed to Add.
func (ii *InvertedIndex) Remove(docID uint32, fields model.Fields) {
	for field, value := range fields {
		switch v := value.(type) {
		case string:
			ii.removeText(docID, field, []string{v})
		case []string:
			ii.removeText(docID, field, v)
		case float64:
			ii.removeNumber(docID, field, v)
		}
	}
}

func (ii *InvertedIndex) addText(docID uint32, field string, values []string) {
	freqs := make(map[string]int)
	length := 0
	for _, value := range values {
		ii.rawBitmap(field, value, true).Add(docID)
		valueFreqs, valueLength := tokenizer.TermFrequencies(value)
		for term, tf := range valueFreqs {
			freqs[term] += tf
		}
		length += valueLength
	}

	terms, ok := ii.Terms[field]
	if !ok {
		terms = make(map[string]PostingList)
		ii.Terms[field] = terms
	}
	for term, tf := range freqs {
		terms[term] = append(terms[term], Posting{DocID: docID, TermFrequency: tf})
	}

	lengths, ok := ii.Lengths[field]
	if !ok {
		lengths = make(map[uint32]int)
		ii.Lengths[field] = lengths
	}
	lengths[docID] = length
	ii.TotalLengths[field] += length
	ii.presence(field).Add(docID)
}

func (ii *InvertedIndex) removeText(docID uint32, field string, values []string) {
	for _, value := range values {
		ii.removeRaw(field, value, docID)
		for _, term := range tokenizer.UniqueTerms(value) {
			list, ok := ii.Terms[field][term]
			if !ok {
				continue
			}
			list = list.remove(docID)
			if len(list) == 0 {
				delete(ii.Terms[field], term)
			} else {
				ii.Terms[field][term] = list
			}
		}
	}
	if lengths, ok := ii.Lengths[field]; ok {
		ii.TotalLengths[field] -= lengths[docID]
		delete(lengths, docID)
	}
	ii.removePresence(field, docID)
}

func (ii *InvertedIndex) addNumber(docID uint32, field string, value float64) {
	column, ok := ii.Numbers[field]
	if !ok {
		column = make(map[uint32]float64)
		ii.Numbers[field] = column
	}
	column[docID] = value
	ii.rawBitmap(field, NumberKey(value), true).Add(docID)
	ii.presence(field).Add(docID)
}

func (ii *InvertedIndex) removeNumber(docID uint32, field string, value float64) {
	delete(ii.Numbers[field], docID)
	ii.removeRaw(field, NumberKey(value), docID)
	ii.removePresence(field, docID)
}

func (ii *InvertedIndex) rawBitmap(field, value string, create bool) *roaring.Bitmap {
	values, ok := ii.Raw[field]
	if !ok {
		if !create {
			return nil
		}
		values = make(map[string]*roaring.Bitmap)
		ii.Raw[field] = values
	}
	bm, ok := values[value]
	if !ok && create {
		bm = roaring.New()
		values[value] = bm
	}
	return bm
}

func (ii *InvertedIndex) removeRaw(field, value string, docID uint32) {
	bm := ii.rawBitmap(field, value, false)
	if bm == nil {
		return
	}
	bm.Remove(docID)
	if bm.IsEmpty() {
		delete(ii.Raw[field], value)
	}
}

func (ii *InvertedIndex) presence(field string) *roaring.Bitmap {
	bm, ok := ii.Present[field]
	if !ok {
		bm = roaring.New()
		ii.Present[field] = bm
	}
	return bm
}

func (ii *InvertedIndex) removePresence(field string, docID uint32) {
	if bm, ok := ii.Present[field]; ok {
		bm.Remove(docID)
	}
}

// LookupExact returns the documents whose raw value of field equals value.
// The returned bitmap is owned by the index and must not be modified.
func (ii *InvertedIndex) LookupExact(field, value string) *roaring.Bitmap {
	if bm := ii.rawBitmap(field, value, false); bm != nil {
		return bm
	}
	return roaring.New()
}

// LookupAnalyzed analyzes text and returns the postings of each resulting
// term that occurs in field. Terms absent from the field are omitted.
func (ii *InvertedIndex) LookupAnalyzed(field, text string) map[string]PostingList {
	out := make(map[string]PostingList)
	terms := ii.Terms[field]
	for _, term := range tokenizer.UniqueTerms(text) {
		if list, ok := terms[term]; ok {
			out[term] = list
		}
	}
	return out
}

// LookupRange returns the documents whose numeric value of field lies in
// [from, to]. A nil bound is open.
func (ii *InvertedIndex) LookupRange(field string, from, to *float64) *roaring.Bitmap {
	out := roaring.New()
	for docID, v := range ii.Numbers[field] {
		if from != nil && v < *from {
			continue
		}
		if to != nil && v > *to {
			continue
		}
		out.Add(docID)
	}
	return out
}

// NumericValue returns the numeric value of field for docID.
func (ii *InvertedIndex) NumericValue(field string, docID uint32) (float64, bool) {
	v, ok := ii.Numbers[field][docID]
	return v, ok
}

// RawValues returns the raw value bitmaps of field keyed by value.
// The map and bitmaps are owned by the index and must not be modified.
func (ii *InvertedIndex) RawValues(field string) map[string]*roaring.Bitmap {
	return ii.Raw[field]
}

// FieldDocs returns the documents holding a value for field.
func (ii *InvertedIndex) FieldDocs(field string) *roaring.Bitmap {
	if bm, ok := ii.Present[field]; ok {
		return bm
	}
	return roaring.New()
}

// FieldLength returns the analyzed token count of field for docID.
func (ii *InvertedIndex) FieldLength(field string, docID uint32) int {
	return ii.Lengths[field][docID]
}

// FieldStats returns the number of documents with field and the sum of their lengths.
func (ii *InvertedIndex) FieldStats(field string) (docs int, totalLength int) {
	return len(ii.Lengths[field]), ii.TotalLengths[field]
}

// TermDocFrequencies returns the analyzed terms of field with their document frequency.
func (ii *InvertedIndex) TermDocFrequencies(field string) map[string]int {
	out := make(map[string]int, len(ii.Terms[field]))
	for term, list := range ii.Terms[field] {
		out[term] = len(list)
	}
	return out
}
