package index

import (
	"testing"

	"github.com/gcbaptista/go-facet-search/model"
)

func ptr(v float64) *float64 { return &v }

func TestInvertedIndexAddAndLookup(t *testing.T) {
	ii := NewInvertedIndex()
	ii.Add(0, model.Fields{"brand": "Heineken", "price": 4.5, "tags": []string{"Pale Ale", "ale"}})
	ii.Add(1, model.Fields{"brand": "Kriek", "price": 6.0})
	ii.Add(2, model.Fields{"brand": "heineken light", "price": 3.0})

	t.Run("exact is case sensitive", func(t *testing.T) {
		if got := ii.LookupExact("brand", "Heineken").ToArray(); len(got) != 1 || got[0] != 0 {
			t.Errorf("expected [0], got %v", got)
		}
		if got := ii.LookupExact("brand", "heineken").GetCardinality(); got != 0 {
			t.Errorf("expected no match for lowercase raw value, got %d", got)
		}
	})

	t.Run("analyzed lookup lowercases", func(t *testing.T) {
		postings := ii.LookupAnalyzed("brand", "HEINEKEN")
		list := postings["heineken"]
		if len(list) != 2 || list[0].DocID != 0 || list[1].DocID != 2 {
			t.Errorf("expected postings for docs 0 and 2 in insertion order, got %v", list)
		}
	})

	t.Run("term frequency counts list elements", func(t *testing.T) {
		list := ii.LookupAnalyzed("tags", "ale")["ale"]
		if len(list) != 1 || list[0].TermFrequency != 2 {
			t.Errorf("expected tf 2 for 'ale', got %v", list)
		}
		if got := ii.FieldLength("tags", 0); got != 3 {
			t.Errorf("expected field length 3, got %d", got)
		}
	})

	t.Run("numeric equality through raw key", func(t *testing.T) {
		if got := ii.LookupExact("price", NumberKey(6)).ToArray(); len(got) != 1 || got[0] != 1 {
			t.Errorf("expected [1], got %v", got)
		}
	})

	t.Run("range is inclusive with open ends", func(t *testing.T) {
		if got := ii.LookupRange("price", ptr(3), ptr(4.5)).GetCardinality(); got != 2 {
			t.Errorf("expected 2 docs in [3,4.5], got %d", got)
		}
		if got := ii.LookupRange("price", ptr(4.5), nil).GetCardinality(); got != 2 {
			t.Errorf("expected 2 docs >= 4.5, got %d", got)
		}
		if got := ii.LookupRange("price", nil, nil).GetCardinality(); got != 3 {
			t.Errorf("expected all docs for an open range, got %d", got)
		}
	})
}

func TestInvertedIndexRemove(t *testing.T) {
	ii := NewInvertedIndex()
	fields := model.Fields{"brand": "Heineken", "price": 4.5}
	ii.Add(0, fields)
	ii.Add(1, model.Fields{"brand": "Heineken", "price": 2.0})

	ii.Remove(0, fields)

	if list := ii.LookupAnalyzed("brand", "heineken")["heineken"]; len(list) != 1 || list[0].DocID != 1 {
		t.Errorf("expected only doc 1 to remain, got %v", list)
	}
	if ii.LookupExact("brand", "Heineken").Contains(0) {
		t.Error("raw bitmap still holds removed doc")
	}
	if _, ok := ii.NumericValue("price", 0); ok {
		t.Error("numeric column still holds removed doc")
	}
	if ii.FieldDocs("brand").Contains(0) {
		t.Error("presence bitmap still holds removed doc")
	}
	docs, total := ii.FieldStats("brand")
	if docs != 1 || total != 1 {
		t.Errorf("expected field stats (1,1), got (%d,%d)", docs, total)
	}

	ii.Remove(1, model.Fields{"brand": "Heineken", "price": 2.0})
	if _, ok := ii.Terms["brand"]["heineken"]; ok {
		t.Error("empty posting list should be dropped")
	}
	if _, ok := ii.Raw["brand"]["Heineken"]; ok {
		t.Error("empty raw bitmap should be dropped")
	}
}
