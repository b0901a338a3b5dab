package search

import (
	"context"
	"sort"
	"strings"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/tokenizer"
	"github.com/gcbaptista/go-facet-search/internal/typoutil"
)

const (
	defaultSuggestSize = 5
	maxSuggestEdits    = 2
)

// Suggest completes the last token of req.Text from the terms of req.Field.
// Prefix completions come first, most frequent first. When they are fewer than
// Size, terms within MaxEdits edits of the token fill the remaining slots.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) (SuggestResult, error) {
	if req.Field == "" {
		return SuggestResult{}, errors.NewValidationError("field", "field is required")
	}
	if req.MaxEdits < 0 || req.MaxEdits > maxSuggestEdits {
		return SuggestResult{}, errors.NewValidationError("max_edits", "must be between 0 and 2")
	}
	if req.Size < 0 {
		return SuggestResult{}, errors.NewValidationError("size", "must not be negative")
	}
	size := req.Size
	if size == 0 {
		size = defaultSuggestSize
	}

	result := SuggestResult{Suggestions: []Suggestion{}}
	fieldType, mapped := s.mapping.Type(req.Field)
	if !mapped {
		return result, nil
	}
	if fieldType != config.FieldTypeText {
		return SuggestResult{}, errors.NewInvalidQueryError(req.Field, "suggestions require a text field")
	}

	tokens := tokenizer.Tokenize(req.Text)
	if len(tokens) == 0 {
		return result, nil
	}
	prefix := tokens[len(tokens)-1]

	if err := ctx.Err(); err != nil {
		return SuggestResult{}, err
	}

	docFreq := make(map[string]int)
	s.shards.RLockAll()
	for _, sh := range s.shards {
		for term, df := range sh.Index.TermDocFrequencies(req.Field) {
			docFreq[term] += df
		}
	}
	s.shards.RUnlockAll()

	for term, df := range docFreq {
		if strings.HasPrefix(term, prefix) {
			result.Suggestions = append(result.Suggestions, Suggestion{Term: term, DocFreq: df})
		}
	}
	sort.Slice(result.Suggestions, func(i, j int) bool {
		a, b := result.Suggestions[i], result.Suggestions[j]
		if a.DocFreq != b.DocFreq {
			return a.DocFreq > b.DocFreq
		}
		return a.Term < b.Term
	})
	if len(result.Suggestions) >= size {
		result.Suggestions = result.Suggestions[:size]
		return result, nil
	}

	remaining := make([]string, 0, len(docFreq))
	for term := range docFreq {
		if !strings.HasPrefix(term, prefix) {
			remaining = append(remaining, term)
		}
	}
	fuzzy := make([]Suggestion, 0)
	for _, candidate := range typoutil.FindWithin(prefix, remaining, req.MaxEdits) {
		fuzzy = append(fuzzy, Suggestion{Term: candidate.Term, DocFreq: docFreq[candidate.Term], Distance: candidate.Distance})
	}
	sort.SliceStable(fuzzy, func(i, j int) bool {
		if fuzzy[i].Distance != fuzzy[j].Distance {
			return fuzzy[i].Distance < fuzzy[j].Distance
		}
		return fuzzy[i].DocFreq > fuzzy[j].DocFreq
	})
	for _, sug := range fuzzy {
		if len(result.Suggestions) >= size {
			break
		}
		result.Suggestions = append(result.Suggestions, sug)
	}
	return result, nil
}
