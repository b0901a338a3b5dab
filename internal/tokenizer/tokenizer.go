// Package tokenizer implements the analysis step shared by indexing and
// match queries: lowercase the text and split it on anything that is not a
// letter or a digit.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize converts a string into a slice of lowercased tokens.
// Whitespace and punctuation separate tokens; letters and digits of any script are kept.
func Tokenize(text string) []string {
	split := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(split)) // Initialize as empty slice, not nil
	for _, s := range split {
		tokens = append(tokens, strings.ToLower(s))
	}
	return tokens
}

// TermFrequencies tokenizes text and counts each resulting term.
// It also returns the total number of tokens, used as the field length for scoring.
func TermFrequencies(text string) (map[string]int, int) {
	tokens := Tokenize(text)
	freqs := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freqs[token]++
	}
	return freqs, len(tokens)
}

// UniqueTerms tokenizes text and returns each distinct term once, in order of first appearance.
func UniqueTerms(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
	}
	return result
}

// Span locates one token in the original text by byte offsets.
type Span struct {
	Start int
	End   int
	Term  string // lowercased token
}

// Spans tokenizes text like Tokenize and also reports where each token sits.
func Spans(text string) []Span {
	spans := make([]Span, 0)
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, Span{Start: start, End: i, Term: strings.ToLower(text[start:i])})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Start: start, End: len(text), Term: strings.ToLower(text[start:])})
	}
	return spans
}
