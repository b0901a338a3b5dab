package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", []string{}},
		{"simple lowercase", "hello world", []string{"hello", "world"}},
		{"with punctuation", "hello, world!", []string{"hello", "world"}},
		{"with numbers", "item123 test", []string{"item123", "test"}},
		{"leading/trailing spaces", "  hello world  ", []string{"hello", "world"}},
		{"multiple spaces between words", "hello   world", []string{"hello", "world"}},
		{"all caps word", "HEINEKEN", []string{"heineken"}},
		{"mixed case is not split", "HeineKen", []string{"heineken"}},
		{"sentence", "HEINEKEN is a beer", []string{"heineken", "is", "a", "beer"}},
		{"string with hyphen", "state-of-the-art", []string{"state", "of", "the", "art"}},
		{"string with underscore", "my_variable_name", []string{"my", "variable", "name"}},
		{"mixed with numbers and symbols", "API_v1.0-beta!", []string{"api", "v1", "0", "beta"}},
		{"accented letters", "Bière brune", []string{"bière", "brune"}},
		{"only symbols", "!@#$%^", []string{}},
		{"only numbers", "12345 67890", []string{"12345", "67890"}},
		{"special chars in middle", "word1!@#word2", []string{"word1", "word2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTermFrequencies(t *testing.T) {
	freqs, length := TermFrequencies("Pale ale, pale LAGER")
	if length != 4 {
		t.Errorf("length = %d, want 4", length)
	}
	want := map[string]int{"pale": 2, "ale": 1, "lager": 1}
	if !reflect.DeepEqual(freqs, want) {
		t.Errorf("TermFrequencies() = %v, want %v", freqs, want)
	}
}

func TestUniqueTerms(t *testing.T) {
	got := UniqueTerms("dark DARK pale dark")
	want := []string{"dark", "pale"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueTerms() = %v, want %v", got, want)
	}
}

func TestSpans(t *testing.T) {
	text := "Pale Ale, brewed by Heineken!"
	spans := Spans(text)

	expected := []string{"pale", "ale", "brewed", "by", "heineken"}
	if len(spans) != len(expected) {
		t.Fatalf("expected %d spans, got %d: %v", len(expected), len(spans), spans)
	}
	for i, span := range spans {
		if span.Term != expected[i] {
			t.Errorf("span %d: expected term %q, got %q", i, expected[i], span.Term)
		}
		if got := strings.ToLower(text[span.Start:span.End]); got != span.Term {
			t.Errorf("span %d: offsets select %q, expected %q", i, got, span.Term)
		}
	}
}
