// Package typoutil finds terms within a small edit distance of a query term.
package typoutil

import "sort"

// Distance computes the Damerau-Levenshtein distance between two strings:
// the minimum number of single-rune insertions, deletions, substitutions or
// adjacent transpositions turning a into b.
// Returns maxDistance + 1 as soon as the distance is known to exceed maxDistance.
func Distance(a, b string, maxDistance int) int {
	runesA := []rune(a)
	runesB := []rune(b)

	lenA := len(runesA)
	lenB := len(runesB)

	lengthDiff := lenA - lenB
	if lengthDiff < 0 {
		lengthDiff = -lengthDiff
	}
	if lengthDiff > maxDistance {
		return maxDistance + 1
	}

	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	// prevPrevRow holds row i-2, needed for transpositions.
	prevPrevRow := make([]int, lenB+1)
	prevRow := make([]int, lenB+1)
	currRow := make([]int, lenB+1)

	for j := 0; j <= lenB; j++ {
		prevRow[j] = j
	}

	for i := 1; i <= lenA; i++ {
		currRow[0] = i
		minInRow := i

		for j := 1; j <= lenB; j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}

			currRow[j] = min(prevRow[j]+1, currRow[j-1]+1, prevRow[j-1]+cost)

			if i > 1 && j > 1 &&
				runesA[i-1] == runesB[j-2] &&
				runesA[i-2] == runesB[j-1] {
				if transposition := prevPrevRow[j-2] + cost; transposition < currRow[j] {
					currRow[j] = transposition
				}
			}

			if currRow[j] < minInRow {
				minInRow = currRow[j]
			}
		}

		if minInRow > maxDistance {
			return maxDistance + 1
		}

		prevPrevRow, prevRow, currRow = prevRow, currRow, prevPrevRow
	}

	return prevRow[lenB]
}

// Candidate is a term within the allowed distance of the query term.
type Candidate struct {
	Term     string
	Distance int
}

// FindWithin returns the terms at distance 1..maxDistance from term, closest first
// and alphabetically among equals. The term itself is never returned.
func FindWithin(term string, terms []string, maxDistance int) []Candidate {
	candidates := make([]Candidate, 0)
	if maxDistance <= 0 || term == "" {
		return candidates
	}

	for _, indexedTerm := range terms {
		if indexedTerm == term {
			continue
		}
		if dist := Distance(term, indexedTerm, maxDistance); dist > 0 && dist <= maxDistance {
			candidates = append(candidates, Candidate{Term: indexedTerm, Distance: dist})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Term < candidates[j].Term
	})
	return candidates
}
