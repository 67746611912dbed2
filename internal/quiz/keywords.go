package quiz

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenRe         = regexp.MustCompile(`[a-zA-Z]{3,}`)
	fallbackTokenRe = regexp.MustCompile(`[a-zA-Z]{4,}`)
)

// extractKeywords ranks the most salient unigrams and bigrams of the text by
// TF-IDF weight. With a single document the idf term is a constant, so the
// ranking degenerates to term frequency; ties break lexicographically to keep
// the output deterministic. Returns up to max terms, best first.
func extractKeywords(text string, max int) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return fallbackKeywords(text, max)
	}

	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i+1 < len(tokens) {
			counts[tok+" "+tokens[i+1]]++
		}
	}

	// smooth idf over a one-document corpus: ln((1+n)/(1+df)) + 1 == 1,
	// kept explicit so the weighting generalizes if a corpus ever appears
	idf := math.Log(2.0/2.0) + 1

	type weighted struct {
		term   string
		weight float64
	}
	terms := make([]weighted, 0, len(counts))
	for term, count := range counts {
		terms = append(terms, weighted{term: term, weight: float64(count) * idf})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].weight != terms[j].weight {
			return terms[i].weight > terms[j].weight
		}
		return terms[i].term < terms[j].term
	})

	if len(terms) > max {
		terms = terms[:max]
	}
	keywords := make([]string, len(terms))
	for i, t := range terms {
		keywords[i] = t.term
	}
	return keywords
}

// tokenize lowercases, keeps alphabetic runs of three or more characters and
// drops stopwords
func tokenize(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if !stopwords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// fallbackKeywords is the raw-frequency path used when tokenization yields
// nothing usable for the weighted ranking
func fallbackKeywords(text string, max int) []string {
	raw := fallbackTokenRe.FindAllString(strings.ToLower(text), -1)
	counts := make(map[string]int, len(raw))
	for _, tok := range raw {
		if !stopwords[tok] {
			counts[tok]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > max {
		terms = terms[:max]
	}
	return terms
}
