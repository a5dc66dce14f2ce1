// Package relevance scores and orders papers against keyword queries.
package relevance

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

const (
	// MinTermLen is the shortest term, in runes, that survives tokenization.
	MinTermLen = 3

	titleWeight    = 3
	abstractWeight = 1
)

// Scored is a paper with its keyword score.
type Scored struct {
	Paper paper.Paper
	Score int
}

// Tokenize lowercases the query, splits it on whitespace and keeps terms of
// at least MinTermLen runes. Repeated terms keep their first occurrence.
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < MinTermLen {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// Score adds titleWeight for every term found in the title and
// abstractWeight for every term found in the abstract. Terms must already be
// lowercase.
func Score(p paper.Paper, terms []string) int {
	title := strings.ToLower(p.Title)
	abstract := strings.ToLower(p.Abstract)

	score := 0
	for _, t := range terms {
		if strings.Contains(title, t) {
			score += titleWeight
		}
		if strings.Contains(abstract, t) {
			score += abstractWeight
		}
	}
	return score
}

// Rank scores every paper and orders by score descending, then publication
// date descending with undated papers last, then ID ascending.
func Rank(papers []paper.Paper, terms []string) []Scored {
	out := make([]Scored, len(papers))
	for i, p := range papers {
		out[i] = Scored{Paper: p, Score: Score(p, terms)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return paper.NewerFirst(out[i].Paper, out[j].Paper)
	})
	return out
}

// Papers strips the scores off a ranked list.
func Papers(ranked []Scored) []paper.Paper {
	out := make([]paper.Paper, len(ranked))
	for i, s := range ranked {
		out[i] = s.Paper
	}
	return out
}
