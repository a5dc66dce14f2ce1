// Package similarity implements exact cosine top-K over paper embeddings.
package similarity

import (
	"math"
	"sort"

	"github.com/kailas-cloud/paperdex/internal/domain/paper"
)

// Lowest is the similarity assigned to degenerate comparisons.
var Lowest = math.Inf(-1)

// Match is a paper with its similarity to the query vector.
type Match struct {
	Paper      paper.Paper
	Similarity float64
}

// Cosine returns dot(a,b)/(|a||b|). Empty vectors, length mismatches and
// zero magnitudes yield Lowest.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return Lowest
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return Lowest
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(s) {
		return Lowest
	}
	return s
}

// TopK scores every candidate that has an embedding and is not excluded,
// and returns the best limit matches ordered by similarity descending, then
// publication date descending with undated papers last, then ID ascending.
// A non-positive limit returns nil.
func TopK(query []float32, candidates []paper.Paper, exclude *paper.IDSet, limit int) []Match {
	if limit <= 0 {
		return nil
	}
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasEmbedding() || exclude.Contains(c.ID) {
			continue
		}
		matches = append(matches, Match{Paper: c, Similarity: Cosine(query, c.Embedding)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return paper.NewerFirst(matches[i].Paper, matches[j].Paper)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Mean returns the element-wise mean of two vectors of equal, non-zero length.
func Mean(a, b []float32) ([]float32, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return nil, false
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = (a[i] + b[i]) / 2
	}
	return out, true
}
