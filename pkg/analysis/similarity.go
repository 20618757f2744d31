package analysis

import (
	"math"
	"sort"
)

// DefaultSimilarityThreshold is the minimum cosine similarity, exclusive, for a
// candidate to be considered similar.
const DefaultSimilarityThreshold = 0.7

// Candidate is one stored vector eligible for similarity search.
type Candidate[T any] struct {
	Record T
	Vector []float64
}

type Scored[T any] struct {
	Record     T
	Similarity float64
}

// CosineSimilarity returns dot(a,b)/(|a||b|). Vectors of different length or
// with a zero norm have similarity 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// clamp rounding error so sim(a,a) never exceeds 1
	return math.Max(-1, math.Min(1, sim))
}

// FindSimilar scores every candidate against the query and returns those with
// similarity strictly above threshold, most similar first, at most limit.
func FindSimilar[T any](query []float64, corpus []Candidate[T], limit int, threshold float64) []Scored[T] {
	if limit <= 0 {
		return []Scored[T]{}
	}
	results := make([]Scored[T], 0)
	for _, c := range corpus {
		sim := CosineSimilarity(query, c.Vector)
		if sim > threshold {
			results = append(results, Scored[T]{Record: c.Record, Similarity: sim})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
