// Package vectordb provides vector store adapters implementing ports.VectorStore.
// Both stores rank by brute-force cosine similarity; the event table is small enough.
package vectordb

import (
	"cmp"
	"math"
	"slices"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// topK sorts by score descending (ties by chunk id) and keeps the first k.
func topK(results []entities.QueryResult, k int) []entities.QueryResult {
	slices.SortFunc(results, func(a, b entities.QueryResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
