package vectordb

import (
	"context"
	"sync"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
)

// InMemoryStore keeps chunks in process memory. Used by tests and `ask --ephemeral`.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]entities.Chunk // chunkID -> chunk
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{chunks: make(map[string]entities.Chunk)}
}

// Replace builds the new contents aside and swaps them in. A repeated chunk id keeps the last one.
func (s *InMemoryStore) Replace(ctx context.Context, chunks []entities.Chunk) error {
	next := make(map[string]entities.Chunk, len(chunks))
	for _, chunk := range chunks {
		next[chunk.ID] = chunk
	}

	s.mu.Lock()
	s.chunks = next
	s.mu.Unlock()
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, k int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entities.QueryResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		results = append(results, entities.QueryResult{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}
	return topK(results, k), nil
}

// Count returns the number of stored chunks.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}
