package usecases

import (
	"context"
	"fmt"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

// Retriever is the embedding index: it embeds the query and asks the vector store for the nearest chunks.
type Retriever struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	defaultK    int
}

// NewRetriever creates a Retriever with injected dependencies.
func NewRetriever(embedder ports.EmbeddingService, vectorStore ports.VectorStore, defaultK int) *Retriever {
	if defaultK <= 0 {
		defaultK = 3
	}
	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		defaultK:    defaultK,
	}
}

// Search returns up to k documents ordered by decreasing similarity. k <= 0 uses the default.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]entities.RetrievedDocument, error) {
	if k <= 0 {
		k = r.defaultK
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.vectorStore.Search(ctx, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	docs := make([]entities.RetrievedDocument, 0, len(results))
	for _, res := range results {
		docs = append(docs, entities.RetrievedDocument{
			Text:   res.Chunk.Content,
			Source: res.Chunk.Source,
			Score:  res.Score,
		})
	}
	return docs, nil
}
