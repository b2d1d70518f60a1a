// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

var (
	// ErrNoEvents is returned when the event table has nothing to index. The store is left untouched.
	ErrNoEvents = errors.New("no events to index")
	// ErrIndexEmpty is returned when the vector store holds no documents.
	ErrIndexEmpty = errors.New("vector index is empty, run reindex first")
)

// IngestUseCase rebuilds the vector index from the event table.
type IngestUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	batchSize, concurrency int,
	logger *slog.Logger,
) *IngestUseCase {
	if batchSize <= 0 {
		batchSize = 32
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Reindex reads every event from the table and replaces the index contents.
func (uc *IngestUseCase) Reindex(ctx context.Context, table ports.EventStore) (int, error) {
	events, err := table.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading events: %w", err)
	}
	return uc.IndexEvents(ctx, events, table.Name())
}

// IndexEvents embeds one document per event and replaces the store contents with them.
// On failure the previous contents stay searchable.
func (uc *IngestUseCase) IndexEvents(ctx context.Context, events []entities.Event, source string) (int, error) {
	chunks := buildChunks(events, source)
	if len(chunks) == 0 {
		return 0, ErrNoEvents
	}

	if err := uc.embedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	if err := uc.vectorStore.Replace(ctx, chunks); err != nil {
		return 0, fmt.Errorf("replacing index: %w", err)
	}

	uc.logger.Info("index_rebuilt", "events", len(chunks), "source", source)
	return len(chunks), nil
}

// CheckIndex returns the document count, or ErrIndexEmpty.
func CheckIndex(ctx context.Context, store ports.VectorStore) (int, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting index: %w", err)
	}
	if count == 0 {
		return 0, ErrIndexEmpty
	}
	return count, nil
}

// embedChunks fills Embedding in place, batchSize texts per call, at most concurrency calls in flight.
func (uc *IngestUseCase) embedChunks(ctx context.Context, chunks []entities.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)

	for start := 0; start < len(chunks); start += uc.batchSize {
		end := min(start+uc.batchSize, len(chunks))
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Content
			}
			embeddings, err := uc.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("embedding batch %d-%d: got %d vectors for %d texts", start, end, len(embeddings), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = embeddings[i]
			}
			uc.logger.Debug("embed_batch_done", "start", start, "end", end)
			return nil
		})
	}
	return g.Wait()
}

// buildChunks renders one chunk per event. Blank texts are skipped and duplicate ids keep the first event.
func buildChunks(events []entities.Event, source string) []entities.Chunk {
	chunks := make([]entities.Chunk, 0, len(events))
	seen := make(map[string]struct{}, len(events))

	for _, event := range events {
		if strings.TrimSpace(event.Title) == "" && strings.TrimSpace(event.Description) == "" {
			continue
		}
		content := event.IndexText()

		id := strings.TrimSpace(event.UID)
		if id == "" {
			id = generateChunkID(content)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		chunks = append(chunks, entities.Chunk{
			ID:         id,
			DocumentID: id,
			Content:    content,
			Source:     source,
		})
	}
	return chunks
}

// generateChunkID creates a deterministic ID for an event without uid.
func generateChunkID(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:8])
}
