// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"
	"errors"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
)

// ErrEmptyResponse is returned by an LLMService whose provider answered without any text.
var ErrEmptyResponse = errors.New("empty response from generation service")

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionRequest is one call to the generation service.
type CompletionRequest struct {
	SystemPrompt string // optional
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// LLMService generates text from a hosted language model.
// Implementations may fail with transport or quota errors; callers decide how to degrade.
// A blank reply is reported as ErrEmptyResponse, never as "".
type LLMService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// VectorStore persists and queries chunk embeddings.
type VectorStore interface {
	// Replace swaps the whole contents for chunks atomically. On error the previous contents stay.
	Replace(ctx context.Context, chunks []entities.Chunk) error

	// Search finds the most similar chunks to a query embedding, best first.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// DocumentIndex is the embedding index as seen by the composer: text in, nearest documents out.
type DocumentIndex interface {
	Search(ctx context.Context, query string, k int) ([]entities.RetrievedDocument, error)
}

// Classifier decides whether an utterance needs retrieval. It never fails.
type Classifier interface {
	Classify(ctx context.Context, utterance string) entities.ClassificationResult
}

// FeedQuery selects records from the open-data event feed.
type FeedQuery struct {
	City string
	Year string
}

// EventSource fetches raw events from the open-data feed.
type EventSource interface {
	Fetch(ctx context.Context, query FeedQuery) ([]entities.Event, error)
}

// EventStore reads and writes the flat event table.
type EventStore interface {
	Write(ctx context.Context, events []entities.Event) error
	Read(ctx context.Context) ([]entities.Event, error)
	// Name is the source tag attached to indexed documents.
	Name() string
}

// HistoryStore owns the append-only conversation history.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, messages ...entities.ChatMessage) error
	History(ctx context.Context, sessionID string) ([]entities.ChatMessage, error)
	Reset(ctx context.Context, sessionID string) error
	Close()
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
