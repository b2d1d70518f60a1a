package usecases

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

// mockEmbedder implements ports.EmbeddingService for testing
type mockEmbedder struct {
	mu      sync.Mutex
	embedFn func(text string) ([]float32, error)
	batches int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()

	result := make([][]float32, len(texts))
	for i := range texts {
		emb, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}

// mockVectorStore implements ports.VectorStore for testing
type mockVectorStore struct {
	chunks    []entities.Chunk
	replaceFn func(chunks []entities.Chunk) error
	searchFn  func(topK int) ([]entities.QueryResult, error)
	replaced  int
	lastTopK  int
}

func (m *mockVectorStore) Search(ctx context.Context, emb []float32, topK int) ([]entities.QueryResult, error) {
	m.lastTopK = topK
	if m.searchFn != nil {
		return m.searchFn(topK)
	}
	var results []entities.QueryResult
	for i, c := range m.chunks {
		if i >= topK {
			break
		}
		results = append(results, entities.QueryResult{Chunk: c, Score: 0.9 - float64(i)*0.1})
	}
	return results, nil
}

// Replace is all-or-nothing: a replaceFn error leaves chunks untouched.
func (m *mockVectorStore) Replace(ctx context.Context, chunks []entities.Chunk) error {
	if m.replaceFn != nil {
		if err := m.replaceFn(chunks); err != nil {
			return err
		}
	}
	m.replaced++
	m.chunks = append([]entities.Chunk(nil), chunks...)
	return nil
}

func (m *mockVectorStore) Count(ctx context.Context) (int, error) {
	return len(m.chunks), nil
}

// mockLLM implements ports.LLMService for testing
type mockLLM struct {
	mu       sync.Mutex
	response string
	err      error
	panicMsg string
	callFn   func(ctx context.Context, req ports.CompletionRequest) (string, error)
	requests []ports.CompletionRequest
}

func (m *mockLLM) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.callFn != nil {
		return m.callFn(ctx, req)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockIndex implements ports.DocumentIndex for testing
type mockIndex struct {
	docs  []entities.RetrievedDocument
	err   error
	lastK int
	calls int
}

func (m *mockIndex) Search(ctx context.Context, query string, k int) ([]entities.RetrievedDocument, error) {
	m.calls++
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	if k < len(m.docs) {
		return m.docs[:k], nil
	}
	return m.docs, nil
}

// mockHistory implements ports.HistoryStore for testing
type mockHistory struct {
	mu        sync.Mutex
	sessions  map[string][]entities.ChatMessage
	appendErr error
}

func newMockHistory() *mockHistory {
	return &mockHistory{sessions: make(map[string][]entities.ChatMessage)}
}

func (m *mockHistory) Append(ctx context.Context, sessionID string, messages ...entities.ChatMessage) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], messages...)
	return nil
}

func (m *mockHistory) History(ctx context.Context, sessionID string) ([]entities.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.ChatMessage(nil), m.sessions[sessionID]...), nil
}

func (m *mockHistory) Reset(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *mockHistory) Close() {}

// mockEventSource implements ports.EventSource for testing
type mockEventSource struct {
	events    []entities.Event
	err       error
	lastQuery ports.FeedQuery
}

func (m *mockEventSource) Fetch(ctx context.Context, query ports.FeedQuery) ([]entities.Event, error) {
	m.lastQuery = query
	return m.events, m.err
}

// mockEventStore implements ports.EventStore for testing
type mockEventStore struct {
	events   []entities.Event
	readErr  error
	writeErr error
	writes   int
}

func (m *mockEventStore) Write(ctx context.Context, events []entities.Event) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.events = append([]entities.Event(nil), events...)
	return nil
}

func (m *mockEventStore) Read(ctx context.Context) ([]entities.Event, error) {
	return m.events, m.readErr
}

func (m *mockEventStore) Name() string { return "events.csv" }

var errBoom = errors.New("boom")

func sortedIDs(chunks []entities.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	return ids
}
