// Package embedding provides the Mistral embedding adapter.
// It implements ports.EmbeddingService; the domain layer doesn't know about Mistral.
package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrCountMismatch is returned when the API returns a different number of vectors than inputs.
var ErrCountMismatch = errors.New("embedding count mismatch")

// MistralAdapter implements ports.EmbeddingService using the Mistral embeddings API.
type MistralAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// NewMistralAdapter creates a new Mistral embedding adapter.
func NewMistralAdapter(baseURL, apiKey, model string, timeout time.Duration, logger *slog.Logger) *MistralAdapter {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}
	if model == "" {
		model = "mistral-embed"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MistralAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// embedRequest is the Mistral embeddings request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the Mistral embeddings response format.
type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates an embedding for a single text.
func (a *MistralAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request, in input order.
func (a *MistralAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(embedRequest{Model: a.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	a.logger.Debug("embed_request", "model", a.model, "texts", len(texts))
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Mistral: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Mistral returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrCountMismatch, len(embedResp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, item := range embedResp.Data {
		index := item.Index
		if index < 0 || index >= len(texts) || embeddings[index] != nil {
			index = i
		}
		embeddings[index] = item.Embedding
	}
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return nil, fmt.Errorf("empty embedding for text %d", i)
		}
	}

	a.logger.Debug("embed_done", "texts", len(texts), "dims", len(embeddings[0]))
	return embeddings, nil
}
