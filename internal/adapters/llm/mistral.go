// Package llm provides the generation adapters.
// Adapters implement ports.LLMService; the domain layer never sees provider specifics.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = ports.ErrEmptyResponse

// MistralAdapter implements ports.LLMService using the Mistral chat completions API.
type MistralAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewMistralAdapter creates a new Mistral chat adapter.
func NewMistralAdapter(baseURL, apiKey, model string, timeout time.Duration) *MistralAdapter {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}
	if model == "" {
		model = "mistral-large-latest"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &MistralAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the Mistral chat completions request.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse is the Mistral chat completions response.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Model returns the configured model identifier.
func (a *MistralAdapter) Model() string {
	return a.model
}

// Complete sends one chat completion and returns the first choice's text.
func (a *MistralAdapter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	jsonData, err := json.Marshal(chatRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling Mistral: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := chatResp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// statusError reports a non-200 reply with the start of its body.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("Mistral returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("Mistral returned status %d: %s", resp.StatusCode, msg)
}
