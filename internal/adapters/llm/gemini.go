package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

// ErrMissingAPIKey is returned when the Gemini adapter has no credential.
var ErrMissingAPIKey = errors.New("missing gemini api key")

// GeminiAdapter implements ports.LLMService using the Gemini API.
// The SDK client is created on first use.
type GeminiAdapter struct {
	apiKey  string
	model   string
	timeout time.Duration

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiAdapter creates a new Gemini adapter.
func NewGeminiAdapter(apiKey, model string, timeout time.Duration) *GeminiAdapter {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiAdapter{apiKey: apiKey, model: model, timeout: timeout}
}

// Model returns the configured model identifier.
func (a *GeminiAdapter) Model() string {
	return a.model
}

// Complete generates one reply.
func (a *GeminiAdapter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(
		ctx,
		a.model,
		[]*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)},
		buildGenerateConfig(req),
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (a *GeminiAdapter) getClient(ctx context.Context) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}
	if a.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:  a.apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			Timeout: genai.Ptr(a.timeout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	a.client = client
	return client, nil
}

func buildGenerateConfig(req ports.CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return config
}

// extractText joins the non-thought text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
