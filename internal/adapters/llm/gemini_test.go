package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

func TestGeminiAdapter_MissingKey(t *testing.T) {
	adapter := NewGeminiAdapter("", "", 0)
	assert.Equal(t, "gemini-2.5-flash", adapter.Model())

	_, err := adapter.Complete(context.Background(), ports.CompletionRequest{UserPrompt: "hi"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestBuildGenerateConfig(t *testing.T) {
	config := buildGenerateConfig(ports.CompletionRequest{
		SystemPrompt: "classify",
		Temperature:  0.1,
		MaxTokens:    50,
	})

	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.1, float64(*config.Temperature), 1e-6)
	assert.Equal(t, int32(50), config.MaxOutputTokens)
	require.NotNil(t, config.SystemInstruction)
	require.Len(t, config.SystemInstruction.Parts, 1)
	assert.Equal(t, "classify", config.SystemInstruction.Parts[0].Text)

	bare := buildGenerateConfig(ports.CompletionRequest{})
	assert.Nil(t, bare.SystemInstruction)
	assert.Zero(t, bare.MaxOutputTokens)
}

func TestExtractText(t *testing.T) {
	assert.Empty(t, extractText(nil))
	assert.Empty(t, extractText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: "DIRECT "},
				nil,
				{Text: "salutation"},
			}},
		}},
	}
	assert.Equal(t, "DIRECT salutation", extractText(resp))
}
