package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
	"github.com/0xcro3dile/pulsevents/internal/vocabulary"
)

// Verdict words the classifier model is asked to start its reply with.
const (
	verdictRAG    = "RAG"
	verdictDirect = "DIRECT"
)

const (
	reasonGreeting  = "general/greeting"
	reasonAmbiguous = "ambiguous, defaulting to retrieval"
)

// GateOptions configures the model fallback tier.
type GateOptions struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration // zero means no extra deadline
}

// Gate is the three-tier retrieval gate: greetings, keywords, then one model call.
// Classify never fails; every tier-3 failure degrades to retrieval.
type Gate struct {
	vocab  *vocabulary.Vocabulary
	llm    ports.LLMService
	opts   GateOptions
	logger *slog.Logger
}

// NewGate creates a Gate. llm may be nil, in which case undecided utterances fall back to retrieval.
func NewGate(vocab *vocabulary.Vocabulary, llm ports.LLMService, opts GateOptions, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{vocab: vocab, llm: llm, opts: opts, logger: logger}
}

// Classify decides whether utterance needs retrieval.
func (g *Gate) Classify(ctx context.Context, utterance string) entities.ClassificationResult {
	var result entities.ClassificationResult
	if local, decided := decide(g.vocab, utterance); decided {
		result = local
	} else {
		result = g.classifyWithModel(ctx, utterance)
	}

	g.logger.Debug("gate_decision",
		"tier", result.Tier.String(),
		"needs_retrieval", result.NeedsRetrieval,
		"confidence", result.Confidence,
		"reason", result.Reason,
	)
	return result
}

// decide runs the two local tiers. decided is false when neither fires.
func decide(vocab *vocabulary.Vocabulary, utterance string) (result entities.ClassificationResult, decided bool) {
	if vocab == nil {
		return entities.ClassificationResult{}, false
	}
	if vocab.IsGreeting(utterance) {
		return entities.ClassificationResult{
			NeedsRetrieval: false,
			Confidence:     0.95,
			Reason:         reasonGreeting,
			Tier:           entities.TierGreeting,
		}, true
	}
	if found := vocab.MatchKeywords(utterance); len(found) > 0 {
		return entities.ClassificationResult{
			NeedsRetrieval: true,
			Confidence:     0.9,
			Reason:         "matched keywords: " + strings.Join(found, ", "),
			Tier:           entities.TierKeyword,
			Keywords:       found,
		}, true
	}
	return entities.ClassificationResult{}, false
}

func (g *Gate) classifyWithModel(ctx context.Context, utterance string) (result entities.ClassificationResult) {
	if g.llm == nil {
		return classifierFailure(fmt.Errorf("no classifier configured"))
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("gate_model_panic", "panic", r)
			result = classifierFailure(fmt.Errorf("panic: %v", r))
		}
	}()

	callCtx := ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	reply, err := g.llm.Complete(callCtx, ports.CompletionRequest{
		SystemPrompt: g.opts.SystemPrompt,
		UserPrompt:   utterance,
		Temperature:  g.opts.Temperature,
		MaxTokens:    g.opts.MaxTokens,
	})
	if errors.Is(err, ports.ErrEmptyResponse) {
		// A blank verdict is unusable text, not a failed call.
		return interpretReply("")
	}
	if err != nil {
		g.logger.Warn("gate_model_failed", "err", err)
		return classifierFailure(err)
	}
	return interpretReply(reply)
}

// interpretReply maps the classifier model's reply onto a verdict.
func interpretReply(reply string) entities.ClassificationResult {
	trimmed := strings.TrimSpace(reply)

	if rest, ok := cutVerdict(trimmed, verdictRAG); ok {
		return entities.ClassificationResult{
			NeedsRetrieval: true,
			Confidence:     0.85,
			Reason:         explanation(rest, verdictRAG),
			Tier:           entities.TierModel,
		}
	}
	if rest, ok := cutVerdict(trimmed, verdictDirect); ok {
		return entities.ClassificationResult{
			NeedsRetrieval: false,
			Confidence:     0.85,
			Reason:         explanation(rest, verdictDirect),
			Tier:           entities.TierModel,
		}
	}
	return entities.ClassificationResult{
		NeedsRetrieval: true,
		Confidence:     0.6,
		Reason:         reasonAmbiguous,
		Tier:           entities.TierFallback,
	}
}

func cutVerdict(reply, word string) (string, bool) {
	if len(reply) < len(word) || !strings.EqualFold(reply[:len(word)], word) {
		return "", false
	}
	return reply[len(word):], true
}

func explanation(rest, word string) string {
	rest = strings.TrimSpace(strings.TrimLeft(rest, " \t\r\n-:"))
	if rest == "" {
		return word
	}
	return rest
}

func classifierFailure(err error) entities.ClassificationResult {
	return entities.ClassificationResult{
		NeedsRetrieval: true,
		Confidence:     0.5,
		Reason:         "classifier error: " + err.Error(),
		Tier:           entities.TierFallback,
	}
}
