package main

import (
	"context"
	"fmt"

	"github.com/0xcro3dile/pulsevents/internal/adapters/embedding"
	"github.com/0xcro3dile/pulsevents/internal/adapters/eventstore"
	"github.com/0xcro3dile/pulsevents/internal/adapters/llm"
	"github.com/0xcro3dile/pulsevents/internal/adapters/vectordb"
	"github.com/0xcro3dile/pulsevents/internal/config"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
	"github.com/0xcro3dile/pulsevents/internal/domain/usecases"
	"github.com/0xcro3dile/pulsevents/internal/prompt"
	"github.com/0xcro3dile/pulsevents/internal/vocabulary"
)

// prompts holds the rendered prompt texts for the configured commune.
type prompts struct {
	classifierSystem string
	answerTemplate   string
	welcome          string
}

func loadPrompts(city string) (prompts, error) {
	bundle, err := prompt.Default()
	if err != nil {
		return prompts{}, err
	}
	values := map[string]string{"city": city}

	system, err := bundle.Render(prompt.Classifier, "system", values)
	if err != nil {
		return prompts{}, err
	}
	// {events} and {question} are filled per turn by the composer.
	template, err := bundle.Field(prompt.Answer, "template")
	if err != nil {
		return prompts{}, err
	}
	welcome, err := bundle.Render(prompt.Answer, "welcome", values)
	if err != nil {
		return prompts{}, err
	}
	return prompts{classifierSystem: system, answerTemplate: template, welcome: welcome}, nil
}

func newLLM(cfg *config.Config) ports.LLMService {
	if cfg.LLM.Provider == config.ProviderGemini {
		return llm.NewGeminiAdapter(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.LLM.Timeout())
	}
	return llm.NewMistralAdapter(cfg.Mistral.BaseURL, cfg.Mistral.APIKey, cfg.Mistral.ChatModel, cfg.LLM.Timeout())
}

func newEmbedder(cfg *config.Config) ports.EmbeddingService {
	return embedding.NewMistralAdapter(cfg.Mistral.BaseURL, cfg.Mistral.APIKey, cfg.Mistral.EmbedModel, cfg.LLM.Timeout(), logger)
}

func newEventTable(cfg *config.Config) *eventstore.CSVStore {
	return eventstore.NewCSVStore(cfg.Storage.EventsCSV)
}

func newIngest(cfg *config.Config, store ports.VectorStore) *usecases.IngestUseCase {
	return usecases.NewIngestUseCase(newEmbedder(cfg), store, cfg.Storage.EmbedBatchSize, cfg.Storage.EmbedConcurrency, logger)
}

func newGate(cfg *config.Config, model ports.LLMService, p prompts) (*usecases.Gate, error) {
	vocab, err := vocabulary.Load(cfg.Gate.VocabularyFile, cfg.Gate.CommuneName)
	if err != nil {
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}
	return usecases.NewGate(vocab, model, usecases.GateOptions{
		SystemPrompt: p.classifierSystem,
		Temperature:  cfg.Gate.Temperature,
		MaxTokens:    cfg.Gate.MaxTokens,
		Timeout:      cfg.Gate.ClassifierTimeout(),
	}, logger), nil
}

func newComposer(cfg *config.Config, store ports.VectorStore, model ports.LLMService, p prompts) *usecases.Composer {
	retriever := usecases.NewRetriever(newEmbedder(cfg), store, cfg.Answer.TopK)
	return usecases.NewComposer(retriever, model, usecases.ComposerOptions{
		City:        cfg.Gate.CommuneName,
		Template:    p.answerTemplate,
		TopK:        cfg.Answer.TopK,
		Temperature: cfg.Answer.Temperature,
		MaxTokens:   cfg.Answer.MaxTokens,
	}, logger)
}

// openIndex opens the persistent index, or an in-memory one filled from the event table when ephemeral.
func openIndex(ctx context.Context, cfg *config.Config, ephemeral bool) (ports.VectorStore, func(), error) {
	if ephemeral {
		store := vectordb.NewInMemoryStore()
		table := newEventTable(cfg)
		n, err := newIngest(cfg, store).Reindex(ctx, table)
		if err != nil {
			return nil, nil, fmt.Errorf("indexing %s: %w", table.Path(), err)
		}
		logger.Info("ephemeral_index_ready", "documents", n)
		return store, func() {}, nil
	}

	store, err := vectordb.NewSQLiteStore(cfg.Storage.IndexDir)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("index_close_failed", "err", err)
		}
	}
	if _, err := usecases.CheckIndex(ctx, store); err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}
