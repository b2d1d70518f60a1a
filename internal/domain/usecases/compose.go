package usecases

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
	"github.com/0xcro3dile/pulsevents/internal/prompt"
)

const notAvailable = "N/A"

// Field extractors for the pipe layout written by entities.Event.IndexText.
// Each value runs up to the next label, so values may contain "|".
var (
	titlePattern       = regexp.MustCompile(`(?s)Titre:\s*(.*?)\s*(?:\|\s*Adresse:|$)`)
	addressPattern     = regexp.MustCompile(`(?s)Adresse:\s*(.*?)\s*(?:\|\s*Date:|$)`)
	datePattern        = regexp.MustCompile(`(?s)Date:\s*(.*?)\s*(?:\|\s*URL:|$)`)
	urlPattern         = regexp.MustCompile(`(?s)URL:\s*(.*?)\s*(?:\|\s*Description:|$)`)
	descriptionPattern = regexp.MustCompile(`(?s)Description:\s*(.*)$`)
)

// ComposerOptions configures prompt assembly and generation.
type ComposerOptions struct {
	City        string
	Template    string // answer template with {city}, {events} and {question}
	TopK        int
	Temperature float64
	MaxTokens   int
}

// Composer builds the grounded prompt and forwards it to the generation service.
type Composer struct {
	index  ports.DocumentIndex
	llm    ports.LLMService
	opts   ComposerOptions
	logger *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(index ports.DocumentIndex, llm ports.LLMService, opts ComposerOptions, logger *slog.Logger) *Composer {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{index: index, llm: llm, opts: opts, logger: logger}
}

// Answer produces the assistant reply for one utterance. Failures become user-visible text.
func (c *Composer) Answer(ctx context.Context, utterance string, verdict entities.ClassificationResult) entities.ChatResponse {
	resp := entities.ChatResponse{Classification: verdict}

	userPrompt := utterance
	if verdict.NeedsRetrieval {
		docs, err := c.index.Search(ctx, utterance, c.opts.TopK)
		if err != nil {
			c.logger.Error("composer_search_failed", "err", err)
			resp.Answer = "Erreur: recherche indisponible: " + err.Error()
			return resp
		}
		resp.Sources = docs

		rendered, err := prompt.FormatTemplate(c.opts.Template, map[string]string{
			"city":     c.opts.City,
			"events":   FormatEvents(docs),
			"question": utterance,
		})
		if err != nil {
			c.logger.Error("composer_template_failed", "err", err)
			resp.Answer = "Erreur: " + err.Error()
			return resp
		}
		userPrompt = rendered
	}

	answer, err := c.llm.Complete(ctx, ports.CompletionRequest{
		UserPrompt:  userPrompt,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		c.logger.Error("composer_generation_failed", "err", err)
		resp.Answer = "Erreur: " + err.Error()
		return resp
	}

	resp.Answer = answer
	return resp
}

// ParseEventDetails recovers the fields of an indexed document.
func ParseEventDetails(text string) entities.EventDetails {
	return entities.EventDetails{
		Title:       firstGroup(titlePattern, text),
		Address:     firstGroup(addressPattern, text),
		Date:        firstGroup(datePattern, text),
		URL:         firstGroup(urlPattern, text),
		Description: firstGroup(descriptionPattern, text),
	}
}

// FormatEvents renders documents as markdown bullets. Documents without a title are skipped.
func FormatEvents(docs []entities.RetrievedDocument) string {
	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		details := ParseEventDetails(doc.Text)
		if details.Title == "" {
			continue
		}
		blocks = append(blocks, formatEvent(details))
	}
	return strings.Join(blocks, "\n\n")
}

func formatEvent(d entities.EventDetails) string {
	var sb strings.Builder
	sb.WriteString("- **")
	sb.WriteString(d.Title)
	sb.WriteString("**\n  - **Lieu** : ")
	sb.WriteString(orNA(d.Address))
	sb.WriteString("\n  - **Date** : ")
	sb.WriteString(orNA(d.Date))
	sb.WriteString("\n  \n  Pour plus d'informations : ")
	sb.WriteString(orNA(d.URL))
	return sb.String()
}

func firstGroup(pattern *regexp.Regexp, text string) string {
	match := pattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func orNA(value string) string {
	if value == "" {
		return notAvailable
	}
	return value
}
