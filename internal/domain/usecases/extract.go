package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

// ExtractUseCase pulls the commune's events from the open-data feed into the event table.
type ExtractUseCase struct {
	source ports.EventSource
	table  ports.EventStore
	logger *slog.Logger
}

// NewExtractUseCase creates an ExtractUseCase.
func NewExtractUseCase(source ports.EventSource, table ports.EventStore, logger *slog.Logger) *ExtractUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractUseCase{source: source, table: table, logger: logger}
}

// Extract fetches, filters to query.City and writes the table. Returns the number of rows written.
func (uc *ExtractUseCase) Extract(ctx context.Context, query ports.FeedQuery) (int, error) {
	fetched, err := uc.source.Fetch(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("fetching events: %w", err)
	}

	events := filterCity(fetched, query.City)
	if dropped := len(fetched) - len(events); dropped > 0 {
		uc.logger.Info("extract_dropped_other_cities", "dropped", dropped)
	}

	if err := uc.table.Write(ctx, events); err != nil {
		return 0, fmt.Errorf("writing events: %w", err)
	}

	uc.logger.Info("extract_done", "city", query.City, "year", query.Year, "events", len(events), "table", uc.table.Name())
	return len(events), nil
}

func filterCity(events []entities.Event, city string) []entities.Event {
	city = strings.TrimSpace(city)
	if city == "" {
		return events
	}
	kept := make([]entities.Event, 0, len(events))
	for _, event := range events {
		if strings.EqualFold(strings.TrimSpace(event.City), city) {
			kept = append(kept, event)
		}
	}
	return kept
}
