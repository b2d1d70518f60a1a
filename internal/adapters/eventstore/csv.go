// Package eventstore persists the flat event table as CSV.
package eventstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
)

// Header is the column order written by Write.
var Header = []string{
	"uid",
	"title_fr",
	"description_fr",
	"location_city",
	"location_name",
	"location_address",
	"firstdate_begin",
	"firstdate_end",
	"daterange_fr",
	"canonicalurl",
	"text_for_rag",
}

// Column aliases accepted by Read, first match wins.
var columnAliases = map[string][]string{
	"uid":         {"uid", "id"},
	"title":       {"title_fr", "title"},
	"description": {"description_fr", "description"},
	"city":        {"location_city", "city"},
	"venue":       {"location_name", "venue_name"},
	"address":     {"location_address", "address"},
	"start":       {"firstdate_begin", "start_date"},
	"end":         {"firstdate_end", "end_date"},
	"dateRange":   {"daterange_fr", "date_range_text"},
	"url":         {"canonicalurl", "canonical_url"},
}

// ErrNoHeader is returned when the file is empty.
var ErrNoHeader = errors.New("csv has no header row")

// CSVStore implements ports.EventStore on a single CSV file.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store for path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the CSV location.
func (s *CSVStore) Path() string {
	return s.path
}

// Name is the file base name, used as the source tag of indexed documents.
func (s *CSVStore) Name() string {
	return filepath.Base(s.path)
}

// Write replaces the file atomically (temp file + rename).
func (s *CSVStore) Write(ctx context.Context, events []entities.Event) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating csv directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".events-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		tmp.Close()
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range events {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return err
		}
		row := []string{
			e.UID,
			e.Title,
			e.Description,
			e.City,
			e.VenueName,
			e.Address,
			e.StartDate,
			e.EndDate,
			e.DateRangeText,
			e.CanonicalURL,
			e.RAGText(),
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing csv: %w", err)
	}
	return nil
}

// Read loads every row. Columns are looked up by header name, so extra or reordered columns are fine.
func (s *CSVStore) Read(ctx context.Context) ([]entities.Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	columns := resolveColumns(header)

	var events []entities.Event
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		get := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return clean(row[idx])
		}
		events = append(events, entities.Event{
			UID:           get("uid"),
			Title:         get("title"),
			Description:   get("description"),
			City:          get("city"),
			VenueName:     get("venue"),
			Address:       get("address"),
			StartDate:     get("start"),
			EndDate:       get("end"),
			DateRangeText: get("dateRange"),
			CanonicalURL:  get("url"),
		})
	}
	return events, nil
}

func resolveColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	columns := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				columns[field] = i
				break
			}
		}
	}
	return columns
}

// clean trims and drops the "nan" placeholder dataframe exports leave for missing cells.
func clean(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "nan") {
		return ""
	}
	return value
}
