// Package opendata fetches municipal events from the OpenDataSoft records API (v1).
package opendata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/0xcro3dile/pulsevents/internal/adapters/htmltext"
	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

// Options configures the feed client.
type Options struct {
	BaseURL           string
	Dataset           string
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client implements ports.EventSource.
type Client struct {
	baseURL    string
	dataset    string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a feed client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://public.opendatasoft.com/api/records/1.0/search/"
	}
	if opts.Dataset == "" {
		opts.Dataset = "evenements-publics-openagenda"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    opts.BaseURL,
		dataset:    opts.Dataset,
		pageSize:   opts.PageSize,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:     logger,
	}
}

type searchResponse struct {
	NHits   int      `json:"nhits"`
	Records []record `json:"records"`
}

type record struct {
	RecordID string       `json:"recordid"`
	Fields   recordFields `json:"fields"`
}

type recordFields struct {
	UID             flexString `json:"uid"`
	TitleFR         string     `json:"title_fr"`
	DescriptionFR   string     `json:"description_fr"`
	LocationCity    string     `json:"location_city"`
	LocationName    string     `json:"location_name"`
	LocationAddress string     `json:"location_address"`
	FirstDateBegin  string     `json:"firstdate_begin"`
	FirstDateEnd    string     `json:"firstdate_end"`
	DateRangeFR     string     `json:"daterange_fr"`
	CanonicalURL    string     `json:"canonicalurl"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

// Fetch pages through every record matching the query until an empty page or nhits is reached.
func (c *Client) Fetch(ctx context.Context, query ports.FeedQuery) ([]entities.Event, error) {
	var events []entities.Event

	for start := 0; ; start += c.pageSize {
		page, err := c.fetchPage(ctx, query, start)
		if err != nil {
			return nil, err
		}
		if len(page.Records) == 0 {
			break
		}

		for _, rec := range page.Records {
			events = append(events, toEvent(rec))
		}
		c.logger.Info("feed_page_fetched", "start", start, "records", len(page.Records), "total", len(events), "nhits", page.NHits)

		if page.NHits > 0 && len(events) >= page.NHits {
			break
		}
	}
	return events, nil
}

func (c *Client) fetchPage(ctx context.Context, query ports.FeedQuery, start int) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	params := url.Values{}
	params.Set("dataset", c.dataset)
	params.Set("rows", strconv.Itoa(c.pageSize))
	params.Set("start", strconv.Itoa(start))
	if query.City != "" {
		params.Set("refine.location_city", query.City)
	}
	if query.Year != "" {
		params.Set("refine.firstdate_begin", query.Year)
	}

	reqURL := c.baseURL
	if strings.Contains(reqURL, "?") {
		reqURL += "&" + params.Encode()
	} else {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding page at %d: %w", start, err)
	}
	return &page, nil
}

func toEvent(rec record) entities.Event {
	f := rec.Fields
	uid := strings.TrimSpace(string(f.UID))
	if uid == "" {
		uid = rec.RecordID
	}
	return entities.Event{
		UID:           uid,
		Title:         strings.TrimSpace(f.TitleFR),
		Description:   htmltext.Strip(f.DescriptionFR),
		City:          strings.TrimSpace(f.LocationCity),
		VenueName:     strings.TrimSpace(f.LocationName),
		Address:       strings.TrimSpace(f.LocationAddress),
		StartDate:     f.FirstDateBegin,
		EndDate:       f.FirstDateEnd,
		DateRangeText: strings.TrimSpace(f.DateRangeFR),
		CanonicalURL:  strings.TrimSpace(f.CanonicalURL),
	}
}
