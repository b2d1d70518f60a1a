// Package entities contains core business entities.
// These are pure domain objects with no knowledge of storage, transport or models.
package entities

import (
	"fmt"
	"strings"
	"time"
)

// Event is one normalized row of the municipal event table.
type Event struct {
	UID           string
	Title         string
	Description   string // HTML-stripped
	City          string
	VenueName     string
	Address       string
	StartDate     string
	EndDate       string
	DateRangeText string
	CanonicalURL  string
}

// IndexText renders the pipe-delimited layout that is embedded and later parsed back by the composer.
// Address falls back to the city and the date range to the start date.
func (e Event) IndexText() string {
	address := e.Address
	if address == "" {
		address = e.City
	}
	date := e.DateRangeText
	if date == "" {
		date = e.StartDate
	}
	return fmt.Sprintf("Titre: %s | Adresse: %s | Date: %s | URL: %s | Description: %s",
		e.Title, address, date, e.CanonicalURL, e.Description)
}

// RAGText is the flat-table text column written next to the raw fields.
func (e Event) RAGText() string {
	return strings.Join([]string{e.Title, e.Description, e.Address, e.CanonicalURL, e.DateRangeText}, " | ")
}

// EventDetails holds the fields recovered from an indexed document's pipe layout.
type EventDetails struct {
	Title       string
	Address     string
	Date        string
	URL         string
	Description string
}

// Chunk is the unit stored in the vector index. Events are indexed whole, one chunk per event.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Source     string    // Origin tag, e.g. the CSV file name
	Embedding  []float32 // Populated by the embedding adapter
}

// QueryResult is a stored chunk with its similarity to the query.
type QueryResult struct {
	Chunk Chunk
	Score float64
}

// RetrievedDocument is what the embedding index hands to the composer.
type RetrievedDocument struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Tier identifies the stage of the classification cascade that produced a verdict.
type Tier int

const (
	TierGreeting Tier = iota + 1
	TierKeyword
	TierModel
	TierFallback // model reply unusable or model call failed
)

func (t Tier) String() string {
	switch t {
	case TierGreeting:
		return "greeting"
	case TierKeyword:
		return "keyword"
	case TierModel:
		return "model"
	case TierFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ClassificationResult decides whether an utterance needs retrieval before generation.
// Produced once per utterance and never mutated.
type ClassificationResult struct {
	NeedsRetrieval bool     `json:"needs_retrieval"`
	Confidence     float64  `json:"confidence"`
	Reason         string   `json:"reason"`
	Tier           Tier     `json:"-"`
	Keywords       []string `json:"keywords,omitempty"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is one user turn.
type ChatRequest struct {
	SessionID string
	Query     string
}

// ChatResponse is the assistant's reply with the verdict and the documents it was grounded on.
type ChatResponse struct {
	SessionID      string
	Answer         string
	Classification ClassificationResult
	Sources        []RetrievedDocument
}
