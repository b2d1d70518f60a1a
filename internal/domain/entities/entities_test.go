package entities

import (
	"strings"
	"testing"
)

func TestEvent_IndexText(t *testing.T) {
	event := Event{
		UID:           "1",
		Title:         "Concert A",
		Description:   "Super concert",
		Address:       "Place de la Comédie",
		DateRangeText: "10 mai 2025",
		CanonicalURL:  "https://example.org/a",
	}

	want := "Titre: Concert A | Adresse: Place de la Comédie | Date: 10 mai 2025 | URL: https://example.org/a | Description: Super concert"
	if got := event.IndexText(); got != want {
		t.Errorf("unexpected index text:\n got: %s\nwant: %s", got, want)
	}
}

func TestEvent_IndexTextFallbacks(t *testing.T) {
	event := Event{Title: "Festival B", City: "Montpellier", StartDate: "2025-07-20"}

	text := event.IndexText()
	if !strings.Contains(text, "Adresse: Montpellier") {
		t.Errorf("address should fall back to city: %s", text)
	}
	if !strings.Contains(text, "Date: 2025-07-20") {
		t.Errorf("date should fall back to start date: %s", text)
	}
}

func TestEvent_RAGText(t *testing.T) {
	event := Event{Title: "Exposition C", Description: "Expo d'art"}
	text := event.RAGText()

	if !strings.Contains(text, "|") {
		t.Error("rag text should be pipe delimited")
	}
	if !strings.HasPrefix(text, "Exposition C | Expo d'art") {
		t.Errorf("unexpected rag text: %s", text)
	}
}

func TestTier_String(t *testing.T) {
	cases := map[Tier]string{
		TierGreeting: "greeting",
		TierKeyword:  "keyword",
		TierModel:    "model",
		TierFallback: "fallback",
		Tier(0):      "unknown",
	}
	for tier, want := range cases {
		if tier.String() != want {
			t.Errorf("Tier(%d).String() = %s, want %s", tier, tier.String(), want)
		}
	}
}

func TestChatResponse_WithSources(t *testing.T) {
	resp := ChatResponse{
		Answer: "Voici les concerts",
		Sources: []RetrievedDocument{
			{Text: "Titre: X", Source: "events.csv", Score: 0.9},
		},
	}

	if resp.Answer == "" {
		t.Error("answer should not be empty")
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Source != "events.csv" {
		t.Error("sources not set correctly")
	}
}
