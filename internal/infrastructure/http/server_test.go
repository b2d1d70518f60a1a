package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/pulsevents/internal/adapters/history"
	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
	"github.com/0xcro3dile/pulsevents/internal/domain/usecases"
	"github.com/0xcro3dile/pulsevents/internal/logging"
	"github.com/0xcro3dile/pulsevents/internal/vocabulary"
)

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	return s.reply, s.err
}

type stubIndex struct {
	docs []entities.RetrievedDocument
}

func (s *stubIndex) Search(ctx context.Context, query string, k int) ([]entities.RetrievedDocument, error) {
	return s.docs, nil
}

type stubCounter struct {
	count int
	err   error
}

func (s *stubCounter) Count(ctx context.Context) (int, error) {
	return s.count, s.err
}

func newTestServer(t *testing.T, counter IndexCounter) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	vocab, err := vocabulary.Default("Montpellier")
	require.NoError(t, err)

	logger := logging.Discard()
	gate := usecases.NewGate(vocab, &stubLLM{reply: "DIRECT"}, usecases.GateOptions{}, logger)
	index := &stubIndex{docs: []entities.RetrievedDocument{
		{Text: "Titre: Concert A | Adresse: Place X | Date: 10 mai | URL: https://a | Description: Jazz", Source: "events.csv", Score: 0.9},
	}}
	composer := usecases.NewComposer(index, &stubLLM{reply: "Voici les concerts"}, usecases.ComposerOptions{
		City:     "Montpellier",
		Template: "{city}\n{events}\n{question}",
	}, logger)
	conv := usecases.NewConversation(gate, composer, history.NewMemoryStore(0, 50), "Bienvenue", logger)

	return NewServer(conv, gate, counter, Options{Addr: "127.0.0.1:0", City: "Montpellier"}, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)
	return resp
}

func TestChatKeywordTurn(t *testing.T) {
	s := newTestServer(t, &stubCounter{count: 1})

	resp := doJSON(t, s, http.MethodPost, "/api/chat", map[string]string{
		"session_id": "s1",
		"message":    "Quels concerts ce soir ?",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get(RequestIDHeader))

	var payload chatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, "s1", payload.SessionID)
	assert.Equal(t, "Voici les concerts", payload.Answer)
	assert.True(t, payload.Classification.NeedsRetrieval)
	assert.Equal(t, 0.9, payload.Classification.Confidence)
	assert.Equal(t, "keyword", payload.Classification.Tier)
	assert.Equal(t, []string{"concert"}, payload.Classification.Keywords)
	require.Len(t, payload.Sources, 1)
	assert.Equal(t, "events.csv", payload.Sources[0].Source)
}

func TestChatGeneratesSessionID(t *testing.T) {
	s := newTestServer(t, nil)

	resp := doJSON(t, s, http.MethodPost, "/api/chat", map[string]string{"message": "Bonjour"})
	require.Equal(t, http.StatusOK, resp.Code)

	var payload chatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Len(t, payload.SessionID, 36)
	assert.False(t, payload.Classification.NeedsRetrieval)
	assert.Equal(t, "general/greeting", payload.Classification.Reason)
	assert.NotNil(t, payload.Sources)
	assert.Empty(t, payload.Sources)
}

func TestChatRejectsBlankMessage(t *testing.T) {
	s := newTestServer(t, nil)

	for _, body := range []map[string]string{{"message": "   "}, {"session_id": "s1"}} {
		resp := doJSON(t, s, http.MethodPost, "/api/chat", body)
		require.Equal(t, http.StatusBadRequest, resp.Code)

		var payload errorResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
		assert.NotEmpty(t, payload.Error)
		assert.NotEmpty(t, payload.RequestID)
	}
}

func TestChatRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestClassifyModelTier(t *testing.T) {
	s := newTestServer(t, nil)

	resp := doJSON(t, s, http.MethodPost, "/api/classify", map[string]string{
		"message": "Qu'est-ce que l'intelligence artificielle ?",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var payload classificationPayload
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.False(t, payload.NeedsRetrieval)
	assert.Equal(t, 0.85, payload.Confidence)
	assert.Equal(t, "model", payload.Tier)
}

func TestHistoryAndReset(t *testing.T) {
	s := newTestServer(t, nil)

	resp := doJSON(t, s, http.MethodPost, "/api/chat", map[string]string{"session_id": "abc", "message": "Salut"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, s, http.MethodGet, "/api/sessions/abc/history", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var hist historyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &hist))
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, entities.RoleUser, hist.Messages[0].Role)
	assert.Equal(t, "Salut", hist.Messages[0].Content)
	assert.Equal(t, entities.RoleAssistant, hist.Messages[1].Role)

	resp = doJSON(t, s, http.MethodDelete, "/api/sessions/abc", nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = doJSON(t, s, http.MethodGet, "/api/sessions/abc/history", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &hist))
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, "Bienvenue", hist.Messages[0].Content)
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	s := newTestServer(t, nil)

	resp := doJSON(t, s, http.MethodGet, "/api/sessions/nobody/history", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"messages":[]`)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubCounter{count: 42})

	resp := doJSON(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload healthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, "Montpellier", payload.Commune)
	assert.Equal(t, 42, payload.Documents)
}

func TestHealthDegradedWhenIndexFails(t *testing.T) {
	s := newTestServer(t, &stubCounter{err: errors.New("db locked")})

	resp := doJSON(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "db locked")
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, nil)

	resp := doJSON(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Puls Events Montpellier")
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)

	assert.Equal(t, "req-123", resp.Header().Get(RequestIDHeader))
}
