package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

var (
	// ErrEmptyUtterance is returned for blank user input; nothing is classified.
	ErrEmptyUtterance = errors.New("empty utterance")
	// ErrMissingSession is returned when a turn has no session id.
	ErrMissingSession = errors.New("missing session id")
)

// Conversation runs chat turns: gate, composer, history. Turns of one session never overlap.
type Conversation struct {
	gate     ports.Classifier
	composer *Composer
	history  ports.HistoryStore
	welcome  string
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewConversation creates a Conversation. welcome seeds a session on Reset.
func NewConversation(
	gate ports.Classifier,
	composer *Composer,
	history ports.HistoryStore,
	welcome string,
	logger *slog.Logger,
) *Conversation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conversation{
		gate:     gate,
		composer: composer,
		history:  history,
		welcome:  welcome,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*sessionLock),
	}
}

// Turn classifies and answers one utterance. Only input validation errors are returned;
// classifier and generation failures are folded into the response.
func (c *Conversation) Turn(ctx context.Context, req entities.ChatRequest) (entities.ChatResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return entities.ChatResponse{}, ErrMissingSession
	}
	if strings.TrimSpace(req.Query) == "" {
		return entities.ChatResponse{}, ErrEmptyUtterance
	}

	unlock := c.lockSession(req.SessionID)
	defer unlock()

	c.record(ctx, req.SessionID, entities.RoleUser, req.Query)

	verdict := c.gate.Classify(ctx, req.Query)
	resp := c.composer.Answer(ctx, req.Query, verdict)
	resp.SessionID = req.SessionID

	c.record(ctx, req.SessionID, entities.RoleAssistant, resp.Answer)

	c.logger.Info("chat_turn",
		"session_id", req.SessionID,
		"tier", verdict.Tier.String(),
		"needs_retrieval", verdict.NeedsRetrieval,
		"sources", len(resp.Sources),
	)
	return resp, nil
}

// History returns the session's messages, oldest first.
func (c *Conversation) History(ctx context.Context, sessionID string) ([]entities.ChatMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrMissingSession
	}
	return c.history.History(ctx, sessionID)
}

// Reset clears the session and seeds the welcome message.
func (c *Conversation) Reset(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrMissingSession
	}

	unlock := c.lockSession(sessionID)
	defer unlock()

	if err := c.history.Reset(ctx, sessionID); err != nil {
		return err
	}
	if c.welcome == "" {
		return nil
	}
	return c.history.Append(ctx, sessionID, entities.ChatMessage{
		Role:      entities.RoleAssistant,
		Content:   c.welcome,
		Timestamp: c.now(),
	})
}

// record appends to history. A failing history store does not abort the turn.
func (c *Conversation) record(ctx context.Context, sessionID, role, content string) {
	err := c.history.Append(ctx, sessionID, entities.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	})
	if err != nil {
		c.logger.Warn("history_append_failed", "session_id", sessionID, "role", role, "err", err)
	}
}

func (c *Conversation) lockSession(sessionID string) func() {
	c.mu.Lock()
	lock, ok := c.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		c.locks[sessionID] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		c.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(c.locks, sessionID)
		}
		c.mu.Unlock()
	}
}
