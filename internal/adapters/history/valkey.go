package history

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
)

// ValkeyStore keeps each session as a JSON-per-element list with a sliding TTL.
type ValkeyStore struct {
	client      valkey.Client
	ttl         time.Duration
	maxMessages int
}

// NewValkeyStore connects to the server named by opts.URL.
func NewValkeyStore(opts Options) (*ValkeyStore, error) {
	clientOpt, err := valkey.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse history store url: %w", err)
	}
	clientOpt.DisableCache = opts.DisableCache

	client, err := valkey.NewClient(clientOpt)
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ValkeyStore{client: client, ttl: ttl, maxMessages: opts.MaxMessages}, nil
}

// Append pushes messages, refreshes the TTL and trims to the newest maxMessages in one round trip.
func (s *ValkeyStore) Append(ctx context.Context, sessionID string, messages ...entities.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	key := historyKey(sessionID)

	elements := make([]string, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal history entry: %w", err)
		}
		elements = append(elements, string(data))
	}

	cmds := make([]valkey.Completed, 0, 3)
	cmds = append(cmds, s.client.B().Rpush().Key(key).Element(elements...).Build())
	cmds = append(cmds, s.client.B().Expire().Key(key).Seconds(int64(s.ttl.Seconds())).Build())
	if s.maxMessages > 0 {
		cmds = append(cmds, s.client.B().Ltrim().Key(key).Start(int64(-s.maxMessages)).Stop(-1).Build())
	}

	for i, result := range s.client.DoMulti(ctx, cmds...) {
		if err := result.Error(); err != nil {
			return fmt.Errorf("append history (cmd %d): %w", i, err)
		}
	}
	return nil
}

// History returns the session's messages, oldest first. Undecodable entries are skipped.
func (s *ValkeyStore) History(ctx context.Context, sessionID string) ([]entities.ChatMessage, error) {
	cmd := s.client.B().Lrange().Key(historyKey(sessionID)).Start(0).Stop(-1).Build()
	items, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get history: %w", err)
	}

	messages := make([]entities.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg entities.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Reset deletes the session's history.
func (s *ValkeyStore) Reset(ctx context.Context, sessionID string) error {
	cmd := s.client.B().Del().Key(historyKey(sessionID)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil && !valkey.IsValkeyNil(err) {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}

// Close closes the valkey connection.
func (s *ValkeyStore) Close() {
	if s != nil && s.client != nil {
		s.client.Close()
	}
}

// redactURL hides the password of a store URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}
