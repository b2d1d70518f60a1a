// Package history stores conversation history per session, in valkey or in process memory.
package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

// Options configures the history store.
type Options struct {
	URL          string // redis:// or rediss:// URL; used when Enabled
	Enabled      bool
	DisableCache bool // client-side caching off (required by miniredis)
	TTL          time.Duration
	MaxMessages  int
}

// New returns a valkey store when enabled, otherwise an in-memory store.
func New(opts Options, logger *slog.Logger) (ports.HistoryStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.Enabled {
		logger.Info("history_store_memory")
		return NewMemoryStore(opts.TTL, opts.MaxMessages), nil
	}

	store, err := NewValkeyStore(opts)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}
	logger.Info("history_store_valkey", "url", redactURL(opts.URL))
	return store, nil
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("pulsevents:session:%s:history", sessionID)
}
