package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/pulsevents/internal/adapters/filewatcher"
	"github.com/0xcro3dile/pulsevents/internal/adapters/history"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
	"github.com/0xcro3dile/pulsevents/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/pulsevents/internal/infrastructure/http"
)

var (
	reindexDebounce = 2 * time.Second

	serveWatch     bool
	serveEphemeral bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Serve the chat page and JSON API. The vector index must already be built (see reindex).
With --watch the index is rebuilt whenever the event table changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireCredentials(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := loadPrompts(cfg.Gate.CommuneName)
		if err != nil {
			return err
		}
		store, closeIndex, err := openIndex(ctx, cfg, serveEphemeral)
		if err != nil {
			return err
		}
		defer closeIndex()

		historyStore, err := history.New(history.Options{
			URL:         cfg.History.StoreURL,
			Enabled:     cfg.History.Enabled,
			TTL:         cfg.History.TTL(),
			MaxMessages: cfg.History.MaxMessages,
		}, logger)
		if err != nil {
			return err
		}
		defer historyStore.Close()

		model := newLLM(cfg)
		gate, err := newGate(cfg, model, p)
		if err != nil {
			return err
		}
		conv := usecases.NewConversation(gate, newComposer(cfg, store, model, p), historyStore, p.welcome, logger)

		if serveWatch {
			stopWatch, err := watchEventTable(ctx, store)
			if err != nil {
				return err
			}
			// Runs before closeIndex: no reindex may touch a closed store.
			defer stopWatch()
		}

		setGinMode(cfg.Logging.Level)
		server := httpserver.NewServer(conv, gate, store, httpserver.Options{
			Addr: cfg.HTTP.Addr(),
			City: cfg.Gate.CommuneName,
		}, logger)
		return server.Start(ctx)
	},
}

// watchEventTable reindexes store in the background whenever the CSV table is rewritten.
// The returned func stops the watcher and blocks until any running reindex has finished.
func watchEventTable(ctx context.Context, store ports.VectorStore) (func(), error) {
	table := newEventTable(cfg)
	watcher, err := filewatcher.NewFSNotifyWatcher([]string{filepath.Base(table.Path())}, logger)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	events, err := watcher.Watch(watchCtx, filepath.Dir(table.Path()))
	if err != nil {
		cancel()
		_ = watcher.Stop()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		newIngest(cfg, store).ReindexOnChange(watchCtx, table, events, reindexDebounce)
	}()
	logger.Info("watching_event_table", "path", table.Path())

	return func() {
		cancel()
		<-done
		if err := watcher.Stop(); err != nil {
			logger.Warn("file_watcher_stop_failed", "err", err)
		}
	}, nil
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Rebuild the index when the event table changes")
	serveCmd.Flags().BoolVar(&serveEphemeral, "ephemeral", false, "Index the event table in memory at startup")
}
