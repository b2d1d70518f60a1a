// Package http serves the chat assistant over HTTP.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
	"github.com/0xcro3dile/pulsevents/internal/domain/usecases"
	"github.com/0xcro3dile/pulsevents/internal/logging"
)

const (
	healthPath      = "/api/health"
	shutdownTimeout = 5 * time.Second
)

// IndexCounter reports how many documents the embedding index holds.
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}

// Options configures the server.
type Options struct {
	Addr string
	City string
}

// Server is the HTTP server for the chat API and page.
type Server struct {
	conversation *usecases.Conversation
	gate         ports.Classifier
	index        IndexCounter
	city         string
	addr         string
	logger       *slog.Logger
	engine       *gin.Engine
}

// NewServer creates a new HTTP server and registers its routes.
func NewServer(
	conversation *usecases.Conversation,
	gate ports.Classifier,
	index IndexCounter,
	opts Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		conversation: conversation,
		gate:         gate,
		index:        index,
		city:         opts.City,
		addr:         opts.Addr,
		logger:       logger,
	}

	engine := gin.New()
	engine.Use(RequestID(), RequestLogger(logger), gin.Recovery())
	engine.SetHTMLTemplate(template.Must(template.New("index").Parse(indexPage)))
	s.registerRoutes(engine)
	s.engine = engine
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/", s.handleIndex)

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/chat", s.handleChat)
	api.POST("/classify", s.handleClassify)
	api.GET("/sessions/:id/history", s.handleHistory)
	api.DELETE("/sessions/:id", s.handleReset)
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
	}

	s.logger.Info("server_starting", "addr", s.addr, "commune", s.city)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server_shutdown_failed", "err", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.logger.Info("server_stopped")
	return nil
}
