package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/api/handlers"
	"github.com/crammerlabs/crammer/internal/config"
	"github.com/crammerlabs/crammer/internal/core/ingestion_engine"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, ing ingestion_engine.Ingestor, tutor handlers.Tutor, log *zap.Logger) *Server {
	docHandler := handlers.NewDocumentHandler(ing, log)
	chatHandler := handlers.NewChatHandler(tutor, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Ingestion includes bounded verification polling, so the request budget
	// is minutes, not seconds.
	r.Use(middleware.Timeout(6 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/", handlers.Welcome)
	r.Get("/health", handlers.Health)
	r.Post("/upload/multiple", docHandler.UploadMultiple)
	r.Post("/clear", docHandler.ClearIndex)
	r.Post("/chat/", chatHandler.Chat)
	r.Post("/flashcards", chatHandler.Flashcards)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
