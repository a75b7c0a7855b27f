// Package server exposes the chat manager over HTTP: a JSON API for chats,
// models, and parameters, plus SSE endpoints for streamed turns and bus
// events.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/polychat/polychat/internal/chat"
	"github.com/polychat/polychat/internal/event"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout for SSE
	}
}

// Server is the HTTP facade over the chat manager.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	manager *chat.Manager
	bus     *event.Bus
}

// New creates a new Server instance.
func New(cfg *Config, manager *chat.Manager, bus *event.Bus) *Server {
	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		manager: manager,
		bus:     bus,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/models", s.handleListModels)
	s.router.Put("/model", s.handleSelectModel)

	s.router.Get("/params", s.handleGetParams)
	s.router.Put("/params/{name}", s.handleSetParam)
	s.router.Delete("/params", s.handleResetParams)

	s.router.Get("/context", s.handleGetContext)
	s.router.Put("/context", s.handleSetContext)

	s.router.Get("/chats", s.handleListChats)
	s.router.Get("/chats/{id}", s.handleGetChat)
	s.router.Patch("/chats/{id}", s.handleRenameChat)
	s.router.Delete("/chats/{id}", s.handleDeleteChat)
	s.router.Post("/chats", s.handleNewChat)

	s.router.Post("/send", s.handleSend)
	s.router.Post("/send/stream", s.handleSendStream)

	s.router.Get("/events", s.handleEvents)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
