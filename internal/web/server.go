package web

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/go-genre-decagon/internal/clustering"
	"github.com/justestif/go-genre-decagon/internal/upload"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// sweepInterval is how often expired sessions are dropped.
const sweepInterval = 10 * time.Minute

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	Backend        Backend
	Catalog        Catalog // optional; serves the JSON API when set
	MaxUploadBytes int64
	Groups         clustering.Config
	TemplatesFS    fs.FS
	StaticFS       fs.FS
}

// Server is the HTTP server for the web application.
type Server struct {
	router    chi.Router
	server    *http.Server
	templates *Templates
	sessions  *SessionStore
	handlers  *Handlers
	api       *API
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("no backend configured")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = upload.DefaultMaxBytes
	}
	if cfg.Groups.NumClusters <= 0 {
		cfg.Groups = clustering.DefaultConfig()
	}

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	sessions := NewSessionStore(cfg.Backend, cfg.MaxUploadBytes)

	s := &Server{
		router:    chi.NewRouter(),
		templates: templates,
		sessions:  sessions,
		handlers:  NewHandlers(sessions, templates, cfg.Groups),
	}
	if cfg.Catalog != nil {
		s.api = NewAPI(cfg.Catalog, cfg.MaxUploadBytes)
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS)

	// Uploads wait on classification, so writes get a long timeout.
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	// Pages
	s.router.Get("/", s.handlers.Home)
	s.router.Get("/healthz", s.handlers.Health)

	// Visualization fragments
	s.router.Route("/viz", func(r chi.Router) {
		r.Get("/", s.handlers.Frame)
		r.Post("/events", s.handlers.Event)
		r.Post("/reload", s.handlers.Reload)
		r.Post("/panel/delete", s.handlers.DeleteSelected)
		r.Post("/panel/dismiss", s.handlers.DismissPanel)
		r.Post("/error/clear", s.handlers.ClearError)
		r.Post("/upload/file", s.handlers.UploadFile)
		r.Post("/upload/url", s.handlers.UploadURL)
	})

	if s.api != nil {
		s.router.Mount("/api", s.api.Routes())
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting server at http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

loop:
	for {
		select {
		case err := <-errCh:
			return err
		case now := <-sweep.C:
			if n := s.sessions.Sweep(now); n > 0 {
				log.Printf("Dropped %d expired sessions", n)
			}
		case <-stop:
			log.Println("Shutting down server...")
			break loop
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
