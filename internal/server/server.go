// Package server serves the editor page, the session API, sandboxed previews
// and the websocket that keeps the editor in sync.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/capture"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/export"
)

// Server is the tinkerpen HTTP server.
type Server struct {
	config     *config.Config
	sessions   *SessionStore
	capturer   capture.Capturer
	projectDir string

	router     chi.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	loops  []<-chan struct{}

	mu          sync.Mutex
	watcher     *Watcher
	stopCapture func()
}

// Option configures a Server.
type Option func(*Server)

// WithCapturer replaces the screenshot capability built from the config.
// A nil capturer disables screenshots.
func WithCapturer(c capture.Capturer) Option {
	return func(s *Server) {
		if s.stopCapture != nil {
			s.stopCapture()
		}
		s.capturer = c
		s.stopCapture = func() {}
	}
}

// WithProjectDir seeds every new session from the project in dir.
func WithProjectDir(dir string) Option {
	return func(s *Server) { s.projectDir = dir }
}

// New creates a server. Background loops (session expiry, rate limiter
// cleanup) run until Close.
func New(cfg *config.Config, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config: cfg,
		sessions: NewSessionStore(cfg.Sessions.GetTTL(), cfg.Server.Debug,
			tinkerpen.WithAutoRefresh(cfg.Preview.IsAutoRefresh()),
			tinkerpen.WithCopiedReset(cfg.Preview.GetCopiedReset()),
		),
		ctx:    ctx,
		cancel: cancel,
	}
	s.capturer, s.stopCapture = capture.FromConfig(cfg.Screenshot, cfg.Server.Debug)

	for _, opt := range opts {
		opt(s)
	}

	s.loops = append(s.loops, s.sessions.Run(ctx, cfg.Sessions.GetCleanupInterval()))
	s.router = s.buildRouter()
	return s
}

// buildRouter wires middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	if s.debug() {
		r.Use(middleware.Logger)
	}
	r.Use(SecurityHeadersMiddleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The websocket must not sit behind the compressor.
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5, "text/html", "text/css", "text/javascript", "application/javascript", "application/json"))

		r.Get("/", s.handleEditor)
		r.Get("/help", s.handleHelp)
		r.Get("/assets/{name}", s.handleAsset)
		r.Get("/preview/{id}", s.handlePreview)

		rateLimit, done := RateLimitMiddleware(s.ctx,
			s.config.API.GetRateLimitRPS(),
			s.config.API.GetRateLimitBurst(),
			s.config.API.GetRateLimitMaxIPs(),
		)
		s.loops = append(s.loops, done)

		r.Route("/api/sessions", func(r chi.Router) {
			r.Use(CORSMiddleware(s.config.API.GetCORSOrigins()))
			r.Use(rateLimit)

			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Put("/fragments/{kind}", s.handleSetFragment)
				r.Put("/auto-refresh", s.handleSetAutoRefresh)
				r.Post("/refresh", s.handleRefresh)
				r.Put("/tab", s.handleSelectTab)
				r.Post("/format", s.handleFormat)
				r.Post("/copy", s.handleCopy)
				r.Get("/files/{name}", s.handleProjectFile)
				r.Get("/screenshot", s.handleScreenshot)
			})
		})
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// NewSession creates a session seeded from the project directory, if one is
// configured.
func (s *Server) NewSession() (*Session, error) {
	if s.projectDir == "" {
		return s.sessions.Create(tinkerpen.Fragments{}, false), nil
	}

	f, err := export.LoadProject(s.projectDir)
	if err != nil {
		return nil, err
	}
	return s.sessions.Create(f, true), nil
}

// Screenshot captures the document the session's preview currently shows.
func (s *Server) Screenshot(ctx context.Context, sess *Session) ([]byte, error) {
	return export.Screenshot(ctx, s.capturer, sess.Controller.Document(), capture.OptionsFromConfig(s.config.Screenshot))
}

// EnableWatch watches the project files and applies every change to the
// project sessions as an edit of that fragment.
func (s *Server) EnableWatch() error {
	if s.projectDir == "" {
		return errors.New("watch mode needs a project directory")
	}

	watcher, err := NewWatcher(s.projectDir, s.applyFileChange, s.debug())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()
	watcher.Start()

	log.Printf("[Watch] File watcher started for %s", s.projectDir)
	return nil
}

// applyFileChange pushes the new content of path into every project session
// whose buffer differs.
func (s *Server) applyFileChange(kind tinkerpen.Kind, path string) error {
	text, err := export.LoadProjectFile(path)
	if err != nil {
		return err
	}

	updated := 0
	s.sessions.Each(func(sess *Session) {
		if !sess.Project || sess.Controller.Fragment(kind) == text {
			return
		}
		if err := sess.Controller.SetFragment(kind, text); err != nil {
			log.Printf("[Watch] Failed to update session %s: %v", sess.ID, err)
			return
		}
		updated++
	})

	if updated > 0 {
		log.Printf("[Watch] %s changed, updated %d session(s)", export.FileForKind(kind), updated)
	}
	return nil
}

// ListenAndServe serves on the configured address until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the HTTP listener and releases everything the server owns.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.Close()
	return err
}

// Close stops the watcher and the background loops and ends every session.
func (s *Server) Close() {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			log.Printf("[Watch] Stop failed: %v", err)
		}
	}

	s.cancel()
	for _, done := range s.loops {
		<-done
	}
	s.loops = nil

	s.sessions.CloseAll()
	if s.stopCapture != nil {
		s.stopCapture()
		s.stopCapture = nil
	}
}

func (s *Server) debug() bool {
	return s.config.Server.Debug
}

