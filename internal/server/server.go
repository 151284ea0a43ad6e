// Package server exposes exports and the credit ledger over HTTP and a
// websocket message shell.
//
// Every request belongs to a client session ([session.Session]). The
// session id travels in the X-Session-ID header or the mailframe_session
// cookie; unknown ids are replaced by a fresh session. Each session owns a
// ledger scoped under its id in the shared cache backend, while export
// payloads are cached once for everyone.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/fonts"
	"github.com/matzehuels/mailframe/pkg/ledger"
	"github.com/matzehuels/mailframe/pkg/pipeline"
	"github.com/matzehuels/mailframe/pkg/session"
)

const (
	DefaultAddr         = "127.0.0.1:8080"
	DefaultMaxBodyBytes = 32 << 20
	shutdownTimeout     = 10 * time.Second

	// maxLedgers bounds the in-process ledger handles kept for sessions.
	maxLedgers = 4096
)

// Config holds the listener settings.
type Config struct {
	Addr string `toml:"addr"`
	// AllowedOrigins restricts websocket upgrades. Empty allows same-host
	// origins only; "*" allows all.
	AllowedOrigins []string `toml:"allowed_origins"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
}

// Deps are the collaborators a server runs with.
type Deps struct {
	// Store backs payloads, sessions and ledgers.
	Store  cache.Cache
	Fonts  *fonts.Loader
	Ledger ledger.Options
	Export pipeline.Options
	Logger *log.Logger
}

// Server is the HTTP API.
type Server struct {
	cfg      Config
	store    cache.Cache
	runner   *pipeline.Runner
	sessions *session.Store
	fonts    *fonts.Loader
	ledgerO  ledger.Options
	exportO  pipeline.Options
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	ledgers    map[string]*ledgerEntry
	maxLedgers int
}

type ledgerEntry struct {
	ledger   *ledger.Ledger
	expires  time.Time
	lastUsed time.Time
}

// New returns a server. A nil store keeps everything in memory.
func New(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if deps.Store == nil {
		deps.Store = cache.NewMemoryCache()
	}
	if deps.Fonts == nil {
		deps.Fonts = fonts.NewLoader()
	}
	if deps.Logger == nil {
		deps.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	deps.Ledger.Logger = deps.Logger

	s := &Server{
		cfg:        cfg,
		store:      deps.Store,
		runner:     pipeline.NewRunner(deps.Store, nil, deps.Logger),
		sessions:   session.NewStore(deps.Store),
		fonts:      deps.Fonts,
		ledgerO:    deps.Ledger,
		exportO:    deps.Export,
		logger:     deps.Logger,
		ledgers:    make(map[string]*ledgerEntry),
		maxLedgers: maxLedgers,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/ws", s.handleShell)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
			r.Post("/export", s.handleExport)
			r.Post("/convert", s.handleConvert)

			r.Route("/credits", func(r chi.Router) {
				r.Get("/", s.handleBalance)
				r.Post("/redeem", s.handleRedeem)
				r.Post("/reset", s.handleReset)
				r.Get("/codes", s.handleListCodes)
				r.Post("/codes", s.handleGenerateCode)
				r.Put("/codes/{code}", s.handleAddCode)
			})
		})
	})
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// ledger returns the session's ledger. One instance per session serializes
// its operations. Ledger state lives in the store, so dropping a handle only
// loses the in-process serialization for that session.
func (s *Server) ledger(sess *session.Session) *ledger.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if e, ok := s.ledgers[sess.ID]; ok {
		e.expires = sess.ExpiresAt
		e.lastUsed = now
		return e.ledger
	}
	if len(s.ledgers) >= s.maxLedgers {
		s.evictLedgers(now)
	}
	l := ledger.New(s.store, cache.NewScopedKeyer(nil, sess.Scope()), s.ledgerO)
	s.ledgers[sess.ID] = &ledgerEntry{ledger: l, expires: sess.ExpiresAt, lastUsed: now}
	return l
}

// evictLedgers drops handles of expired sessions, then the least recently
// used one while the map is still full. s.mu must be held.
func (s *Server) evictLedgers(now time.Time) {
	for id, e := range s.ledgers {
		if now.After(e.expires) {
			delete(s.ledgers, id)
		}
	}
	for len(s.ledgers) >= s.maxLedgers {
		var oldest string
		var at time.Time
		for id, e := range s.ledgers {
			if oldest == "" || e.lastUsed.Before(at) {
				oldest, at = id, e.lastUsed
			}
		}
		delete(s.ledgers, oldest)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
