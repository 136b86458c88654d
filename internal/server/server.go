// Package server is the reference rename backend: an HTTP/JSON service
// holding import tasks in memory, recognizing invoices through a vision
// model, and planning and executing renames on the local filesystem.
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/invoicename/internal/bridge"
	"github.com/hpungsan/invoicename/internal/invoice"
)

// Options configure a Server. Zero values select defaults.
type Options struct {
	// DB persists settings and, through the bridge, the rename journal.
	DB *sql.DB

	// Seed fills settings the database does not hold yet.
	Seed invoice.SettingsUpdate

	// Executor renames files for commit-rename. Defaults to a local bridge.
	Executor bridge.Bridge

	// Extractors builds the recognizer. Defaults to the cloud extractor.
	Extractors ExtractorFactory

	Logger zerolog.Logger
}

// Server handles the rename backend API.
type Server struct {
	store      *Store
	settings   *SettingsStore
	executor   bridge.Bridge
	extractors ExtractorFactory
	log        zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// New creates a server.
func New(opts Options) (*Server, error) {
	settings, err := NewSettingsStore(opts.DB, opts.Seed)
	if err != nil {
		return nil, err
	}

	executor := opts.Executor
	if executor == nil {
		local := bridge.NewLocal(opts.Logger.With().Str("cmp", "executor").Logger())
		local.Journal = opts.DB
		executor = local
	}
	extractors := opts.Extractors
	if extractors == nil {
		extractors = NewCloudExtractorFactory(opts.Logger)
	}

	return &Server{
		store:      NewStore(),
		settings:   settings,
		executor:   executor,
		extractors: extractors,
		log:        opts.Logger,
		now:        func() time.Time { return time.Now().UTC() },
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("GET /api/tasks/{id}/report", s.handleReport)
	mux.HandleFunc("POST /api/recognize", s.handleRecognize)
	mux.HandleFunc("POST /api/preview-names", s.handlePreviewNames)
	mux.HandleFunc("POST /api/commit-plan", s.handleCommitPlan)
	mux.HandleFunc("POST /api/commit-rename", s.handleCommitRename)
	mux.HandleFunc("POST /api/commit-results", s.handleCommitResults)
	mux.HandleFunc("POST /api/sync-items", s.handleSyncItems)
	mux.HandleFunc("PATCH /api/items/{task}/{item}", s.handlePatchItem)
	mux.HandleFunc("POST /api/remove-items", s.handleRemoveItems)
	mux.HandleFunc("POST /api/clear-items", s.handleClearItems)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	return s.requestLog(cors(securityHeaders(mux)))
}

// NewHTTPServer wraps the handler in an http.Server listening on addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// cors allows any origin. Preflight requests are answered directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", srv.Addr).Msg("rename backend listening")
	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}
