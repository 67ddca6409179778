package server

import (
	"context"
	"net/http"

	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"

	"github.com/jasmine-z2a/studio/internal/config"
	"github.com/jasmine-z2a/studio/internal/feed"
	"github.com/jasmine-z2a/studio/internal/panel"
)

// Options configures a PanelServer.
type Options struct {
	WebDir       string     // static files for the web UI, "" disables
	DefaultTopic string     // fallback topic for the selector
	IngestRate   rate.Limit // ingest requests/sec, 0 disables limiting
	IngestBurst  int
}

// PanelServer serves the log panel pipeline: ingest, catalog and record
// queries, wholesale config persistence, and WebSocket viewport sessions.
type PanelServer struct {
	store        *feed.Store
	registry     *panel.Registry
	cfg          *config.Store
	names        *panel.SeenNames // service-wide accumulator for /api/names
	limiter      *rate.Limiter
	webDir       string
	defaultTopic string

	srv    *http.Server
	parser fastjson.ParserPool
}

func New(store *feed.Store, registry *panel.Registry, cfg *config.Store, opts Options) *PanelServer {
	if opts.DefaultTopic == "" {
		opts.DefaultTopic = panel.DefaultTopic
	}
	var limiter *rate.Limiter
	if opts.IngestRate > 0 {
		burst := opts.IngestBurst
		if burst <= 0 {
			burst = int(opts.IngestRate)
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(opts.IngestRate, burst)
	}
	return &PanelServer{
		store:        store,
		registry:     registry,
		cfg:          cfg,
		names:        panel.NewSeenNames(),
		limiter:      limiter,
		webDir:       opts.WebDir,
		defaultTopic: opts.DefaultTopic,
	}
}

// Start runs the HTTP server.
func (s *PanelServer) Start(addr string) error {
	mux := http.NewServeMux()

	mux.Handle("/api/ingest", s.AuthMiddleware(http.HandlerFunc(s.handleIngest)))
	mux.HandleFunc("/api/topics", s.handleTopics)
	mux.HandleFunc("/api/records", s.handleRecords)
	mux.HandleFunc("/api/names", s.handleNames)
	mux.Handle("/api/config/panel", s.AuthMiddleware(http.HandlerFunc(s.handlePanelConfig)))

	mux.HandleFunc("/ws/panel", s.handlePanelSocket)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.webDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.webDir)))
	}

	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *PanelServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
