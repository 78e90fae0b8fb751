// Package server exposes the viewer page and its JSON API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/samvad-hq/news-intelligence/internal/logger"
	"github.com/samvad-hq/news-intelligence/internal/view"
)

const (
	Name    = "News Intelligence Viewer"
	Version = "1.0.0"

	shutdownTimeout = 10 * time.Second
)

// Controller is the view surface handlers depend on.
type Controller interface {
	Trigger() bool
	Snapshot() view.Snapshot
}

// PageRenderer writes the HTML page for a snapshot.
type PageRenderer interface {
	Render(w io.Writer, snap view.Snapshot) error
}

// Options configures a Server.
type Options struct {
	Addr           string
	RateLimitRPS   float64
	RateLimitBurst int
	Log            logger.Logger
}

// Server routes viewer requests to the controller and renderer.
type Server struct {
	ctrl    Controller
	pages   PageRenderer
	log     logger.Logger
	addr    string
	handler http.Handler
}

// New builds the router and middleware chain.
func New(ctrl Controller, pages PageRenderer, opts Options) (*Server, error) {
	if ctrl == nil || pages == nil {
		return nil, fmt.Errorf("controller and renderer are required")
	}
	if opts.RateLimitRPS <= 0 || opts.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("rate limit must be positive")
	}

	s := &Server{
		ctrl:  ctrl,
		pages: pages,
		log:   logger.Ensure(opts.Log),
		addr:  opts.Addr,
	}

	router := httprouter.New()
	router.GET("/", s.page)
	router.POST("/fetch", s.triggerForm)
	router.GET("/api", s.info)
	router.POST("/api/fetch", s.triggerAPI)
	router.GET("/api/state", s.state)
	router.GET("/api/health", s.health)
	router.GET("/api/info", s.info)

	limiter := newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst, s.log)
	s.handler = s.logRequests(limiter.middleware(router))
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "listen_addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.InfoObj("http server shutting down", "reason", ctx.Err().Error())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) page(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.pages.Render(w, s.ctrl.Snapshot()); err != nil {
		s.log.ErrorObj("render page failed", "render_error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// triggerForm backs the page button; a busy controller simply redirects back.
func (s *Server) triggerForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.ctrl.Trigger()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type triggerResponse struct {
	Started bool          `json:"started"`
	State   view.Snapshot `json:"state"`
}

func (s *Server) triggerAPI(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	started := s.ctrl.Trigger()
	status := http.StatusAccepted
	if !started {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, triggerResponse{Started: started, State: s.ctrl.Snapshot()})
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "News Intelligence viewer is running",
	})
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":    Name,
		"version": Version,
		"endpoints": map[string]string{
			"/":           "GET - Article viewer page",
			"/fetch":      "POST - Fetch latest news and return to the page",
			"/api/fetch":  "POST - Start a fetch (202) or report one in progress (409)",
			"/api/state":  "GET - Current view state",
			"/api/health": "GET - Health check",
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WarnObj("write json response failed", "http_error", err.Error())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.DebugObj("http request", "http_request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   clientIP(r),
		})
	})
}
