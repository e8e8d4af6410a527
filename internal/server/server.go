// Package server is the HTTP front door: it analyzes a single uploaded document on
// demand and lets clients request a scan, which is queued on the scheduler instead
// of being run inside the request.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"docsweep/internal/analysis"
	"docsweep/internal/logger"
	"docsweep/internal/scheduler"
)

// DefaultMaxUploadBytes matches the inline request limit of the analysis service.
const DefaultMaxUploadBytes = 20 * 1024 * 1024

var errBadRequest = errors.New("bad request")

// InlineAnalyzer analyzes a raw document.
type InlineAnalyzer interface {
	AnalyzeInline(ctx context.Context, mimeType string, data []byte) (*analysis.Result, error)
}

// ScanQueue accepts scan requests.
type ScanQueue interface {
	Trigger() bool
	Status() scheduler.Status
}

// Options tunes the server.
type Options struct {
	MaxUploadBytes int64
}

// Server routes requests to the analyzer and the scan queue. queue may be nil when
// no scheduler runs in this process.
type Server struct {
	analyzer InlineAnalyzer
	queue    ScanQueue
	opts     Options
	log      zerolog.Logger
}

// New creates the front door.
func New(analyzer InlineAnalyzer, queue ScanQueue, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		analyzer: analyzer,
		queue:    queue,
		opts:     opts,
		log:      logger.WithComponent("server"),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(s.requestLogger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	mux.Get("/health", s.wrap(s.handleHealth))
	mux.Post("/analisar", s.wrap(s.handleAnalyze))
	mux.Post("/scan", s.wrap(s.handleScan))

	return mux
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		status := http.StatusInternalServerError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, errBadRequest):
			status = http.StatusBadRequest
		case errors.Is(err, analysis.ErrAnalysis):
			status = http.StatusBadGateway
		}

		s.log.Error().
			Err(err).
			Str("path", req.URL.Path).
			Int("status", status).
			Msg("Request failed")
		writeJSON(w, status, map[string]string{"erro": err.Error()})
	}
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) error {
	body := map[string]any{"status": "ok"}
	if s.queue != nil {
		status := s.queue.Status()
		scans := map[string]any{
			"running": status.Running,
			"runs":    status.Runs,
		}
		if !status.LastStart.IsZero() {
			scans["last_start"] = status.LastStart.Format(time.RFC3339)
		}
		if status.LastReport != nil {
			scans["last_run_id"] = status.LastReport.RunID
			scans["last_recorded"] = status.LastReport.Recorded
		}
		if status.LastErr != nil {
			scans["last_error"] = status.LastErr.Error()
		}
		body["scans"] = scans
	}
	writeJSON(w, http.StatusOK, body)
	return nil
}

// POST /analisar, multipart field "file"
func (s *Server) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, s.opts.MaxUploadBytes+1024*1024)

	file, header, err := req.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: multipart field \"file\" is required: %v", errBadRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return &http.MaxBytesError{Limit: s.opts.MaxUploadBytes}
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", errBadRequest)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	s.log.Info().
		Str("file", header.Filename).
		Str("content_type", mimeType).
		Int("bytes", len(data)).
		Msg("Analyzing uploaded file")

	result, err := s.analyzer.AnalyzeInline(req.Context(), mimeType, data)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"arquivo":   header.Filename,
		"resultado": result,
	})
	return nil
}

// POST /scan
func (s *Server) handleScan(w http.ResponseWriter, req *http.Request) error {
	if s.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "scheduler_disabled"})
		return nil
	}
	if !s.queue.Trigger() {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already_queued"})
		return nil
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		s.log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", middleware.GetReqID(req.Context())).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
