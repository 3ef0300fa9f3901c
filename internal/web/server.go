package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/schema"
	"go.uber.org/zap"

	"github.com/basel-ax/bagtrainer/internal/config"
	"github.com/basel-ax/bagtrainer/internal/domain"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server is the single-page upload and generation UI
type Server struct {
	svc     domain.Adapter
	cfg     *config.Config
	logger  *zap.SugaredLogger
	decoder *schema.Decoder
}

// NewServer creates the UI server for svc
func NewServer(cfg *config.Config, svc domain.Adapter, logger *zap.SugaredLogger) *Server {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Server{
		svc:     svc,
		cfg:     cfg,
		logger:  logger,
		decoder: decoder,
	}
}

// Router returns the UI routes with the standard middleware stack
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	// vendor calls get the full request timeout plus room to render
	r.Use(middleware.Timeout(s.cfg.RequestTimeout + 30*time.Second))

	s.AddRoutes(r)
	return r
}

// AddRoutes registers the UI handlers on r
func (s *Server) AddRoutes(r chi.Router) {
	r.Get("/", s.Index)
	r.Post("/train", s.Train)
	r.Post("/generate", s.Generate)
	r.Get("/healthz", s.Healthz)
}

// Healthz reports that the server is up
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ok")); err != nil {
		s.logger.Errorw("error writing health response", "error", err)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Infow("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"requestId", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
