package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"courtlog/internal/config"
	"courtlog/internal/domain"
	"courtlog/internal/service"
)

// IngestRunner triggers one scrape pass; the periodic scheduler and the HTTP
// trigger share the same implementation.
type IngestRunner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

type Intake interface {
	Submit(ctx context.Context, originKey string, sub domain.Submission) (*domain.CatalogEntry, error)
}

type Moderation interface {
	Approve(ctx context.Context, entryID int64, in service.ApproveInput) (*domain.Match, error)
	Reject(ctx context.Context, entryID int64) error
	Reopen(ctx context.Context, entryID int64) error
	Delete(ctx context.Context, entryID int64, cascade bool) error
}

type ChannelRegistrar interface {
	Register(ctx context.Context, externalID string, cadence domain.Cadence) (*domain.Channel, error)
}

type Catalog interface {
	GetByID(ctx context.Context, id int64) (*domain.CatalogEntry, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.CatalogEntry, error)
}

type Server struct {
	ingest     IngestRunner
	intake     Intake
	moderation Moderation
	channels   ChannelRegistrar
	catalog    Catalog
	secret     string
	logger     *slog.Logger
	httpServer *http.Server
}

func New(
	cfg config.ServerConfig,
	ingest IngestRunner,
	intake Intake,
	moderation Moderation,
	channels ChannelRegistrar,
	catalog Catalog,
	logger *slog.Logger,
) *Server {
	s := &Server{
		ingest:     ingest,
		intake:     intake,
		moderation: moderation,
		channels:   channels,
		catalog:    catalog,
		secret:     cfg.ScrapeSecret,
		logger:     logger.With("component", "http"),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.With(s.requireScrapeSecret).Post("/scrape/run", s.handleScrapeRun)

		r.Post("/submissions", s.handleSubmit)

		r.Get("/videos", s.handleListVideos)
		r.Get("/videos/{id}", s.handleGetVideo)
		r.Post("/videos/{id}/approve", s.handleApprove)
		r.Post("/videos/{id}/reject", s.handleReject)
		r.Post("/videos/{id}/reopen", s.handleReopen)
		r.Delete("/videos/{id}", s.handleDelete)

		r.Post("/channels", s.handleRegisterChannel)
	})

	return r
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requireScrapeSecret authorizes the external trigger with a shared secret.
func (s *Server) requireScrapeSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Scrape-Secret")
		if s.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
