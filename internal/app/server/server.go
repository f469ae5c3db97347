package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fabtrack/internal/app/server/handlers"
	"fabtrack/internal/core/services"
	"fabtrack/pkg/logging"
	"fabtrack/pkg/middleware"
)

type Server struct {
	log    *slog.Logger
	http   *http.Server
	router chi.Router
}

func New(
	log *slog.Logger,
	serviceName string,
	addr string,
	tokenSvc *services.TokenService,
	authHandler *handlers.AuthHandler,
	streamHandler *handlers.StreamHandler,
	projectHandler *handlers.ProjectHandler,
	materialHandler *handlers.MaterialHandler,
) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Tracer(serviceName))

	r.Post("/api/auth/login", authHandler.Login)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tokenSvc))

		r.Get("/api/auth/me", authHandler.Me)
		r.Get("/api/events", streamHandler.Connect)
		r.Get("/api/events/status", streamHandler.Status)
		r.Get("/api/presence", streamHandler.Presence)

		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Put("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)
				r.Post("/move-to-past", projectHandler.MoveToPast)
				r.Post("/restore", projectHandler.RestoreFromPast)
				r.Get("/materials", materialHandler.ListByProject)
				r.Put("/materials/batch-status", materialHandler.BatchUpdateStatus)
				r.Put("/materials/{materialID}/status", materialHandler.UpdateStatus)
			})
		})
	})

	return &Server{
		log:    log,
		router: r,
		http: &http.Server{
			Addr:    addr,
			Handler: r,
			// WriteTimeout must stay zero: the event stream holds the
			// response open indefinitely.
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("server shutdown incomplete", logging.Err(err))
		return err
	}
	return nil
}
