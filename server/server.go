package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/campusradar/campusradar/internal/types"
)

type Config struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
}

// Server exposes the event discovery API: accounts, preference profiles,
// announcement ingestion and personalized recommendations.
type Server struct {
	config      Config
	logger      zerolog.Logger
	users       types.UserStore
	events      types.EventStore
	recommender types.Recommender
	ingestor    types.Ingestor
	validate    *validator.Validate
	router      chi.Router
}

func New(config Config, logger zerolog.Logger, users types.UserStore, events types.EventStore, recommender types.Recommender, ingestor types.Ingestor) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.TokenTTL == 0 {
		config.TokenTTL = 24 * time.Hour
	}

	s := &Server{
		config:      config,
		logger:      logger,
		users:       users,
		events:      events,
		recommender: recommender,
		ingestor:    ingestor,
		validate:    validator.New(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/preferences", s.handleGetPreferences)
			r.Put("/preferences", s.handlePutPreferences)
			r.Get("/recommendations", s.handleRecommendations)
			r.Get("/events", s.handleListEvents)
			r.Post("/events", s.handleIngest)
			r.Delete("/events/{id}", s.handleDeleteEvent)
		})
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

// ServeHTTP makes the server usable directly with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
