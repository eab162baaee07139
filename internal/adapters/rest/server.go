package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	httpServer *http.Server
	logger     port.LoggerPort
}

// NewRouter собирает маршруты. challengeHandler и ingestHandler могут быть nil.
func NewRouter(
	listingsHandler *ListingsHandler,
	ingestHandler *IngestHandler,
	challengeHandler *ChallengeHandler,
	allowedOrigins []string,
	baseLogger port.LoggerPort,
) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", traceHeader},
		ExposedHeaders: []string{traceHeader},
		MaxAge:         300,
	}))
	r.Use(LoggerMiddleware(baseLogger), middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", listingsHandler.Index)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/rent", listingsHandler.Rent)
		r.Post("/rent", listingsHandler.Rent)
		r.Get("/buy", listingsHandler.Buy)
		r.Post("/buy", listingsHandler.Buy)

		if ingestHandler != nil {
			r.Post("/ingest/{category}", ingestHandler.TriggerIngest)
		}
		if challengeHandler != nil {
			r.Get("/challenge", challengeHandler.Status)
			r.Post("/challenge/ack", challengeHandler.Acknowledge)
		}
	})

	return r
}

func NewServer(listenPort string, handler http.Handler, baseLogger port.LoggerPort) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + listenPort,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: baseLogger.WithFields(port.Fields{"component": "RESTServer"}),
	}
}

// Start блокируется до остановки сервера
func (s *Server) Start() error {
	s.logger.Info("Starting REST server", port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...", nil)
	return s.httpServer.Shutdown(ctx)
}
