package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router   *chi.Mux
	port     int
	sessions *Sessions
	logger   *slog.Logger
	httpSrv  *http.Server

	// dispatch runs work that must outlive the request, such as an ask call.
	dispatch func(func())
}

func NewServer(port int, sessions *Sessions, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		sessions: sessions,
		logger:   logger,
		dispatch: func(f func()) { go f() },
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/sherpa/status", s.status)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/", s.index)

	router.Route("/api/v1/conversation", func(r chi.Router) {
		r.Get("/", s.getConversation)
		r.Delete("/", s.deleteConversation)
		r.Put("/input", s.putInput)
		r.Put("/feedback-draft", s.putFeedbackDraft)
		r.Post("/messages", s.postMessage)
		r.Post("/feedback", s.postFeedback)
		r.Get("/events", s.events)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every open conversation.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.sessions.CloseAll()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":    "sherpa",
		"sessions": s.sessions.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
