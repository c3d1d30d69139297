package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"scenario-advisor/internal/advisor"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/metrics"
)

// Server exposes the advisor command surface over HTTP.
type Server struct {
	router *mux.Router
	server *http.Server
	app    *advisor.App

	requestTimeout time.Duration
}

func NewServer(addr string, app *advisor.App, requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	s := &Server{
		router:         mux.NewRouter(),
		app:            app,
		requestTimeout: requestTimeout,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.timeoutMiddleware)

	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api.HandleFunc("/scenarios", s.registerScenario).Methods(http.MethodPost)
	api.HandleFunc("/scenarios", s.listScenarios).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{id}/check", s.checkNews).Methods(http.MethodPost)
	api.HandleFunc("/news", s.listNews).Methods(http.MethodGet)

	api.HandleFunc("/query/interpret", s.interpret).Methods(http.MethodPost)
	api.HandleFunc("/query/pending", s.pending).Methods(http.MethodGet)
	api.HandleFunc("/query/confirm", s.confirm).Methods(http.MethodPost)
	api.HandleFunc("/query/cancel", s.cancel).Methods(http.MethodPost)
	api.HandleFunc("/companies", s.lookup).Methods(http.MethodGet)

	api.HandleFunc("/trades", s.submitTrade).Methods(http.MethodPost)
	api.HandleFunc("/portfolio", s.portfolio).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := logger.WithFields(r.Context(), "request_id", requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggingMiddleware logs all requests with structured format
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		logger.InfoSkip(r.Context(), 1, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr)
	})
}

// timeoutMiddleware enforces request timeouts
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start serves until Shutdown; it returns http.ErrServerClosed after a clean stop.
func (s *Server) Start(ctx context.Context) error {
	logger.Info(ctx, "Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
