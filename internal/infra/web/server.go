package web

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain/ports/repository"
	"commerce-chat-bot/internal/infra/queue"
)

// Server is the operator-facing API: queue visibility and manual job
// dispatch. Everything except login sits behind the JWT middleware.
type Server struct {
	jobs     repository.JobRepository
	convs    repository.ConversationRepository
	queue    *queue.Queue
	auth     *AuthManager
	username string
	password string
	log      *zerolog.Logger
}

func NewServer(
	jobs repository.JobRepository,
	convs repository.ConversationRepository,
	q *queue.Queue,
	auth *AuthManager,
	username, password string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "admin_api").Logger()
	return &Server{
		jobs:     jobs,
		convs:    convs,
		queue:    q,
		auth:     auth,
		username: username,
		password: password,
		log:      &l,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/login", s.loginHandler())
	mux.Handle("/api/v1/logout", s.authMiddleware(s.logoutHandler()))

	mux.Handle("/api/v1/jobs/stats", s.authMiddleware(s.jobStatsHandler()))
	mux.Handle("/api/v1/jobs/abandoned", s.authMiddleware(s.abandonedJobsHandler()))
	mux.Handle("/api/v1/jobs/dispatch", s.authMiddleware(s.dispatchHandler()))

	mux.Handle("/api/v1/conversations/", s.authMiddleware(s.conversationHandler()))
}

// authMiddleware rejects requests without a valid admin session.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil || claims.Role != "admin" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		// Everything behind this middleware dispatches as the admin caller.
		ctx := queue.WithCaller(r.Context(), queue.CallerAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Serve starts the admin listener. Blocks until the server stops.
func (s *Server) Serve(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("admin API listening")
	return srv.ListenAndServe()
}
