package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.password)) == 1
		if !userOK || !passOK {
			s.log.Warn().Str("username", req.Username).Msg("admin login rejected")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		token, err := s.auth.Mint(w)
		if err != nil {
			http.Error(w, "Failed to mint session", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	}
}

func (s *Server) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) jobStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.jobs.CountByStatus(r.Context(), nil)
		if err != nil {
			http.Error(w, "Failed to count jobs", http.StatusInternalServerError)
			return
		}
		response := map[string]int{}
		for status, n := range counts {
			response[string(status)] = n
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

type abandonedJobView struct {
	ID        string    `json:"id"`
	Hook      string    `json:"hook"`
	Retries   int       `json:"retries"`
	LastError string    `json:"last_error"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) abandonedJobsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		jobs, err := s.jobs.ListAbandoned(r.Context(), nil, limit)
		if err != nil {
			http.Error(w, "Failed to list abandoned jobs", http.StatusInternalServerError)
			return
		}
		views := make([]abandonedJobView, 0, len(jobs))
		for _, j := range jobs {
			views = append(views, abandonedJobView{
				ID:        j.ID,
				Hook:      j.Hook,
				Retries:   j.RetryCount,
				LastError: j.LastError,
				UpdatedAt: j.UpdatedAt,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}
}

type dispatchRequest struct {
	Hook  string            `json:"hook"`
	Args  map[string]string `json:"args"`
	RunAt *time.Time        `json:"run_at,omitempty"`
}

func (s *Server) dispatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req dispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Hook == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		runAt := time.Now()
		if req.RunAt != nil {
			runAt = *req.RunAt
		}

		id, err := s.queue.DispatchArgs(r.Context(), req.Hook, req.Args, runAt)
		switch {
		case errors.Is(err, domain.ErrHookNotRegistered):
			http.Error(w, "Unknown hook", http.StatusBadRequest)
			return
		case errors.Is(err, domain.ErrRateLimited):
			http.Error(w, "Rate limited", http.StatusTooManyRequests)
			return
		case err != nil:
			http.Error(w, "Failed to dispatch job", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"job_id": id})
	}
}

type conversationView struct {
	CustomerID     string            `json:"customer_id"`
	State          string            `json:"state"`
	Context        map[string]string `json:"context"`
	LastActivityAt time.Time         `json:"last_activity_at"`
}

func (s *Server) conversationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := strings.TrimPrefix(r.URL.Path, "/api/v1/conversations/")
		if customerID == "" {
			http.Error(w, "Missing customer id", http.StatusBadRequest)
			return
		}
		conv, err := s.convs.Find(r.Context(), nil, model.NormalizeCustomerID(customerID))
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conversationView{
			CustomerID:     conv.CustomerID,
			State:          string(conv.State),
			Context:        conv.Context,
			LastActivityAt: conv.LastActivityAt,
		})
	}
}
