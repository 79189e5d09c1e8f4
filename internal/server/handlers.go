package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"policyqa/internal/domain"
)

// RunRequest is the inbound contract: one document URL and a batch of
// questions about it.
type RunRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

// RunResponse carries one answer per question, same order as the input.
type RunResponse struct {
	Answers []string `json:"answers"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Documents) == "" {
		s.respondError(w, http.StatusBadRequest, "documents URL is required")
		return
	}
	if len(req.Questions) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one question is required")
		return
	}

	s.logger.Debug("run request",
		zap.String("documents", req.Documents),
		zap.Int("questions", len(req.Questions)))

	answers, err := s.service.Run(r.Context(), req.Documents, req.Questions)
	if err != nil {
		s.logger.Error("run failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, RunResponse{Answers: answers})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireBearer checks the Authorization header against the configured
// token. When no token is configured, auth is disabled.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.respondError(w, http.StatusUnauthorized, "authorization header missing or invalid")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.respondError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor maps the error taxonomy onto HTTP status codes: document
// problems are the caller's (422), backend failures are upstream's (502).
func statusFor(err error) int {
	var (
		fetchErr      *domain.FetchError
		extractErr    *domain.ExtractionError
		emptyErr      *domain.EmptyDocumentError
		embedErr      *domain.EmbeddingServiceError
		indexErr      *domain.IndexUnavailableError
		generationErr *domain.GenerationError
	)
	switch {
	case errors.As(err, &fetchErr), errors.As(err, &extractErr), errors.As(err, &emptyErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &embedErr), errors.As(err, &indexErr), errors.As(err, &generationErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
