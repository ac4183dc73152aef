package server

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/burgerdrop/pkg/errors"
)

// maxBody bounds POST bodies.
const maxBody = 1 << 10

// retryAfter is the Retry-After value, in seconds, sent with transient
// store failures.
const retryAfter = "5"

type highScoreResponse struct {
	Best     int  `json:"best"`
	Improved bool `json:"improved,omitempty"`
}

type submitRequest struct {
	Score *int `json:"score"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetHighScore(w http.ResponseWriter, r *http.Request) {
	best, err := s.store.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, highScoreResponse{Best: best})
}

func (s *Server) handleSubmitHighScore(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrorTypeValidation, "failed to read body"))
		return
	}
	if len(body) > maxBody {
		s.writeError(w, errors.New(errors.ErrorTypeValidation, "body too large"))
		return
	}

	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrorTypeValidation, "invalid JSON body"))
		return
	}
	if req.Score == nil {
		s.writeError(w, errors.New(errors.ErrorTypeValidation, "score is required"))
		return
	}

	best, improved, err := s.store.Submit(r.Context(), *req.Score)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if improved {
		s.logger.Info("new high score", zap.Int("score", best))
	}
	s.writeJSON(w, http.StatusOK, highScoreResponse{Best: best, Improved: improved})
}

func (s *Server) handlePools(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.manager.AllStats())
}

func (s *Server) handlePerformance(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitor.Report())
}

func (s *Server) handleGame(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	resp := errorResponse{Error: err.Error()}
	if errors.IsRetryable(err) {
		w.Header().Set("Retry-After", retryAfter)
		resp.Retryable = true
	}
	var e *errors.Error
	if errors.As(err, &e) {
		resp.Type = string(e.Type)
	}
	s.writeJSON(w, status, resp)
}

// statusFor maps typed errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsType(err, errors.ErrorTypeValidation):
		return http.StatusBadRequest
	case errors.IsType(err, errors.ErrorTypeNotFound):
		return http.StatusNotFound
	case errors.IsType(err, errors.ErrorTypeTimeout):
		return http.StatusGatewayTimeout
	case errors.IsType(err, errors.ErrorTypeConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
