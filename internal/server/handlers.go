package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ButyrinIA/postboard/internal/posts"
	"github.com/ButyrinIA/postboard/internal/query"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	result, err := s.posts.List(r.Context(), query.ParamsFromValues(r.URL.Query()))
	if err != nil {
		s.writeServiceError(w, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	post, err := s.posts.Create(r.Context(), raw)
	if err != nil {
		s.writeServiceError(w, "create post", err)
		return
	}
	s.logger.Info("post created", "post_id", post.ID, "user_id", post.UserID)
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	post, err := s.posts.Edit(r.Context(), r.PathValue("id"), raw)
	if err != nil {
		s.writeServiceError(w, "update post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	msg, err := s.posts.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, "delete post", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	authors, err := s.posts.Authors(r.Context())
	if err != nil {
		s.writeServiceError(w, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

func (s *Server) handleClearPosts(w http.ResponseWriter, r *http.Request) {
	result, err := s.posts.ClearPosts(r.Context())
	if err != nil {
		s.writeServiceError(w, "clear posts", err)
		return
	}
	s.logger.Info("posts cleared", "count", result.Count)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	result, err := s.posts.Reseed(r.Context())
	if err != nil {
		s.writeServiceError(w, "seed posts", err)
		return
	}
	s.logger.Info("database seeded", "count", result.Count)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody reads a JSON object. Numbers are kept as json.Number so the
// validators see exactly what the client sent.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var raw map[string]any
	err := dec.Decode(&raw)
	if err == nil && raw == nil {
		err = errors.New("body is null")
	}
	if err == nil {
		if _, extra := dec.Token(); extra != io.EOF {
			err = errors.New("trailing data after JSON object")
		}
	}
	if err != nil {
		s.logger.Warn("invalid request body", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return nil, false
	}
	return raw, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	var svcErr *posts.Error
	if !errors.As(err, &svcErr) {
		s.logger.Error("unexpected error", "op", op, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	status := statusFor(svcErr.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("store operation failed", "op", op, "error", svcErr.Err)
	} else {
		s.logger.Debug("request rejected", "op", op, "kind", svcErr.Kind.String(), "message", svcErr.Message)
	}
	writeJSON(w, status, errorResponse{Error: svcErr.Message, Errors: svcErr.Fields})
}

func statusFor(kind posts.Kind) int {
	switch kind {
	case posts.KindValidation, posts.KindMalformedID, posts.KindBadQuery:
		return http.StatusBadRequest
	case posts.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
