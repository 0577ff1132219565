package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/placeholder"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/profile"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/session"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// Substitution binds one custom placeholder key to a literal value for the
// session's lifetime. Bindings apply in order.
type Substitution struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CreateSessionRequest represents the request body for creating a session.
// Config overrides the profile when both are present. Start fires the base
// prompt immediately instead of waiting for the first submit.
type CreateSessionRequest struct {
	BasePrompt    string                `json:"basePrompt"`
	Profile       string                `json:"profile,omitempty"`
	Config        *types.EndpointConfig `json:"config,omitempty"`
	Files         []string              `json:"files,omitempty"`
	Substitutions []Substitution        `json:"substitutions,omitempty"`
	Start         bool                  `json:"start,omitempty"`
}

// SubmitRequest represents the request body for submitting a query. The
// context switches default to on; send false to strip conversation history
// or file context from the mega-prompt.
type SubmitRequest struct {
	Query           string `json:"query"`
	UseConversation *bool  `json:"useConversation,omitempty"`
	UseFiles        *bool  `json:"useFiles,omitempty"`
}

// listSessions handles GET /session
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Ensure we return an empty array [] instead of null
	if sessions == nil {
		sessions = []*types.Session{}
	}

	writeJSON(w, http.StatusOK, sessions)
}

// createSession handles POST /session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if req.BasePrompt == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "basePrompt is required")
		return
	}

	var cfg types.EndpointConfig
	if req.Config != nil {
		cfg = *req.Config
	} else {
		resolved, err := s.profiles.Resolve(r.Context(), req.Profile)
		if err != nil {
			var unknown *profile.UnknownProfileError
			if errors.As(err, &unknown) && unknown.Suggestion != "" {
				writeErrorWithDetails(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(),
					map[string]any{"suggestion": unknown.Suggestion})
				return
			}
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		cfg = resolved
	}
	if cfg.Endpoint == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "endpoint is required")
		return
	}

	subs := placeholder.NewContext()
	vars := s.promptVariables()
	for _, key := range sortedKeys(vars) {
		subs.BindValue(key, vars[key])
	}
	for _, sub := range req.Substitutions {
		if sub.Key == "" {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "substitution key may not be empty")
			return
		}
		subs.BindValue(sub.Key, sub.Value)
	}

	sess, err := s.sessions.Create(r.Context(), session.CreateOptions{
		BasePrompt:    req.BasePrompt,
		Profile:       req.Profile,
		Config:        cfg,
		Files:         req.Files,
		Substitutions: subs,
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	if req.Start {
		if err := sess.Start(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// getSession handles GET /session/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// deleteSession handles DELETE /session/{sessionID}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.sessions.Delete(r.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeSuccess(w)
}

// submitQuery handles POST /session/{sessionID}/submit
func (s *Server) submitQuery(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	opts := types.SubmitOptions{UseConversation: true, UseFiles: true}
	if req.UseConversation != nil {
		opts.UseConversation = *req.UseConversation
	}
	if req.UseFiles != nil {
		opts.UseFiles = *req.UseFiles
	}

	if err := sess.Submit(r.Context(), req.Query, opts); err != nil {
		writeSessionOpError(w, err)
		return
	}

	// The response streams in over /event; return the snapshot so the
	// caller sees the loading view right away.
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// cancelSession handles POST /session/{sessionID}/cancel
func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	if err := sess.Cancel(); err != nil {
		writeSessionOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// regenerateResponse handles POST /session/{sessionID}/regenerate
func (s *Server) regenerateResponse(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	if err := sess.Regenerate(r.Context()); err != nil {
		writeSessionOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// writeSessionOpError maps a session operation error to a response.
func writeSessionOpError(w http.ResponseWriter, err error) {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusConflict, ErrCodeConflict, "Session is closed")
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}

// sortedKeys returns the map's keys in stable order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
