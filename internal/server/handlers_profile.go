package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/profile"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// PutProfileRequest represents the request body for saving a profile. The
// name comes from the URL; a name in the body must match it.
type PutProfileRequest struct {
	Name        string               `json:"name,omitempty"`
	Description string               `json:"description,omitempty"`
	Config      types.EndpointConfig `json:"config"`
}

// listProfiles handles GET /profile
func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Ensure we return an empty array [] instead of null
	if profiles == nil {
		profiles = []*types.Profile{}
	}

	writeJSON(w, http.StatusOK, profiles)
}

// getProfile handles GET /profile/{name}
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	p, err := s.profiles.Get(r.Context(), name)
	if err != nil {
		writeProfileError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// putProfile handles PUT /profile/{name}
func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req PutProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if req.Name != "" && req.Name != name {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name in body does not match URL")
		return
	}
	if req.Config.Endpoint == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "config.endpoint is required")
		return
	}

	p := &types.Profile{
		Name:        name,
		Description: req.Description,
		Config:      req.Config,
	}
	if err := s.profiles.Save(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// deleteProfile handles DELETE /profile/{name}
func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.profiles.Delete(r.Context(), name); err != nil {
		writeProfileError(w, err)
		return
	}

	writeSuccess(w)
}

// writeProfileError maps a profile registry error to a response. Unknown
// profiles carry the nearest-name suggestion in the details.
func writeProfileError(w http.ResponseWriter, err error) {
	var unknown *profile.UnknownProfileError
	var managed *profile.ConfigManagedError
	switch {
	case errors.As(err, &unknown):
		if unknown.Suggestion != "" {
			writeErrorWithDetails(w, http.StatusNotFound, ErrCodeNotFound, err.Error(),
				map[string]any{"suggestion": unknown.Suggestion})
			return
		}
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.As(err, &managed):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
