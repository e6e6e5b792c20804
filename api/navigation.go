package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/evnav/core/navigation"
)

type navigationRequest struct {
	UserID  string `json:"userId"`
	RouteID string `json:"routeId"`
}

type navigationResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	TotalPoints int    `json:"totalPoints,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req navigationRequest
	if err := decodeBody(w, r, &req); err != nil || req.UserID == "" || req.RouteID == "" {
		writeError(w, http.StatusBadRequest, "userId and routeId are required")
		return
	}
	total, err := s.deps.Navigator.Start(r.Context(), req.UserID, req.RouteID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, navigationResponse{Success: true, Message: "Navigation started", TotalPoints: total})
	case errors.Is(err, navigation.ErrAlreadyActive):
		writeError(w, http.StatusBadRequest, "Navigation already active for this user")
	case errors.Is(err, navigation.ErrRouteNotFound):
		writeError(w, http.StatusNotFound, "Route not found")
	case errors.Is(err, navigation.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "Navigation engine shutting down")
	default:
		s.log.Errorf("start navigation for %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to start navigation")
	}
}

func (s *Server) handleControl(message string, op func(userID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req navigationRequest
		if err := decodeBody(w, r, &req); err != nil || req.UserID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}
		if err := op(req.UserID); err != nil {
			if errors.Is(err, navigation.ErrNotFound) {
				writeError(w, http.StatusNotFound, "No active navigation found")
				return
			}
			s.log.Errorf("%s for %s: %v", message, req.UserID, err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, navigationResponse{Success: true, Message: message})
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Navigator.Snapshot(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "No active navigation found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
