package api

import (
	"errors"
	"net/http"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/core/store"
)

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.deps.Vehicles.ListAll(r.Context())
	if err != nil {
		s.log.Errorf("list vehicles: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	if vehicles == nil {
		vehicles = []model.Vehicle{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

type statusRequest struct {
	UserID         string `json:"userId"`
	ChargingStatus string `json:"chargingStatus"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(w, r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	st, err := model.ParseChargingStatus(req.ChargingStatus)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := s.deps.Status.UpdateStatus(r.Context(), req.UserID, st)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.log.Errorf("update status of %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	writeJSON(w, http.StatusOK, v)
}
