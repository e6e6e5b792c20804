package api

import (
	"net/http"
	"strconv"

	"github.com/kilianp07/evnav/core/model"
)

const defaultMaxDistanceKm = 10

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lng") == "" || q.Get("lat") == "" {
		writeError(w, http.StatusBadRequest, "latitude and longitude not provided")
		return
	}
	lng, err1 := strconv.ParseFloat(q.Get("lng"), 64)
	lat, err2 := strconv.ParseFloat(q.Get("lat"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}
	p := model.NewPoint(lng, lat)
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxKm := float64(defaultMaxDistanceKm)
	if v := q.Get("maxDistance"); v != "" {
		if maxKm, err1 = strconv.ParseFloat(v, 64); err1 != nil || maxKm < 0 {
			writeError(w, http.StatusBadRequest, "invalid maxDistance")
			return
		}
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err1 = strconv.Atoi(v); err1 != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	stations, err := s.deps.Stations.FindNear(r.Context(), p, maxKm*1000, limit)
	if err != nil {
		s.log.Errorf("find stations near %v: %v", p, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch stations")
		return
	}
	if stations == nil {
		stations = []model.Station{}
	}
	writeJSON(w, http.StatusOK, stations)
}
