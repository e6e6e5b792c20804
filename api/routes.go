package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilianp07/evnav/core/model"
)

func (s *Server) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var coords [4]float64
	for i, key := range []string{"startLat", "startLng", "endLat", "endLng"} {
		v := q.Get(key)
		if v == "" {
			writeError(w, http.StatusBadRequest, "Missing start or end coordinates.")
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+key)
			return
		}
		coords[i] = f
	}
	userID := q.Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required to save the route.")
		return
	}
	start := model.NewPoint(coords[1], coords[0])
	end := model.NewPoint(coords[3], coords[2])

	route, err := s.deps.Provider.Route(r.Context(), start, end)
	if err != nil {
		s.log.Errorf("route %v -> %v: %v", start, end, err)
		writeError(w, http.StatusBadGateway, "Failed to get route")
		return
	}
	route.ID = ""
	route.UserID = userID
	id, err := s.deps.Routes.Save(r.Context(), route)
	if err != nil {
		s.log.Errorf("save route for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get route")
		return
	}
	s.log.Infof("route %s saved for %s", id, userID)

	body, err := routeResponse(route, id, s.deps.Builder.Build(route.Geometry, route.Duration))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get route")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// routeResponse merges the provider payload with the stored route id and
// the movement points a navigation on this route would play.
func routeResponse(route model.Route, id string, points []model.Point) (map[string]any, error) {
	out := map[string]any{}
	if len(route.Raw) > 0 {
		if err := json.Unmarshal(route.Raw, &out); err != nil {
			return nil, err
		}
	} else {
		out["geometry"] = route.Geometry
		out["steps"] = route.Steps
	}
	out["routeId"] = id
	out["movementPoints"] = points
	out["totalDistance"] = route.Distance
	out["estimatedDuration"] = route.Duration
	return out, nil
}
