package ors

import (
	"encoding/json"
	"errors"

	"github.com/kilianp07/evnav/core/model"
)

type featureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox"`
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Type        string        `json:"type"`
		Coordinates []model.Point `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Segments []struct {
			Steps []model.RouteStep `json:"steps"`
		} `json:"segments"`
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"properties"`
}

// Decode converts a directions GeoJSON document into a Route. The first
// feature is used; the whole document is kept in Route.Raw.
func Decode(body []byte) (model.Route, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return model.Route{}, err
	}
	if len(fc.Features) == 0 {
		return model.Route{}, errors.New("no route in response")
	}
	f := fc.Features[0]
	if len(f.Geometry.Coordinates) == 0 {
		return model.Route{}, errors.New("route has no geometry")
	}
	r := model.Route{
		Geometry: f.Geometry.Coordinates,
		Duration: f.Properties.Summary.Duration,
		Distance: f.Properties.Summary.Distance,
		BBox:     fc.BBox,
		Raw:      append(json.RawMessage(nil), body...),
	}
	for _, seg := range f.Properties.Segments {
		r.Steps = append(r.Steps, seg.Steps...)
	}
	return r, nil
}
