package model

import (
	"encoding/json"
	"time"
)

// RouteStep is one turn-by-turn instruction of a route.
type RouteStep struct {
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
	Type        int     `json:"type"`
	Instruction string  `json:"instruction"`
	Name        string  `json:"name"`
	WayPoints   []int   `json:"way_points"`
}

// Route is a driving route as returned by the routing provider.
type Route struct {
	ID       string      `json:"routeId"`
	UserID   string      `json:"userId"`
	Geometry []Point     `json:"geometry"`
	Duration float64     `json:"duration"` // seconds
	Distance float64     `json:"distance"` // meters
	Steps    []RouteStep `json:"steps,omitempty"`
	BBox     []float64   `json:"bbox,omitempty"`
	// Raw is the untouched provider payload, echoed back to clients.
	Raw       json.RawMessage `json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
}
