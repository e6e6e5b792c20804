package playback

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/internal/geo"
)

// Mode selects how movement points are spread along the geometry.
type Mode string

const (
	ModeVertex   Mode = "vertex"
	ModeDistance Mode = "distance"
)

// ParseMode validates s. The empty string selects ModeVertex.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case "", ModeVertex:
		return ModeVertex, nil
	case ModeDistance:
		return ModeDistance, nil
	default:
		return "", fmt.Errorf("unknown interpolation mode %q", s)
	}
}

// Builder builds movement points with the configured Mode.
type Builder struct {
	Mode Mode
}

// Build dispatches to Build or BuildWeighted according to b.Mode.
func (b Builder) Build(geometry []model.Point, durationSeconds float64) []model.Point {
	if b.Mode == ModeDistance {
		return BuildWeighted(geometry, durationSeconds)
	}
	return Build(geometry, durationSeconds)
}

// TotalPoints returns max(ceil(durationSeconds), vertices). Non-positive
// durations count as one second.
func TotalPoints(vertices int, durationSeconds float64) int {
	if durationSeconds <= 0 || math.IsNaN(durationSeconds) {
		durationSeconds = 1
	}
	n := int(math.Ceil(durationSeconds))
	if vertices > n {
		n = vertices
	}
	return n
}

// Build returns TotalPoints movement points spread by vertex index. The first
// and last points equal the first and last vertices. A geometry with fewer
// than two vertices is returned unchanged.
func Build(geometry []model.Point, durationSeconds float64) []model.Point {
	if len(geometry) < 2 {
		return geometry
	}
	total := TotalPoints(len(geometry), durationSeconds)
	last := float64(len(geometry) - 1)
	out := make([]model.Point, total)
	for i := range out {
		out[i] = atIndex(geometry, progress(i, total)*last)
	}
	return out
}

// BuildWeighted is Build with points spread by cumulative distance. It falls
// back to Build when the geometry has zero length.
func BuildWeighted(geometry []model.Point, durationSeconds float64) []model.Point {
	if len(geometry) < 2 {
		return geometry
	}
	segs := make([]float64, len(geometry)-1)
	for i := range segs {
		segs[i] = geo.HaversineMeters(geometry[i], geometry[i+1])
	}
	length := floats.Sum(segs)
	if length == 0 {
		return Build(geometry, durationSeconds)
	}
	cum := make([]float64, len(geometry))
	floats.CumSum(cum[1:], segs)

	total := TotalPoints(len(geometry), durationSeconds)
	out := make([]model.Point, total)
	for i := range out {
		target := progress(i, total) * length
		seg := floats.Within(cum, target)
		if seg < 0 {
			// target is at (or rounding pushed it past) the end of the route
			out[i] = geometry[len(geometry)-1]
			continue
		}
		frac := (target - cum[seg]) / segs[seg]
		out[i] = geo.Lerp(geometry[seg], geometry[seg+1], frac)
	}
	return out
}

func progress(i, total int) float64 {
	if total <= 1 {
		return 0
	}
	return float64(i) / float64(total-1)
}

// atIndex interpolates the geometry at fractional vertex index f.
func atIndex(geometry []model.Point, f float64) model.Point {
	idx := int(math.Floor(f))
	if idx >= len(geometry)-1 {
		return geometry[len(geometry)-1]
	}
	return geo.Lerp(geometry[idx], geometry[idx+1], f-float64(idx))
}
