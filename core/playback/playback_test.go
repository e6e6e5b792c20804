package playback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evnav/core/model"
	"github.com/kilianp07/evnav/internal/geo"
)

func pts(coords ...[2]float64) []model.Point {
	out := make([]model.Point, len(coords))
	for i, c := range coords {
		out[i] = model.Point(c)
	}
	return out
}

func TestBuildLength(t *testing.T) {
	cases := []struct {
		name     string
		vertices int
		duration float64
		want     int
	}{
		{"duration dominates", 3, 10, 10},
		{"fractional duration rounds up", 3, 9.2, 10},
		{"vertices dominate", 25, 4, 25},
		{"zero duration", 2, 0, 2},
		{"negative duration", 4, -3, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := make([]model.Point, tc.vertices)
			for i := range g {
				g[i] = model.NewPoint(float64(i), float64(i)*2)
			}
			got := Build(g, tc.duration)
			assert.Len(t, got, tc.want)
			assert.Equal(t, tc.want, TotalPoints(tc.vertices, tc.duration))
		})
	}
}

func TestBuildEndpoints(t *testing.T) {
	g := pts([2]float64{2.1, 48.3}, [2]float64{2.4, 48.9}, [2]float64{3.7, 49.123456789})
	got := Build(g, 137.4)
	require.Len(t, got, 138)
	assert.Equal(t, g[0], got[0])
	assert.Equal(t, g[len(g)-1], got[len(got)-1])
}

func TestBuildDegenerate(t *testing.T) {
	single := pts([2]float64{1, 1})
	assert.Equal(t, single, Build(single, 30))
	assert.Empty(t, Build(nil, 30))
	assert.Equal(t, single, BuildWeighted(single, 30))
}

func TestBuildEvenLatitudeScenario(t *testing.T) {
	got := Build(pts([2]float64{0, 0}, [2]float64{0, 10}), 10)
	require.Len(t, got, 10)
	step := 10.0 / 9
	for i, p := range got {
		assert.Equal(t, 0.0, p.Lon())
		assert.InDelta(t, float64(i)*step, p.Lat(), 1e-9)
	}
}

func TestBuildSpreadsByVertexIndex(t *testing.T) {
	// A short first leg and a long second leg get the same number of points.
	g := pts([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{0, 10})
	got := Build(g, 5)
	require.Len(t, got, 5)
	assert.InDelta(t, 0.5, got[1].Lat(), 1e-9)
	assert.InDelta(t, 1.0, got[2].Lat(), 1e-9)
	assert.InDelta(t, 5.5, got[3].Lat(), 1e-9)
}

func TestBuildWeightedConstantSpeed(t *testing.T) {
	g := pts([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{0, 10})
	got := BuildWeighted(g, 11)
	require.Len(t, got, 11)
	assert.Equal(t, g[0], got[0])
	assert.Equal(t, g[2], got[10])
	first := geo.HaversineMeters(got[0], got[1])
	for i := 1; i < len(got); i++ {
		d := geo.HaversineMeters(got[i-1], got[i])
		assert.InDelta(t, first, d, first*1e-3, "step %d", i)
	}
}

func TestBuildWeightedZeroLengthFallsBack(t *testing.T) {
	g := pts([2]float64{5, 5}, [2]float64{5, 5})
	got := BuildWeighted(g, 3)
	require.Len(t, got, 3)
	for _, p := range got {
		assert.Equal(t, g[0], p)
	}
}

func TestBuilderModes(t *testing.T) {
	g := pts([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{0, 10})
	v := Builder{Mode: ModeVertex}.Build(g, 5)
	d := Builder{Mode: ModeDistance}.Build(g, 5)
	assert.Len(t, v, 5)
	assert.Len(t, d, 5)
	assert.False(t, math.Abs(v[1].Lat()-d[1].Lat()) < 1e-6, "modes should differ on uneven geometry")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeVertex, m)
	m, err = ParseMode("Distance")
	require.NoError(t, err)
	assert.Equal(t, ModeDistance, m)
	_, err = ParseMode("spline")
	assert.Error(t, err)
}
