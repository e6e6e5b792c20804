package geo

import (
	"testing"

	"github.com/kilianp07/evnav/core/model"
)

func TestHaversineMeters(t *testing.T) {
	// Paris to Lyon is roughly 392 km as the crow flies.
	d := HaversineMeters(model.NewPoint(2.3522, 48.8566), model.NewPoint(4.8357, 45.7640))
	if d < 385000 || d > 400000 {
		t.Fatalf("unexpected distance: %v", d)
	}
	if HaversineMeters(model.NewPoint(1, 1), model.NewPoint(1, 1)) != 0 {
		t.Fatal("expected zero distance for identical points")
	}
}

func TestLerp(t *testing.T) {
	p := Lerp(model.NewPoint(0, 0), model.NewPoint(10, -10), 0.25)
	if p != model.NewPoint(2.5, -2.5) {
		t.Fatalf("unexpected point %v", p)
	}
}
