// Package routing declares the port to the third-party directions service.
package routing

import (
	"context"
	"errors"

	"github.com/kilianp07/evnav/core/model"
)

// ErrProvider is returned (wrapped) for any upstream routing failure.
var ErrProvider = errors.New("routing provider error")

// Provider computes a driving route between two points.
type Provider interface {
	Route(ctx context.Context, start, end model.Point) (model.Route, error)
}
