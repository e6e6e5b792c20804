package navigation

import "errors"

var (
	// ErrAlreadyActive is returned by Start when the user already has a session.
	ErrAlreadyActive = errors.New("navigation already active for this user")
	// ErrNotFound is returned by control operations when the user has no session.
	ErrNotFound = errors.New("no active navigation found")
	// ErrRouteNotFound is returned by Start when the route does not exist.
	ErrRouteNotFound = errors.New("route not found")
	// ErrClosed is returned by Start once the engine has been shut down.
	ErrClosed = errors.New("navigation engine closed")
)
