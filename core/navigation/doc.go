// Package navigation plays routes back as live, controllable sessions.
//
// The Engine is the session registry: it owns one Session per user, drives
// each session from its own ticker goroutine and is the only way to change a
// session's lifecycle. Every tick moves the session one movement point
// forward, persists the position through the VehicleStore without waiting
// for the write, and broadcasts a location update to the user's channel.
//
// Per-user operations (start, pause, resume, stop, disconnect and the tick)
// serialize on the session mutex. Terminal transitions happen under that
// mutex and remove the session from the registry before releasing it, so a
// tick that loses the race against Stop observes the terminal status and
// discards its work.
//
// Events are queued per session in transition order and handed to the
// Broadcaster by a delivery goroutine, outside the session mutex.
package navigation
