// Package playback turns a static route geometry into movement points, one
// per simulated second of travel.
//
// The default Builder distributes points by vertex index: every segment of
// the geometry gets the same share of points regardless of its length, so
// vertex-dense parts of a route play back slower in real distance than
// sparse ones. ModeDistance distributes points by cumulative great-circle
// distance instead, which gives a constant ground speed.
package playback
