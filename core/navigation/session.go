package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/evnav/core/model"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == StatusStopped || s == StatusCompleted }

// Session is the live playback of one user's route. Its fields are only
// touched by the Engine, under mu.
type Session struct {
	userID    string
	routeID   string
	startTime time.Time
	points    []model.Point
	out       *outbox

	mu     sync.Mutex
	index  int
	status Status
	cancel context.CancelFunc
}

func newSession(userID, routeID string, points []model.Point, pending int, cancel context.CancelFunc) *Session {
	return &Session{
		userID:    userID,
		routeID:   routeID,
		startTime: time.Now(),
		points:    points,
		out:       newOutbox(pending),
		status:    StatusActive,
		cancel:    cancel,
	}
}

// Snapshot is a point-in-time copy of a session for diagnostics.
type Snapshot struct {
	UserID       string       `json:"userId"`
	RouteID      string       `json:"routeId"`
	Status       Status       `json:"status"`
	CurrentIndex int          `json:"currentIndex"`
	TotalPoints  int          `json:"totalPoints"`
	Progress     float64      `json:"progress"`
	Position     *model.Point `json:"position,omitempty"`
	StartTime    time.Time    `json:"startTime"`
}

// snapshot must be called with s.mu held.
func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		UserID:       s.userID,
		RouteID:      s.routeID,
		Status:       s.status,
		CurrentIndex: s.index,
		TotalPoints:  len(s.points),
		StartTime:    s.startTime,
	}
	if len(s.points) > 0 {
		snap.Progress = float64(s.index) / float64(len(s.points)) * 100
		// last emitted position
		if s.index > 0 {
			p := s.points[s.index-1]
			snap.Position = &p
		}
	}
	return snap
}
