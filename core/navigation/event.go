package navigation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/evnav/core/model"
)

// EventKind names an event pushed to a user's channel. The values are the
// event names clients subscribe to.
type EventKind string

const (
	EventPosition  EventKind = "location-update"
	EventCompleted EventKind = "navigation-completed"
	EventPaused    EventKind = "navigation-paused"
	EventResumed   EventKind = "navigation-resumed"
	EventStopped   EventKind = "navigation-stopped"
)

// CompletedMessage is the message carried by EventCompleted.
const CompletedMessage = "Navigation completed successfully!"

// PositionUpdate is the payload of EventPosition.
type PositionUpdate struct {
	Position     model.Point `json:"position"`
	Progress     float64     `json:"progress"`
	CurrentIndex int         `json:"currentIndex"`
	TotalPoints  int         `json:"totalPoints"`
	// EstimatedTimeRemaining is in seconds, one per remaining point.
	EstimatedTimeRemaining int `json:"estimatedTimeRemaining"`
}

// Event is one message on a user's broadcast channel.
type Event struct {
	Kind   EventKind
	UserID string
	// Update is set for EventPosition.
	Update PositionUpdate
	// Message is set for EventCompleted.
	Message string
	Time    time.Time
}

type wireEvent struct {
	Type   EventKind       `json:"type"`
	UserID string          `json:"userId"`
	Data   json.RawMessage `json:"data"`
	Time   time.Time       `json:"time"`
}

// MarshalJSON encodes the event as {"type", "userId", "data", "time"}.
func (e Event) MarshalJSON() ([]byte, error) {
	var data any
	switch e.Kind {
	case EventPosition:
		data = e.Update
	case EventCompleted:
		data = struct {
			Message string `json:"message"`
		}{e.Message}
	default:
		data = struct{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{Type: e.Kind, UserID: e.UserID, Data: raw, Time: e.Time})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	ev := Event{Kind: w.Type, UserID: w.UserID, Time: w.Time}
	switch w.Type {
	case EventPosition:
		if err := json.Unmarshal(w.Data, &ev.Update); err != nil {
			return fmt.Errorf("decode %s: %w", w.Type, err)
		}
	case EventCompleted:
		var m struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(w.Data, &m); err != nil {
			return fmt.Errorf("decode %s: %w", w.Type, err)
		}
		ev.Message = m.Message
	case EventPaused, EventResumed, EventStopped:
	default:
		return fmt.Errorf("unknown event type %q", w.Type)
	}
	*e = ev
	return nil
}

// Broadcaster delivers events to the subscribers of a user's channel.
type Broadcaster interface {
	Broadcast(userID string, ev Event)
}
