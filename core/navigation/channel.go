package navigation

import (
	"sync"

	"github.com/kilianp07/evnav/internal/eventbus"
)

// Channel is the in-process Broadcaster: one keyed bus partition per user.
type Channel struct {
	bus *eventbus.Keyed[string, Event]
}

// NewChannel returns a Channel whose subscribers buffer up to buffer events.
func NewChannel(buffer int) *Channel {
	return &Channel{bus: eventbus.NewKeyed[string, Event](buffer)}
}

// Broadcast implements Broadcaster.
func (c *Channel) Broadcast(userID string, ev Event) {
	c.bus.Publish(userID, ev)
}

// Subscription is a connection bound to one user's channel.
type Subscription struct {
	UserID string
	C      <-chan Event

	once   sync.Once
	cancel func()
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Join binds a new subscriber to userID's channel. It only sees events
// broadcast after Join returns.
func (c *Channel) Join(userID string) *Subscription {
	ch := c.bus.Subscribe(userID)
	return &Subscription{
		UserID: userID,
		C:      ch,
		cancel: func() { c.bus.Unsubscribe(userID, ch) },
	}
}

// Subscribers returns the number of connections joined to userID.
func (c *Channel) Subscribers(userID string) int { return c.bus.Subscribers(userID) }

// Close closes every subscription channel.
func (c *Channel) Close() { c.bus.Close() }
