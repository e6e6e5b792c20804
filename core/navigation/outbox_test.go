package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutboxDropsOnlyPositionsWhenFull(t *testing.T) {
	o := newOutbox(2)
	assert.True(t, o.push(Event{Kind: EventPosition}))
	assert.True(t, o.push(Event{Kind: EventPosition}))
	assert.False(t, o.push(Event{Kind: EventPosition}))
	assert.True(t, o.push(Event{Kind: EventPaused}))

	batch, done := o.take()
	assert.False(t, done)
	assert.Len(t, batch, 3)
	assert.Equal(t, EventPaused, batch[2].Kind)

	assert.True(t, o.push(Event{Kind: EventStopped}))
	o.close()
	assert.False(t, o.push(Event{Kind: EventPosition}))
	batch, done = o.take()
	assert.False(t, done)
	assert.Len(t, batch, 1)
	_, done = o.take()
	assert.True(t, done)
}
