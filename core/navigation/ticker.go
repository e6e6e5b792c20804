package navigation

import "time"

// Ticker is the scheduling handle of a session.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates the ticker driving one session.
type TickerFactory func(d time.Duration) Ticker

type wallTicker struct{ *time.Ticker }

func (t wallTicker) C() <-chan time.Time { return t.Ticker.C }

// NewWallTicker is the default TickerFactory, backed by time.Ticker. Ticks
// are wall-clock paced and are not compensated for time spent in the tick.
func NewWallTicker(d time.Duration) Ticker { return wallTicker{time.NewTicker(d)} }
