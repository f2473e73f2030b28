package usgs

import "github.com/jonboulle/clockwork"

// clock anchors the 200-year lookback window so tests can freeze "now".
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for query windows. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
