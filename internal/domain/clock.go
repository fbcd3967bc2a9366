package domain

import "github.com/jonboulle/clockwork"

// clock supplies the fallback timestamp for posts that carry none.
var clock = clockwork.NewRealClock()

// SetClock swaps the fallback time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
