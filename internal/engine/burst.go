package engine

import (
	"sync"
	"time"
)

// Burst detection defaults.
const (
	DefaultBurstWindow    = 120 * time.Second
	DefaultBurstThreshold = 3
	DefaultBurstCapacity  = 50
)

// BurstWindow remembers recent mention times per token and reports when any
// token has been mentioned often enough within the sliding window.
// Entries are never cleared; each token keeps at most capacity timestamps.
type BurstWindow struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	capacity  int
	mentions  map[string][]time.Time
}

// NewBurstWindow creates a window. Non-positive arguments select the defaults.
func NewBurstWindow(window time.Duration, threshold, capacity int) *BurstWindow {
	if window <= 0 {
		window = DefaultBurstWindow
	}
	if threshold <= 0 {
		threshold = DefaultBurstThreshold
	}
	if capacity <= 0 {
		capacity = DefaultBurstCapacity
	}
	return &BurstWindow{
		window:    window,
		threshold: threshold,
		capacity:  capacity,
		mentions:  make(map[string][]time.Time),
	}
}

// RecordAndCheck appends now to every token, then reports whether any tracked
// token (not only the ones just recorded) is bursting at now.
func (b *BurstWindow) RecordAndCheck(tokens []string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, tok := range tokens {
		ts := append(b.mentions[tok], now)
		if len(ts) > b.capacity {
			n := copy(ts, ts[len(ts)-b.capacity:])
			ts = ts[:n]
		}
		b.mentions[tok] = ts
	}

	for _, ts := range b.mentions {
		if b.bursting(ts, now) {
			return true
		}
	}
	return false
}

// Bursting returns the tokens currently bursting at now, in no particular order.
func (b *BurstWindow) Bursting(now time.Time) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []string
	for tok, ts := range b.mentions {
		if b.bursting(ts, now) {
			out = append(out, tok)
		}
	}
	return out
}

// Mentions returns a copy of the timestamps recorded for token.
func (b *BurstWindow) Mentions(token string) []time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Time(nil), b.mentions[token]...)
}

func (b *BurstWindow) bursting(ts []time.Time, now time.Time) bool {
	recent := 0
	for _, t := range ts {
		if now.Sub(t) < b.window {
			recent++
			if recent >= b.threshold {
				return true
			}
		}
	}
	return false
}
