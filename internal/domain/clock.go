package domain

import "github.com/jonboulle/clockwork"

// clock stamps TweetRecord.ProcessedAt. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the record time source. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
