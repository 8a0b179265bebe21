package tunnel

import "time"

// Backdate rewinds an entry's lastUsed timestamp so tests can simulate
// idle time without sleeping.
func (e *Entry) Backdate(d time.Duration) {
	e.lastUsed = e.lastUsed.Add(-d)
}
