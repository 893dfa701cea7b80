// Package gesture classifies modifier-key press/release pairs. A brief tap
// triggers the undo-or-translate path; a longer hold is deliberately left
// alone so the key keeps serving whatever else the browser binds it to.
package gesture

import "time"

// DefaultThreshold is the longest press still classified as a tap.
const DefaultThreshold = 250 * time.Millisecond

// Recognizer holds the single-slot press timestamp for one page. It is not
// safe for concurrent use; all events arrive on one event loop.
type Recognizer struct {
	threshold time.Duration

	// pressAt is the pending key-down time; zero means no press seen.
	// A second key-down before key-up simply overwrites the first, so a
	// stuck repeat can never double-schedule a dispatch.
	pressAt time.Time
}

// New creates a Recognizer. A non-positive threshold selects the default.
func New(threshold time.Duration) *Recognizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Recognizer{threshold: threshold}
}

// KeyDown records the press time. Auto-repeat events are ignored so a held
// key does not keep refreshing the timestamp.
func (g *Recognizer) KeyDown(at time.Time, repeat bool) {
	if repeat {
		return
	}
	g.pressAt = at
}

// KeyUp classifies the release. It reports true only for a tap: a release
// within the threshold of a recorded press. A release with no matching
// press (focus moved mid-press) is ignored. The press slot is cleared
// regardless of the outcome.
func (g *Recognizer) KeyUp(at time.Time) bool {
	pressed := g.pressAt
	g.pressAt = time.Time{}
	if pressed.IsZero() {
		return false
	}
	return at.Sub(pressed) <= g.threshold
}
