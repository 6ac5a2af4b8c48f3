package audio

import "time"

// SilenceTracker accumulates consecutive silent analysis ticks and latches a
// one-shot sustained-silence event. Any tick at or above the loudness
// threshold clears the accumulation, however brief the sound was; there is
// no decay or averaging.
type SilenceTracker struct {
	threshold float64       // loudness below this counts as silence
	holdFor   time.Duration // sustained silence needed to fire
	interval  time.Duration // duration of one analysis tick

	accumulated time.Duration
	triggered   bool
}

func NewSilenceTracker(threshold float64, holdFor, interval time.Duration) *SilenceTracker {
	return &SilenceTracker{threshold: threshold, holdFor: holdFor, interval: interval}
}

// Tick advances the tracker by one analysis interval and reports whether
// the sustained-silence event fired on this tick. The event is
// edge-triggered: once fired it stays latched, and only renewed sound (or
// Reset) rearms it, so a long pause produces exactly one event.
func (t *SilenceTracker) Tick(loudness float64) bool {
	if loudness >= t.threshold {
		t.accumulated = 0
		t.triggered = false
		return false
	}
	t.accumulated += t.interval
	if !t.triggered && t.accumulated >= t.holdFor {
		t.triggered = true
		return true
	}
	return false
}

// Accumulated returns the silence accumulated so far.
func (t *SilenceTracker) Accumulated() time.Duration { return t.accumulated }

// Triggered reports whether the event has fired and not yet been cleared.
func (t *SilenceTracker) Triggered() bool { return t.triggered }

// Reset rearms the tracker for a new segment.
func (t *SilenceTracker) Reset() {
	t.accumulated = 0
	t.triggered = false
}
