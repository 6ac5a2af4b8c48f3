package audio

import (
	"testing"
	"time"
)

func TestSilenceTrackerFiresOnceAfterHold(t *testing.T) {
	tr := NewSilenceTracker(0.015, time.Second, 100*time.Millisecond)

	for i := 0; i < 9; i++ {
		if tr.Tick(0.001) {
			t.Fatalf("fired after %d ticks, want 10", i+1)
		}
	}
	if !tr.Tick(0.001) {
		t.Fatal("did not fire after accumulating the hold duration")
	}
	// The latch holds: continued silence must not fire again.
	for i := 0; i < 50; i++ {
		if tr.Tick(0.001) {
			t.Fatal("fired a second time during the same pause")
		}
	}
	if !tr.Triggered() {
		t.Fatal("Triggered() = false after firing")
	}
}

func TestSilenceTrackerSoundClearsAccumulation(t *testing.T) {
	tr := NewSilenceTracker(0.015, time.Second, 100*time.Millisecond)

	for i := 0; i < 9; i++ {
		tr.Tick(0.001)
	}
	// A single loud tick, however brief, resets the countdown.
	if tr.Tick(0.5) {
		t.Fatal("fired on a loud tick")
	}
	if got := tr.Accumulated(); got != 0 {
		t.Fatalf("Accumulated() = %v after sound, want 0", got)
	}
	for i := 0; i < 9; i++ {
		if tr.Tick(0.001) {
			t.Fatalf("fired after only %d silent ticks", i+1)
		}
	}
	if !tr.Tick(0.001) {
		t.Fatal("did not fire after a fresh full hold of silence")
	}
}

func TestSilenceTrackerSoundRearmsLatch(t *testing.T) {
	tr := NewSilenceTracker(0.015, 200*time.Millisecond, 100*time.Millisecond)

	tr.Tick(0.001)
	if !tr.Tick(0.001) {
		t.Fatal("did not fire")
	}
	tr.Tick(0.5) // renewed speech
	if tr.Triggered() {
		t.Fatal("latch held after sound")
	}
	tr.Tick(0.001)
	if !tr.Tick(0.001) {
		t.Fatal("did not fire again after sound rearmed the latch")
	}
}

func TestSilenceTrackerBoundaryLoudnessCountsAsSound(t *testing.T) {
	tr := NewSilenceTracker(0.015, 100*time.Millisecond, 100*time.Millisecond)
	if tr.Tick(0.015) {
		t.Fatal("loudness equal to the threshold fired the silence event")
	}
	if got := tr.Accumulated(); got != 0 {
		t.Fatalf("Accumulated() = %v, want 0", got)
	}
}

func TestSilenceTrackerReset(t *testing.T) {
	tr := NewSilenceTracker(0.015, 200*time.Millisecond, 100*time.Millisecond)
	tr.Tick(0.001)
	tr.Tick(0.001)
	if !tr.Triggered() {
		t.Fatal("setup: tracker did not fire")
	}
	tr.Reset()
	if tr.Triggered() || tr.Accumulated() != 0 {
		t.Fatal("Reset did not clear the tracker")
	}
	tr.Tick(0.001)
	if !tr.Tick(0.001) {
		t.Fatal("did not fire after Reset")
	}
}
