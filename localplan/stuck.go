package localplan

import (
	"time"

	"go.korebot.dev/core/spatialmath"
)

type poseSample struct {
	pos spatialmath.Vector
	at  time.Time
}

// stuckDetector keeps a ring-buffer of recent (x, y, t) samples spanning
// `window` and separately times how long displacement over that window has
// stayed below `distanceThreshold`: the spec's two distinct knobs are
// `stuck_detection_window_seconds` (how far back to look for displacement)
// and `stuck_time_threshold` (how long the low-displacement condition must
// hold before RECOVERY fires), and conflating them into one duration would
// make a robot creeping just under threshold trigger recovery the instant
// the sample buffer fills, rather than after it's genuinely been stuck for
// stuck_time_threshold.
type stuckDetector struct {
	window        time.Duration
	threshold     float64
	timeThreshold time.Duration
	samples       []poseSample
	belowSince    *time.Time
}

func newStuckDetector(window time.Duration, threshold float64, timeThreshold time.Duration) *stuckDetector {
	return &stuckDetector{window: window, threshold: threshold, timeThreshold: timeThreshold}
}

// Observe records a new pose sample and reports whether the robot has been
// stuck for at least timeThreshold: every sample within the trailing window
// must lie within distanceThreshold of the current pose (the window must
// also be full), and that low-displacement condition must have held
// continuously for timeThreshold.
func (d *stuckDetector) Observe(pos spatialmath.Vector, now time.Time) bool {
	d.samples = append(d.samples, poseSample{pos: pos, at: now})

	// Keep the newest sample at or before the cutoff as the window's
	// anchor, so the retained history spans the whole window once enough
	// samples have accumulated.
	cutoff := now.Add(-d.window)
	i := 0
	for i+1 < len(d.samples) && !d.samples[i+1].at.After(cutoff) {
		i++
	}
	d.samples = d.samples[i:]

	quiet := len(d.samples) > 0 && now.Sub(d.samples[0].at) >= d.window
	if quiet {
		for _, s := range d.samples {
			if pos.Distance2D(s.pos) >= d.threshold {
				quiet = false
				break
			}
		}
	}

	if !quiet {
		d.belowSince = nil
		return false
	}
	if d.belowSince == nil {
		t := now
		d.belowSince = &t
		return false
	}
	return now.Sub(*d.belowSince) >= d.timeThreshold
}

// Reset clears accumulated history, used on RECOVERY exit.
func (d *stuckDetector) Reset() {
	d.samples = nil
	d.belowSince = nil
}
