package localplan

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.korebot.dev/core/internal/logging"
	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// TestStuckDetectorRequiresFullWindowThenFullTimeThreshold pins the two
// distinct knobs apart: the window alone (time span of sample history)
// isn't the stuck signal — the low-displacement condition it computes
// must then additionally hold continuously for timeThreshold before
// Observe reports stuck. Neither knob alone accounts for the total delay
// before the first true: window (200ms) must accumulate before the
// low-displacement condition can even start being timed, and then
// timeThreshold (300ms) more must elapse on top of that.
func TestStuckDetectorRequiresFullWindowThenFullTimeThreshold(t *testing.T) {
	window := 200 * time.Millisecond
	timeThreshold := 300 * time.Millisecond
	d := newStuckDetector(window, 0.05, timeThreshold)
	pos := spatialmath.NewVector2D(0, 0)
	now := time.Unix(0, 0)

	// A run barely longer than the window, but much shorter than
	// window+timeThreshold, must never report stuck.
	shortRunEnd := now.Add(window + 50*time.Millisecond)
	for t2 := now.Add(50 * time.Millisecond); !t2.After(shortRunEnd); t2 = t2.Add(50 * time.Millisecond) {
		test.That(t, d.Observe(pos, t2), test.ShouldBeFalse)
		now = t2
	}

	// Running well past window+timeThreshold must eventually report stuck.
	longRunEnd := now.Add(window + timeThreshold)
	stuck := false
	for t2 := now.Add(50 * time.Millisecond); !t2.After(longRunEnd) && !stuck; t2 = t2.Add(50 * time.Millisecond) {
		stuck = d.Observe(pos, t2)
		now = t2
	}
	test.That(t, stuck, test.ShouldBeTrue)
}

// TestStuckDetectorResetsOnMovement confirms displacement above threshold
// clears the low-displacement timer rather than merely pausing it.
func TestStuckDetectorResetsOnMovement(t *testing.T) {
	d := newStuckDetector(100*time.Millisecond, 0.05, 100*time.Millisecond)
	now := time.Unix(0, 0)

	for i := 0; i < 3; i++ {
		now = now.Add(50 * time.Millisecond)
		test.That(t, d.Observe(spatialmath.NewVector2D(0, 0), now), test.ShouldBeFalse)
	}

	// A displacement above threshold must reset the timer: immediately
	// after, it is not yet stuck even though the window is still full.
	now = now.Add(50 * time.Millisecond)
	test.That(t, d.Observe(spatialmath.NewVector2D(1, 0), now), test.ShouldBeFalse)

	now = now.Add(50 * time.Millisecond)
	test.That(t, d.Observe(spatialmath.NewVector2D(1, 0), now), test.ShouldBeFalse)
}

// TestStuckDetectorReset confirms Reset clears both sample history and the
// low-displacement timer, used on RECOVERY exit.
func TestStuckDetectorReset(t *testing.T) {
	d := newStuckDetector(50*time.Millisecond, 0.05, 50*time.Millisecond)
	now := time.Unix(0, 0)
	for i := 0; i < 4; i++ {
		now = now.Add(30 * time.Millisecond)
		d.Observe(spatialmath.NewVector2D(0, 0), now)
	}
	d.Reset()
	test.That(t, len(d.samples), test.ShouldEqual, 0)
	test.That(t, d.belowSince, test.ShouldBeNil)
}

// TestPlannerEntersRecoveryThenFailsWhenStuck is the planner-level
// integration of stuck detection and the RECOVERY state machine: a robot
// whose pose never changes, far from its goal, must transition
// WAYPOINT_FOLLOW -> RECOVERY (reverse, then rotate) and finally
// FAILED once the recovery sequence exhausts without the robot escaping.
// DESIGN.md's C5 section cites benbjohnson/clock specifically so this
// transition can be driven deterministically instead of with wall time.
func TestPlannerEntersRecoveryThenFailsWhenStuck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StuckDetectionWindow = 200 * time.Millisecond
	cfg.StuckDistanceThreshold = 0.05
	cfg.StuckTimeThreshold = 200 * time.Millisecond
	cfg.RecoveryReverseDuration = 100 * time.Millisecond
	cfg.RecoveryRotateDuration = 100 * time.Millisecond

	mockClock := clock.NewMock()
	p := NewPlanner(cfg, logging.NewTestLogger(t), WithClock(mockClock))

	grid := make([]int8, 200*200)
	cm, err := worldmap.NewCostmap(200, 200, 0.1, spatialmath.NewVector2D(0, 0), 0, grid)
	test.That(t, err, test.ShouldBeNil)

	pose := spatialmath.NewVector2D(1, 1)
	p.SetGoal(spatialmath.NewVector2D(15, 1), nil)

	sawRecovery := false
	sawReverse := false
	for i := 0; i < 20; i++ {
		v, _ := p.Plan(cm, pose, 0, 50)
		if p.State() == StateRecovery {
			sawRecovery = true
			if v < 0 {
				sawReverse = true
			}
		}
		mockClock.Add(50 * time.Millisecond)
	}

	test.That(t, sawRecovery, test.ShouldBeTrue)
	test.That(t, sawReverse, test.ShouldBeTrue)
	test.That(t, p.State(), test.ShouldEqual, StateFailed)
	test.That(t, p.NavigationFailed(), test.ShouldBeTrue)
}
