package localplan

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"go.korebot.dev/core/internal/logging"
	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// Planner runs the per-tick VFH + Pure Pursuit state machine described in
// the package doc. A single Planner is driven by one serialized caller
// (the navigation façade); it holds no internal goroutines of its own.
type Planner struct {
	cfg    Config
	clock  clock.Clock
	logger logging.Logger

	mu               sync.Mutex
	state            State
	goal             *goalTarget
	path             spatialmath.Path
	usingPath        bool
	lastAngle        float64
	haveLastAngle    bool
	lastV            float64
	ignoreObstacles  bool
	stuck            *stuckDetector
	preStuckState    State
	recoveryStart    time.Time
	recoveryStartPos spatialmath.Vector
	recoveryDir      float64
	navigationFailed bool
}

// PlannerOption configures a Planner at construction.
type PlannerOption func(*Planner)

// WithClock overrides the clock used for recovery timing and stuck
// detection (tests inject a fake clock here).
func WithClock(c clock.Clock) PlannerOption {
	return func(p *Planner) { p.clock = c }
}

// NewPlanner builds an idle Planner.
func NewPlanner(cfg Config, logger logging.Logger, opts ...PlannerOption) *Planner {
	p := &Planner{
		cfg:    cfg,
		clock:  clock.New(),
		logger: logger,
		state:  StateIdle,
		stuck:  newStuckDetector(cfg.StuckDetectionWindow, cfg.StuckDistanceThreshold, cfg.StuckTimeThreshold),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the planner's current PlannerState.
func (p *Planner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// NavigationFailed reports whether recovery has exhausted.
func (p *Planner) NavigationFailed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.navigationFailed
}

// IsGoalReached reports whether the planner has reached DONE (position
// and, if requested, orientation satisfied).
func (p *Planner) IsGoalReached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateDone
}

// SetGoal installs a single-point goal with optional heading, transitions
// IDLE -> WAYPOINT_FOLLOW, and clears any previously active path.
func (p *Planner) SetGoal(pos spatialmath.Vector, theta *float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := &goalTarget{pos: pos}
	if theta != nil {
		g.hasTheta = true
		g.theta = *theta
	}
	p.goal = g
	p.usingPath = false
	p.path = spatialmath.Path{}
	p.state = StateWaypointFollow
	p.navigationFailed = false
	p.haveLastAngle = false
	p.stuck.Reset()
}

// SetPath installs a waypoint path with an optional final heading.
func (p *Planner) SetPath(path spatialmath.Path, theta *float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
	p.usingPath = true
	last, ok := path.Tail()
	g := &goalTarget{}
	if ok {
		g.pos = last
	}
	if theta != nil {
		g.hasTheta = true
		g.theta = *theta
	}
	p.goal = g
	p.state = StateWaypointFollow
	p.navigationFailed = false
	p.haveLastAngle = false
	p.stuck.Reset()
}

// Plan runs one control-loop tick against the latest costmap and pose
// (pose.X/Y is the base_link->odom position, yaw is the heading in
// radians), returning the commanded (v, omega). It always stops the robot
// (v=0, omega=0) once IsGoalReached or NavigationFailed is true.
func (p *Planner) Plan(cm *worldmap.Costmap, pose spatialmath.Vector, yaw float64, threshold int8) (v, omega float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()

	if p.state == StateIdle || p.state == StateDone || p.state == StateFailed || p.goal == nil {
		return 0, 0
	}
	if p.usingPath && p.path.Len() == 0 {
		return 0, 0
	}

	if p.state == StateRecovery {
		// Escape once the robot has put enough distance between itself
		// and where recovery began; otherwise keep executing the timed
		// reverse/rotate sequence.
		if pose.Distance2D(p.recoveryStartPos) >= p.cfg.StuckDistanceThreshold*3 {
			p.state = p.preStuckState
			p.stuck.Reset()
		} else {
			return p.runRecoveryLocked(now)
		}
	} else if p.checkStuckLocked(pose, now) {
		return p.runRecoveryLocked(now)
	}

	repaired := repairGoal(cm, pose, p.goal.pos, threshold, 0)
	dGoalFinal := repaired.Distance2D(pose)
	p.ignoreObstacles = dGoalFinal <= p.cfg.SafeGoalDistance

	reachedFinal := dGoalFinal <= p.cfg.PositionTolerance
	if p.state != StateOrienting && (p.state == StatePositionReached || reachedFinal) {
		p.state = StatePositionReached
	}

	if p.state == StatePositionReached || p.state == StateOrienting {
		if !p.goal.hasTheta {
			p.state = StateDone
			return 0, 0
		}
		dYaw := spatialmath.AngleDiff(yaw, p.goal.theta)
		if math.Abs(dYaw) <= p.cfg.AngleTolerance {
			p.state = StateDone
			return 0, 0
		}
		p.state = StateOrienting
		omega = clamp(sign(dYaw)*math.Min(2*math.Abs(dYaw), p.cfg.OmegaMax), -p.cfg.OmegaMax, p.cfg.OmegaMax)
		return 0, omega
	}

	target := repaired
	if p.usingPath && p.path.Len() > 0 {
		lookaheadPt, _ := lookaheadTarget(p.path, pose, p.cfg.LookaheadDistance)
		target = lookaheadPt
	}

	dGoal := target.Distance2D(pose)

	goalAngle := math.Atan2(target.Y()-pose.Y(), target.X()-pose.X()) - yaw
	goalAngle = spatialmath.WrapAngle(goalAngle)

	histRadius := p.cfg.SafetyThreshold * 4
	hist := buildHistogram(cm, pose, p.cfg.HistogramBins, histRadius)
	prevAngle := goalAngle
	if p.haveLastAngle {
		prevAngle = p.lastAngle
	}
	selected := selectDirection(hist, goalAngle, prevAngle, p.cfg.WeightObstacle, p.cfg.WeightGoal, p.cfg.WeightPrevious, p.haveLastAngle)

	worldSelected := spatialmath.WrapAngle(selected + yaw)
	if checkCollision(cm, pose, worldSelected, p.cfg.SafetyThreshold, p.ignoreObstacles) {
		selected = selectDirection(hist, goalAngle, prevAngle, p.cfg.WeightObstacle, 0, 0, false)
		worldSelected = spatialmath.WrapAngle(selected + yaw)
		if checkCollision(cm, pose, yaw, p.cfg.SafetyThreshold, p.ignoreObstacles) {
			v, omega = 0, 0
			p.lastV = p.lastV*(1-p.cfg.VelocityLowPassFactor) + v*p.cfg.VelocityLowPassFactor
			p.lastAngle = selected
			p.haveLastAngle = true
			return p.lastV, omega
		}
	}

	v, omega = pursuitVelocity(selected, dGoal, p.cfg.LookaheadDistance, p.cfg.VMax, p.cfg.OmegaMax)
	p.lastV = p.lastV*(1-p.cfg.VelocityLowPassFactor) + v*p.cfg.VelocityLowPassFactor
	p.lastAngle = selected
	p.haveLastAngle = true

	return p.lastV, omega
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// checkStuckLocked feeds the stuck detector and, if it fires while not
// already within 2x safe_goal_distance of goal, flips into RECOVERY.
func (p *Planner) checkStuckLocked(pose spatialmath.Vector, now time.Time) bool {
	if p.state == StateRecovery {
		return false
	}
	if !p.stuck.Observe(pose, now) {
		return false
	}
	if p.goal != nil && p.goal.pos.Distance2D(pose) <= 2*p.cfg.SafeGoalDistance {
		p.state = StatePositionReached
		p.stuck.Reset()
		return false
	}
	p.preStuckState = p.state
	p.state = StateRecovery
	p.recoveryStart = now
	p.recoveryStartPos = pose
	p.recoveryDir = 1
	if rand.Float64() < 0.5 {
		p.recoveryDir = -1
	}
	return true
}

// runRecoveryLocked executes the spec's timed recovery behavior: reverse
// for RecoveryReverseDuration, then rotate for RecoveryRotateDuration,
// then give up and mark navigation failed.
func (p *Planner) runRecoveryLocked(now time.Time) (v, omega float64) {
	elapsed := now.Sub(p.recoveryStart)
	switch {
	case elapsed < p.cfg.RecoveryReverseDuration:
		return -p.cfg.RecoveryReverseSpeed, 0
	case elapsed < p.cfg.RecoveryReverseDuration+p.cfg.RecoveryRotateDuration:
		return 0, p.recoveryDir * p.cfg.RecoveryRotateFraction * p.cfg.OmegaMax
	default:
		p.navigationFailed = true
		p.state = StateFailed
		if p.logger != nil {
			p.logger.Warnw("local planner recovery exhausted, navigation failed")
		}
		return 0, 0
	}
}
