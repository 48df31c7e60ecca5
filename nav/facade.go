package nav

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"go.korebot.dev/core/internal/logging"
	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/stream"
)

// NavigateToGoalLocal drives robot to a single xy_local goal (relative to
// base_link) with an optional final heading theta, ticking the local
// planner at cfg.ControlFrequency until the goal is reached, navigation
// fails, stopEvent fires, or timeout elapses. It always stops the robot
// before returning.
func NavigateToGoalLocal(
	ctx context.Context,
	robot Robot,
	cfg Config,
	xyLocal spatialmath.Vector,
	theta *float64,
	keepDistance float64,
	timeout time.Duration,
	stopEvent *stream.StopEvent,
	logger logging.Logger,
) bool {
	shortened := shortenAlongBearing(xyLocal, keepDistance)

	odomGoal, err := robot.Transforms().TransformPoint(shortened, BaseLinkFrame, OdomFrame)
	if err != nil {
		if logger != nil {
			logger.Errorw("navigate_to_goal_local: transform failed", "error", err)
		}
		return false
	}

	robot.Planner().SetGoal(odomGoal, theta)
	return runControlLoop(ctx, robot, cfg, timeout, stopEvent, logger)
}

// NavigatePathLocal is the waypoint analogue of NavigateToGoalLocal: path
// points are already expressed in odom (the frame the planner and
// costmap operate in), with an optional final heading theta.
func NavigatePathLocal(
	ctx context.Context,
	robot Robot,
	cfg Config,
	path spatialmath.Path,
	timeout time.Duration,
	theta *float64,
	stopEvent *stream.StopEvent,
	logger logging.Logger,
) bool {
	robot.Planner().SetPath(path, theta)
	return runControlLoop(ctx, robot, cfg, timeout, stopEvent, logger)
}

// shortenAlongBearing shortens xyLocal along its own bearing by
// keepDistance when keepDistance is positive and smaller than the
// distance to the original point, leaving xyLocal unchanged otherwise.
func shortenAlongBearing(xyLocal spatialmath.Vector, keepDistance float64) spatialmath.Vector {
	norm := xyLocal.Length()
	if keepDistance <= 0 || norm <= keepDistance {
		return xyLocal
	}
	return xyLocal.Normalize().Scale(norm - keepDistance)
}

// runControlLoop is the shared tick loop behind both entry points: it
// always zeroes the velocity command in its finally arm regardless of
// which exit condition fired first.
func runControlLoop(
	ctx context.Context,
	robot Robot,
	cfg Config,
	timeout time.Duration,
	stopEvent *stream.StopEvent,
	logger logging.Logger,
) bool {
	planner := robot.Planner()
	limiter := rate.NewLimiter(rate.Limit(cfg.ControlFrequency), 1)

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	defer robot.PublishVelocity(VelocityCommand{})

	for {
		if planner.IsGoalReached() {
			return true
		}
		if planner.NavigationFailed() {
			return false
		}
		if stopEvent != nil && stopEvent.IsSet() {
			return false
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			if logger != nil {
				logger.Warnw("navigation façade timed out")
			}
			return false
		}

		if err := limiter.Wait(ctx); err != nil {
			return false
		}

		pos, yaw := robot.Pose()
		v, omega := planner.Plan(robot.Costmap(), pos, yaw, cfg.CostThreshold)
		robot.PublishVelocity(VelocityCommand{VX: v, Omega: omega})
	}
}
