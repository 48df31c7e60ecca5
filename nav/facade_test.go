package nav

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"go.korebot.dev/core/internal/logging"
	"go.korebot.dev/core/localplan"
	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/stream"
	"go.korebot.dev/core/worldmap"
)

// fakeRobot is an in-memory Robot fixture: an identity base_link->odom
// transform (robot sits at the odom origin, no rotation), a small empty
// costmap, and a velocity-command sink the test can inspect.
type fakeRobot struct {
	transforms *worldmap.TransformBuffer
	costmap    *worldmap.Costmap
	planner    *localplan.Planner

	mu   sync.Mutex
	cmds []VelocityCommand
}

func newFakeRobot(planner *localplan.Planner) *fakeRobot {
	buf := worldmap.NewTransformBuffer()
	buf.SetTransform(worldmap.StampedTransform{
		Parent: OdomFrame, Child: BaseLinkFrame,
		Translation: spatialmath.NewZeroVector(3),
		Rotation:    spatialmath.NewZeroVector(3),
		Stamp:       time.Now(),
	})
	cm := worldmap.CreateEmpty(40, 40, 0.1, spatialmath.NewVector2D(-2, -2), 0, 0)
	return &fakeRobot{transforms: buf, costmap: cm, planner: planner}
}

func (r *fakeRobot) Transforms() worldmap.TransformSource { return r.transforms }
func (r *fakeRobot) Costmap() *worldmap.Costmap           { return r.costmap }
func (r *fakeRobot) Pose() (spatialmath.Vector, float64)  { return spatialmath.NewVector2D(0, 0), 0 }
func (r *fakeRobot) Planner() *localplan.Planner          { return r.planner }

func (r *fakeRobot) PublishVelocity(cmd VelocityCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *fakeRobot) lastCmd() VelocityCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmds[len(r.cmds)-1]
}

func newTestPlanner(t *testing.T) *localplan.Planner {
	return localplan.NewPlanner(localplan.DefaultConfig(), logging.NewTestLogger(t))
}

func TestNavigateToGoalLocalReachesGoal(t *testing.T) {
	planner := newTestPlanner(t)
	robot := newFakeRobot(planner)
	cfg := DefaultConfig()
	cfg.ControlFrequency = 50

	ok := NavigateToGoalLocal(context.Background(), robot, cfg, spatialmath.NewVector2D(0.05, 0), nil, 0, 2*time.Second, nil, logging.NewTestLogger(t))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, planner.IsGoalReached(), test.ShouldBeTrue)

	last := robot.lastCmd()
	test.That(t, last.VX, test.ShouldEqual, 0.0)
	test.That(t, last.Omega, test.ShouldEqual, 0.0)
}

func TestNavigateToGoalLocalHonorsKeepDistance(t *testing.T) {
	planner := newTestPlanner(t)
	robot := newFakeRobot(planner)
	cfg := DefaultConfig()
	cfg.ControlFrequency = 50

	// goal 1m ahead, keep_distance 0.9m -> planner's internal goal should
	// land at ~0.1m, close enough to be immediately reached.
	ok := NavigateToGoalLocal(context.Background(), robot, cfg, spatialmath.NewVector2D(1, 0), nil, 0.9, 2*time.Second, nil, logging.NewTestLogger(t))
	test.That(t, ok, test.ShouldBeTrue)
}

func TestNavigateToGoalLocalReturnsFalseOnTimeout(t *testing.T) {
	planner := newTestPlanner(t)
	robot := newFakeRobot(planner)
	cfg := DefaultConfig()
	cfg.ControlFrequency = 50

	// goal far outside the costmap: the planner will never reach it, the
	// timeout must fire first.
	ok := NavigateToGoalLocal(context.Background(), robot, cfg, spatialmath.NewVector2D(50, 0), nil, 0, 100*time.Millisecond, nil, logging.NewTestLogger(t))
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, planner.IsGoalReached(), test.ShouldBeFalse)

	last := robot.lastCmd()
	test.That(t, last.VX, test.ShouldEqual, 0.0)
	test.That(t, last.Omega, test.ShouldEqual, 0.0)
}

func TestNavigateToGoalLocalReturnsFalseWhenStopEventFires(t *testing.T) {
	planner := newTestPlanner(t)
	robot := newFakeRobot(planner)
	cfg := DefaultConfig()
	cfg.ControlFrequency = 50
	stopEvent := stream.NewStopEvent()
	stopEvent.Stop()

	ok := NavigateToGoalLocal(context.Background(), robot, cfg, spatialmath.NewVector2D(50, 0), nil, 0, 2*time.Second, stopEvent, logging.NewTestLogger(t))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNavigatePathLocalFollowsToFinalWaypoint(t *testing.T) {
	planner := newTestPlanner(t)
	robot := newFakeRobot(planner)
	cfg := DefaultConfig()
	cfg.ControlFrequency = 50

	path, err := spatialmath.NewPath(
		spatialmath.NewVector2D(0, 0),
		spatialmath.NewVector2D(0.05, 0),
		spatialmath.NewVector2D(0.1, 0),
	)
	test.That(t, err, test.ShouldBeNil)

	ok := NavigatePathLocal(context.Background(), robot, cfg, path, 2*time.Second, nil, nil, logging.NewTestLogger(t))
	test.That(t, ok, test.ShouldBeTrue)
}
