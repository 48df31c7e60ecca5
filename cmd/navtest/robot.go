package main

import (
	"math"
	"sync"
	"time"

	"go.korebot.dev/core/localplan"
	"go.korebot.dev/core/nav"
	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// simRobot is a self-contained dead-reckoning nav.Robot fixture for the
// navigation-test tool: no real sensors or actuators are attached
// (video/odometry/costmap are external collaborators per spec §6), so
// it integrates its own pose from the velocity commands the façade
// publishes, on an empty costmap, giving the CLI something to drive
// without requiring a live robot.
type simRobot struct {
	costmap *worldmap.Costmap
	planner *localplan.Planner
	tf      *worldmap.TransformBuffer

	mu       sync.Mutex
	pos      spatialmath.Vector
	yaw      float64
	lastTick time.Time
}

func newSimRobot(planner *localplan.Planner) *simRobot {
	cm := worldmap.CreateEmpty(400, 400, 0.05, spatialmath.NewVector2D(-10, -10), 0, 0)
	return &simRobot{
		costmap:  cm,
		planner:  planner,
		tf:       worldmap.NewTransformBuffer(),
		pos:      spatialmath.NewVector2D(0, 0),
		lastTick: time.Now(),
	}
}

func (r *simRobot) Transforms() worldmap.TransformSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tf.SetTransform(worldmap.StampedTransform{
		Parent:      nav.OdomFrame,
		Child:       nav.BaseLinkFrame,
		Translation: spatialmath.NewVector3D(r.pos.X(), r.pos.Y(), 0),
		Rotation:    spatialmath.NewVector3D(0, 0, r.yaw),
		Stamp:       time.Now(),
	})
	return r.tf
}

func (r *simRobot) Costmap() *worldmap.Costmap { return r.costmap }

func (r *simRobot) Pose() (spatialmath.Vector, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos, r.yaw
}

func (r *simRobot) Planner() *localplan.Planner { return r.planner }

// PublishVelocity integrates a unicycle model forward by the wall-clock
// time elapsed since the previous tick, giving the façade's control loop
// a moving pose to converge against.
func (r *simRobot) PublishVelocity(cmd nav.VelocityCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	dt := now.Sub(r.lastTick).Seconds()
	r.lastTick = now
	if dt <= 0 || dt > 1 {
		return
	}

	r.yaw = spatialmath.WrapAngle(r.yaw + cmd.Omega*dt)
	dx := cmd.VX * math.Cos(r.yaw) * dt
	dy := cmd.VX * math.Sin(r.yaw) * dt
	r.pos = spatialmath.NewVector2D(r.pos.X()+dx, r.pos.Y()+dy)
}
