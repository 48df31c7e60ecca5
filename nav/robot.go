// Package nav implements the navigation façade (C8): the thin driver
// loop that ticks the local planner at a fixed control frequency until
// the goal is reached, navigation fails, a stop event fires, or a
// timeout elapses.
package nav

import (
	"go.korebot.dev/core/localplan"
	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// Frame names the façade converts between. xy_local goals are expressed
// relative to BaseLinkFrame; the planner and costmap operate in
// OdomFrame.
const (
	BaseLinkFrame = "base_link"
	OdomFrame     = "odom"
)

// VelocityCommand is the façade's output, published to the robot at
// control_frequency and always zeroed on exit.
type VelocityCommand struct {
	VX, VY, Omega float64
}

// Robot is the capability bundle the façade drives: whatever a concrete
// robot (or test fixture) exposes of transforms, the latest costmap,
// current pose, the local planner instance, and a velocity-command sink.
// This is the concrete bundle the generic skill.Robot boundary's doc
// comment names.
type Robot interface {
	Transforms() worldmap.TransformSource
	Costmap() *worldmap.Costmap
	// Pose returns the current base_link position expressed in odom, and
	// the current yaw in radians.
	Pose() (pos spatialmath.Vector, yaw float64)
	Planner() *localplan.Planner
	PublishVelocity(cmd VelocityCommand)
}
