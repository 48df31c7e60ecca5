package localplan

import (
	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// goalTarget is a single-goal destination with an optional orientation.
type goalTarget struct {
	pos       spatialmath.Vector
	hasTheta  bool
	theta     float64
}

// repairGoal walks from goal toward robot along their line of sight in
// cm.Resolution-sized steps until it finds a point that is both
// unoccupied and has at least clearance meters of separation from any
// occupied cell, or reaches the robot's own position. If goal is already
// valid, it is returned unchanged (the spec's repair-of-a-valid-goal
// round-trip).
func repairGoal(cm *worldmap.Costmap, robot, goal spatialmath.Vector, threshold int8, clearance float64) spatialmath.Vector {
	if isValidGoal(cm, goal, threshold, clearance) {
		return goal
	}

	dist := goal.Distance2D(robot)
	if dist < 1e-9 {
		return robot
	}
	dir := spatialmath.NewVector2D((robot.X()-goal.X())/dist, (robot.Y()-goal.Y())/dist)
	step := cm.Resolution
	if step <= 0 {
		step = 0.05
	}

	for d := step; d < dist; d += step {
		candidate := spatialmath.NewVector2D(goal.X()+dir.X()*d, goal.Y()+dir.Y()*d)
		if isValidGoal(cm, candidate, threshold, clearance) {
			return candidate
		}
	}
	return robot
}

func isValidGoal(cm *worldmap.Costmap, p spatialmath.Vector, threshold int8, clearance float64) bool {
	if cm.IsOccupied(p, threshold) {
		return false
	}
	if clearance <= 0 {
		return true
	}
	cell := cm.WorldToGrid(p)
	radiusCells := int(clearance/cm.Resolution) + 1
	for dy := -radiusCells; dy <= radiusCells; dy++ {
		for dx := -radiusCells; dx <= radiusCells; dx++ {
			nc := worldmap.Cell{X: cell.X + dx, Y: cell.Y + dy}
			world := cm.GridToWorld(nc)
			if world.Distance2D(p) > clearance {
				continue
			}
			if cm.IsOccupiedCell(nc, threshold) {
				return false
			}
		}
	}
	return true
}
