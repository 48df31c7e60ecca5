package localplan

import (
	"math"

	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// checkCollision ray-marches from pose along angle for
// safetyThreshold/resolution cells, returning true if any cell along the
// ray exceeds 50. ignoreObstacles always returns false, regardless of
// costmap content (P6): it is the spec's override for a robot closing in
// on its final waypoint, where contact is permitted.
func checkCollision(cm *worldmap.Costmap, pose spatialmath.Vector, angle, safetyThreshold float64, ignoreObstacles bool) bool {
	if ignoreObstacles {
		return false
	}
	if cm.Resolution <= 0 {
		return false
	}
	steps := int(safetyThreshold / cm.Resolution)
	px, py := pose.X(), pose.Y()
	dx, dy := math.Cos(angle), math.Sin(angle)
	for i := 1; i <= steps; i++ {
		d := float64(i) * cm.Resolution
		p := spatialmath.NewVector2D(px+dx*d, py+dy*d)
		cell := cm.WorldToGrid(p)
		v := cm.GetValue(cell)
		if v == worldmap.UnknownCost {
			return true
		}
		if v > 50 {
			return true
		}
	}
	return false
}
