package globalplan

import (
	"testing"

	"go.viam.com/test"

	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// gridWithWall builds a 20x20 1m/cell costmap, free everywhere except a
// vertical wall at x=10 spanning the full height except a one-cell gap at
// y=10 — the spec's seed scenario 3 ("A* finds a path around a wall").
func gridWithWall(gapY int) *worldmap.Costmap {
	cm := worldmap.CreateEmpty(20, 20, 1.0, spatialmath.NewVector2D(0, 0), 0, 0)
	for y := 0; y < 20; y++ {
		if y == gapY {
			continue
		}
		cm.SetValue(worldmap.Cell{X: 10, Y: y}, 100)
	}
	return cm
}

func TestPlanFindsPathThroughWallGap(t *testing.T) {
	cm := gridWithWall(10)
	start := spatialmath.NewVector2D(2, 2)
	goal := spatialmath.NewVector2D(18, 18)

	path, err := Plan(cm, start, goal, DefaultOptions())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Len(), test.ShouldBeGreaterThan, 1)

	// the path must cross x=10 only at the gap row.
	crossed := false
	for _, pt := range path.Points() {
		cell := cm.WorldToGrid(pt)
		if cell.X == 10 {
			crossed = true
			test.That(t, cell.Y, test.ShouldEqual, 10)
		}
	}
	test.That(t, crossed, test.ShouldBeTrue)
}

// TestPlanFirstAndLastWaypoints checks P8: the returned path's first point
// is the start cell's grid-to-world point (here equal to the requested
// start, which lies on a cell corner) and its last point is the requested
// goal.
func TestPlanFirstAndLastWaypoints(t *testing.T) {
	cm := gridWithWall(10)
	start := spatialmath.NewVector2D(2, 2)
	goal := spatialmath.NewVector2D(18, 18)

	path, err := Plan(cm, start, goal, DefaultOptions())
	test.That(t, err, test.ShouldBeNil)

	head, ok := path.Head()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, head.Equal(start), test.ShouldBeTrue)

	tail, ok := path.Tail()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, tail.Equal(goal), test.ShouldBeTrue)
}

// TestPlanFirstWaypointReflectsRepairedStart places the requested start
// inside an occupied cell, forcing repairCell to relocate it. P8 calls the
// first waypoint the "(possibly repaired) start", so it must be the
// repaired cell's grid-to-world value, not the literal requested point.
func TestPlanFirstWaypointReflectsRepairedStart(t *testing.T) {
	cm := worldmap.CreateEmpty(10, 10, 1.0, spatialmath.NewVector2D(0, 0), 0, 0)
	startCell := worldmap.Cell{X: 1, Y: 1}
	cm.SetValue(startCell, 100)

	start := spatialmath.NewVector2D(1, 1)
	goal := spatialmath.NewVector2D(8, 1)

	opts := DefaultOptions()
	repairedStart, ok := repairCell(cm, startCell, opts.CostThreshold, opts.MaxSearchRadius)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, repairedStart, test.ShouldNotEqual, startCell)

	path, err := Plan(cm, start, goal, opts)
	test.That(t, err, test.ShouldBeNil)

	head, ok := path.Head()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, head.Equal(start), test.ShouldBeFalse)
	test.That(t, head.Equal(cm.GridToWorld(repairedStart)), test.ShouldBeTrue)
}

func TestPlanStartEqualsGoalReturnsSinglePoint(t *testing.T) {
	cm := worldmap.CreateEmpty(10, 10, 1.0, spatialmath.NewVector2D(0, 0), 0, 0)
	pt := spatialmath.NewVector2D(5, 5)

	path, err := Plan(cm, pt, pt, DefaultOptions())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Len(), test.ShouldEqual, 1)
}

// TestPlanEnclosedPocketFails places the goal inside a fully-enclosed
// 1-cell pocket with no free neighbor within MaxSearchRadius — the search
// must report failure rather than hang or panic.
func TestPlanEnclosedPocketFails(t *testing.T) {
	cm := worldmap.CreateEmpty(10, 10, 1.0, spatialmath.NewVector2D(0, 0), 0, 0)
	for y := 3; y <= 5; y++ {
		for x := 3; x <= 5; x++ {
			if x == 4 && y == 4 {
				continue
			}
			cm.SetValue(worldmap.Cell{X: x, Y: y}, 100)
		}
	}

	opts := DefaultOptions()
	opts.MaxSearchRadius = 0
	start := spatialmath.NewVector2D(0, 0)
	goal := spatialmath.NewVector2D(4, 4)

	_, err := Plan(cm, start, goal, opts)
	test.That(t, err, test.ShouldEqual, ErrPlannerFailure)
}

func TestPlanPenalizesNearObstacleCells(t *testing.T) {
	cm := worldmap.CreateEmpty(10, 10, 1.0, spatialmath.NewVector2D(0, 0), 0, 0)
	for y := 0; y < 10; y++ {
		cm.SetValue(worldmap.Cell{X: 5, Y: y}, 40)
	}
	cm.SetValue(worldmap.Cell{X: 5, Y: 5}, 0)

	start := spatialmath.NewVector2D(0, 5)
	goal := spatialmath.NewVector2D(9, 5)

	path, err := Plan(cm, start, goal, DefaultOptions())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Len(), test.ShouldBeGreaterThan, 0)
}
