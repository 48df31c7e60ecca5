// Package globalplan implements the 8-connected A* global planner (C4):
// endpoint repair via nearest-free BFS, obstacle-proximity-penalized
// search, and path reconstruction back into world coordinates.
package globalplan

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"

	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// ErrPlannerFailure is returned when the open set exhausts without
// reaching the goal, or when an invalid endpoint cannot be repaired
// within MaxSearchRadius.
var ErrPlannerFailure = errors.New("globalplan: no path found")

// Options tunes the search. The zero value is not directly usable; call
// DefaultOptions and override fields as needed.
type Options struct {
	CostThreshold   int8
	DiagonalCost    float64
	StraightCost    float64
	MaxSearchRadius int
}

// DefaultOptions returns the spec's defaults: cost_threshold 90,
// diagonal cost 1.42, straight cost 1.0, search radius 20 cells.
func DefaultOptions() Options {
	return Options{CostThreshold: 90, DiagonalCost: 1.42, StraightCost: 1.0, MaxSearchRadius: 20}
}

var neighborOffsets = []worldmap.Cell{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

func isDiagonal(off worldmap.Cell) bool {
	return off.X != 0 && off.Y != 0
}

// repairCell BFS's outward (8-connected) from cell for the nearest cell
// that is in-bounds and below threshold, within radius. It returns the
// original cell unchanged (and true) if it's already valid.
func repairCell(cm *worldmap.Costmap, cell worldmap.Cell, threshold int8, radius int) (worldmap.Cell, bool) {
	if cm.InBounds(cell) && !cm.IsOccupiedCell(cell, threshold) {
		return cell, true
	}
	visited := map[worldmap.Cell]bool{cell: true}
	queue := []worldmap.Cell{cell}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if abs(cur.X-cell.X) > radius || abs(cur.Y-cell.Y) > radius {
			continue
		}
		for _, off := range neighborOffsets {
			next := worldmap.Cell{X: cur.X + off.X, Y: cur.Y + off.Y}
			if visited[next] {
				continue
			}
			visited[next] = true
			if !cm.InBounds(next) {
				continue
			}
			if !cm.IsOccupiedCell(next, threshold) {
				return next, true
			}
			queue = append(queue, next)
		}
	}
	return worldmap.Cell{}, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type openEntry struct {
	cell       worldmap.Cell
	f, g       float64
	insertSeq  int
	index      int
}

type openQueue []*openEntry

func (q openQueue) Len() int { return len(q) }
func (q openQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].insertSeq < q[j].insertSeq
}
func (q openQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}
func (q *openQueue) Push(x interface{}) {
	e := x.(*openEntry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *openQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

func heuristic(a, b worldmap.Cell) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func stepCost(cm *worldmap.Costmap, to worldmap.Cell, base float64) float64 {
	v := cm.GetValue(to)
	penalty := 0.0
	if v != worldmap.UnknownCost {
		penalty = float64(v) / 25.0
	}
	return base * (1 + penalty)
}

// Plan searches an 8-connected grid from start to goal, returning a world
// -frame Path. Both endpoints are repaired via nearest-free BFS if they
// start out-of-bounds or occupied (GoalInvalid handling); repair failure
// downgrades to ErrPlannerFailure, matching the spec's error taxonomy.
func Plan(cm *worldmap.Costmap, start, goal spatialmath.Vector, opts Options) (spatialmath.Path, error) {
	start2D := spatialmath.NewVector2D(start.X(), start.Y())
	goal2D := spatialmath.NewVector2D(goal.X(), goal.Y())

	startCell := cm.WorldToGrid(start)
	goalCell := cm.WorldToGrid(goal)

	if startCell == goalCell {
		single, _ := spatialmath.NewPath(start2D)
		return single, nil
	}

	repairedStart, ok := repairCell(cm, startCell, opts.CostThreshold, opts.MaxSearchRadius)
	if !ok {
		return spatialmath.Path{}, ErrPlannerFailure
	}

	repairedGoal, ok := repairCell(cm, goalCell, opts.CostThreshold, opts.MaxSearchRadius)
	if !ok {
		return spatialmath.Path{}, ErrPlannerFailure
	}
	goalWasRepaired := repairedGoal != goalCell

	cells, err := search(cm, repairedStart, repairedGoal, opts)
	if err != nil {
		return spatialmath.Path{}, err
	}

	// cells[0] is always repairedStart: the first waypoint is always the
	// (possibly repaired) start's grid-to-world value (P8), never the
	// literal request — if start needed repair it was out of bounds or
	// occupied, so the literal point was never a valid path vertex to
	// begin with.
	points := make([]spatialmath.Vector, 0, len(cells)+1)
	for _, c := range cells {
		points = append(points, cm.GridToWorld(c))
	}

	// The A* cell chain always ends at repairedGoal; when the goal itself
	// needed repair, append the original goal so callers still see their
	// requested destination as the path's final waypoint (P8). Otherwise
	// replace the repaired-goal's grid-quantized point with the caller's
	// exact literal goal.
	if goalWasRepaired {
		points = append(points, goal2D)
	} else if !points[len(points)-1].Equal(goal2D) {
		points[len(points)-1] = goal2D
	}

	return spatialmath.NewPath(points...)
}

func search(cm *worldmap.Costmap, start, goal worldmap.Cell, opts Options) ([]worldmap.Cell, error) {
	open := &openQueue{}
	heap.Init(open)
	seq := 0
	startEntry := &openEntry{cell: start, f: heuristic(start, goal), g: 0, insertSeq: seq}
	heap.Push(open, startEntry)

	gScore := map[worldmap.Cell]float64{start: 0}
	cameFrom := map[worldmap.Cell]worldmap.Cell{}
	closed := map[worldmap.Cell]bool{}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*openEntry)
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true

		if cur.cell == goal {
			return reconstructPath(cameFrom, start, goal), nil
		}

		for _, off := range neighborOffsets {
			next := worldmap.Cell{X: cur.cell.X + off.X, Y: cur.cell.Y + off.Y}
			if !cm.InBounds(next) || cm.IsOccupiedCell(next, opts.CostThreshold) {
				continue
			}
			if closed[next] {
				continue
			}
			base := opts.StraightCost
			if isDiagonal(off) {
				base = opts.DiagonalCost
			}
			tentativeG := cur.g + stepCost(cm, next, base)
			if existing, ok := gScore[next]; !ok || tentativeG < existing {
				gScore[next] = tentativeG
				cameFrom[next] = cur.cell
				seq++
				heap.Push(open, &openEntry{cell: next, f: tentativeG + heuristic(next, goal), g: tentativeG, insertSeq: seq})
			}
		}
	}
	return nil, ErrPlannerFailure
}

func reconstructPath(cameFrom map[worldmap.Cell]worldmap.Cell, start, goal worldmap.Cell) []worldmap.Cell {
	path := []worldmap.Cell{goal}
	cur := goal
	for cur != start {
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		path = append([]worldmap.Cell{prev}, path...)
		cur = prev
	}
	return path
}
