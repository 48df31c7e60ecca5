// Package worldmap implements the typed world-state primitives that both
// planners read: the occupancy-grid Costmap with its world<->grid
// conversions and obstacle smudging, and a TransformSource capability for
// resolving frame-to-frame poses out of a buffered transform tree.
package worldmap

import (
	"math"

	"github.com/pkg/errors"

	"go.korebot.dev/core/spatialmath"
)

// UnknownCost marks a cell whose occupancy has never been observed.
const UnknownCost int8 = -1

// DefaultOccupiedThreshold is a conventional cost at/above which a cell is
// considered occupied. IsOccupied and IsOccupiedCell do not fall back to
// it; callers always pass a threshold.
const DefaultOccupiedThreshold = 50

// Costmap is a 2-D grid of signed 8-bit cells paired with the metadata
// needed to convert between grid indices and world coordinates. It is a
// value type: Smudge returns a new Costmap rather than mutating the
// receiver in place, while SetValue mutates the receiver's grid for
// construction convenience (see SetValue's doc).
type Costmap struct {
	Width, Height int
	Resolution    float64 // meters per cell
	Origin        spatialmath.Vector
	OriginTheta   float64
	grid          []int8
}

// NewCostmap builds a costmap from a row-major grid of width*height cells.
func NewCostmap(width, height int, resolution float64, origin spatialmath.Vector, originTheta float64, grid []int8) (*Costmap, error) {
	if width*height != len(grid) {
		return nil, errors.Errorf("worldmap: width*height (%d) != len(grid) (%d)", width*height, len(grid))
	}
	cp := make([]int8, len(grid))
	copy(cp, grid)
	return &Costmap{Width: width, Height: height, Resolution: resolution, Origin: origin, OriginTheta: originTheta, grid: cp}, nil
}

// CreateEmpty builds a costmap of the given dimensions with every cell set
// to fillValue (typically 0 for free, or UnknownCost).
func CreateEmpty(width, height int, resolution float64, origin spatialmath.Vector, originTheta float64, fillValue int8) *Costmap {
	grid := make([]int8, width*height)
	for i := range grid {
		grid[i] = fillValue
	}
	return &Costmap{Width: width, Height: height, Resolution: resolution, Origin: origin, OriginTheta: originTheta, grid: grid}
}

// Clone returns a deep copy of the costmap.
func (c *Costmap) Clone() *Costmap {
	grid := make([]int8, len(c.grid))
	copy(grid, c.grid)
	return &Costmap{Width: c.Width, Height: c.Height, Resolution: c.Resolution, Origin: c.Origin, OriginTheta: c.OriginTheta, grid: grid}
}

// Cell is a grid index pair.
type Cell struct {
	X, Y int
}

// InBounds reports whether a cell lies within the grid.
func (c *Costmap) InBounds(cell Cell) bool {
	return cell.X >= 0 && cell.X < c.Width && cell.Y >= 0 && cell.Y < c.Height
}

// WorldToGrid converts a world-frame point to the cell containing it,
// using floor semantics so that WorldToGrid(GridToWorld(cell)) == cell
// for any in-bounds cell (P1).
func (c *Costmap) WorldToGrid(p spatialmath.Vector) Cell {
	cos, sin := math.Cos(-c.OriginTheta), math.Sin(-c.OriginTheta)
	dx := p.X() - c.Origin.X()
	dy := p.Y() - c.Origin.Y()
	localX := dx*cos - dy*sin
	localY := dx*sin + dy*cos
	return Cell{
		X: int(math.Floor(localX / c.Resolution)),
		Y: int(math.Floor(localY / c.Resolution)),
	}
}

// GridToWorld converts a cell to the world-frame point at its lower-left
// corner (the canonical representative point used by WorldToGrid's
// inverse).
func (c *Costmap) GridToWorld(cell Cell) spatialmath.Vector {
	localX := float64(cell.X) * c.Resolution
	localY := float64(cell.Y) * c.Resolution
	cos, sin := math.Cos(c.OriginTheta), math.Sin(c.OriginTheta)
	worldX := localX*cos - localY*sin + c.Origin.X()
	worldY := localX*sin + localY*cos + c.Origin.Y()
	return spatialmath.NewVector2D(worldX, worldY)
}

func (c *Costmap) index(cell Cell) int {
	return cell.Y*c.Width + cell.X
}

// GetValue returns the raw cell value, or UnknownCost if out of bounds.
func (c *Costmap) GetValue(cell Cell) int8 {
	if !c.InBounds(cell) {
		return UnknownCost
	}
	return c.grid[c.index(cell)]
}

// SetValue mutates the cell in place. Costmap is otherwise treated as a
// value type by callers; SetValue exists for efficient construction
// (e.g. Smudge building up its result) and is not safe to call
// concurrently with readers of the same Costmap.
func (c *Costmap) SetValue(cell Cell, value int8) {
	if !c.InBounds(cell) {
		return
	}
	c.grid[c.index(cell)] = value
}

// IsOccupied reports whether a world-frame point is occupied: true for any
// out-of-bounds point (P2), true if the backing cell's value is >=
// threshold, and true for unknown cells (the spec's pinned policy:
// unknown is treated as occupied for occupancy tests).
func (c *Costmap) IsOccupied(p spatialmath.Vector, threshold int8) bool {
	cell := c.WorldToGrid(p)
	if !c.InBounds(cell) {
		return true
	}
	v := c.GetValue(cell)
	if v == UnknownCost {
		return true
	}
	return v >= threshold
}

// IsOccupiedCell is IsOccupied's grid-indexed counterpart, used internally
// by planners that already work in cell space.
func (c *Costmap) IsOccupiedCell(cell Cell, threshold int8) bool {
	if !c.InBounds(cell) {
		return true
	}
	v := c.GetValue(cell)
	if v == UnknownCost {
		return true
	}
	return v >= threshold
}

// circleOffsets returns the grid offsets within radius r of the origin
// cell, used by Smudge to build its dilation kernel.
func circleOffsets(r int) []Cell {
	var offsets []Cell
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				offsets = append(offsets, Cell{X: dx, Y: dy})
			}
		}
	}
	return offsets
}

// Smudge produces a new costmap with obstacle influence dilated by a
// circular kernel of radius kernelSize/2. Ring i (1-indexed, i=0 is the
// original obstacle) contributes a layer of intensity 100*decay^i; each
// cell's final value is the max across layers and its own original value.
// If preserveUnknown, cells that were originally UnknownCost are restored
// to UnknownCost after dilation.
func (c *Costmap) Smudge(kernelSize, iterations int, decay float64, threshold int8, preserveUnknown bool) *Costmap {
	out := c.Clone()
	if iterations <= 0 {
		return out
	}
	radius := kernelSize / 2
	if radius <= 0 {
		return out
	}

	obstacleMask := make([]bool, len(c.grid))
	for i, v := range c.grid {
		if v != UnknownCost && v >= threshold {
			obstacleMask[i] = true
		}
	}

	frontier := make([]Cell, 0, len(c.grid)/4)
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			if obstacleMask[y*c.Width+x] {
				frontier = append(frontier, Cell{X: x, Y: y})
			}
		}
	}

	for iter := 1; iter <= iterations; iter++ {
		intensity := 100.0 * math.Pow(decay, float64(iter))
		next := make(map[Cell]bool)
		for _, cell := range frontier {
			for _, off := range circleOffsets(radius) {
				nc := Cell{X: cell.X + off.X, Y: cell.Y + off.Y}
				if !c.InBounds(nc) {
					continue
				}
				next[nc] = true
				idx := c.index(nc)
				if c.grid[idx] == UnknownCost {
					// Dilation never writes through an unknown cell, even
					// with preserveUnknown false: unexplored space is
					// never assumed to carry obstacle influence.
					continue
				}
				if int8(intensity) > out.grid[idx] {
					out.grid[idx] = int8(math.Min(100, intensity))
				}
			}
		}
		frontier = frontier[:0]
		for cell := range next {
			frontier = append(frontier, cell)
		}
	}

	// Original obstacle values are always preserved (the max already
	// includes them since intensity layers never lower a cell).
	for i, v := range c.grid {
		if v != UnknownCost && v >= threshold && v > out.grid[i] {
			out.grid[i] = v
		}
	}

	if preserveUnknown {
		for i, v := range c.grid {
			if v == UnknownCost {
				out.grid[i] = UnknownCost
			}
		}
	}

	return out
}
