package spatialmath

import (
	"github.com/pkg/errors"
)

// Path is an ordered, immutable-by-convention sequence of Vectors. All
// points share a dimensionality once the path is non-empty (the spec's
// dimensional invariant); mixing dimensions is a programmer error and
// returns ErrDimensionMismatch rather than panicking, since paths are
// commonly built incrementally from untrusted planner output.
type Path struct {
	points []Vector
}

// ErrDimensionMismatch is returned when appending a point whose
// dimensionality does not match the path's existing points.
var ErrDimensionMismatch = errors.New("path: point dimension does not match existing points")

// NewPath builds a path from the given points, validating that every
// point shares a dimension.
func NewPath(points ...Vector) (Path, error) {
	p := Path{}
	for _, pt := range points {
		var err error
		p, err = p.Append(pt)
		if err != nil {
			return Path{}, err
		}
	}
	return p, nil
}

// Len returns the number of points.
func (p Path) Len() int { return len(p.points) }

// Points returns a copy of the underlying points.
func (p Path) Points() []Vector {
	cp := make([]Vector, len(p.points))
	copy(cp, p.points)
	return cp
}

// At returns the i'th point.
func (p Path) At(i int) Vector { return p.points[i] }

func (p Path) dimOK(pt Vector) bool {
	return len(p.points) == 0 || p.points[0].Dim() == pt.Dim()
}

// Append returns a new path with pt added at the end.
func (p Path) Append(pt Vector) (Path, error) {
	if !p.dimOK(pt) {
		return Path{}, ErrDimensionMismatch
	}
	out := make([]Vector, len(p.points)+1)
	copy(out, p.points)
	out[len(out)-1] = pt
	return Path{points: out}, nil
}

// Insert returns a new path with pt inserted at index i.
func (p Path) Insert(i int, pt Vector) (Path, error) {
	if !p.dimOK(pt) {
		return Path{}, ErrDimensionMismatch
	}
	if i < 0 || i > len(p.points) {
		return Path{}, errors.Errorf("path: insert index %d out of range [0, %d]", i, len(p.points))
	}
	out := make([]Vector, 0, len(p.points)+1)
	out = append(out, p.points[:i]...)
	out = append(out, pt)
	out = append(out, p.points[i:]...)
	return Path{points: out}, nil
}

// Remove returns a new path with the point at index i removed.
func (p Path) Remove(i int) (Path, error) {
	if i < 0 || i >= len(p.points) {
		return Path{}, errors.Errorf("path: remove index %d out of range [0, %d)", i, len(p.points))
	}
	out := make([]Vector, 0, len(p.points)-1)
	out = append(out, p.points[:i]...)
	out = append(out, p.points[i+1:]...)
	return Path{points: out}, nil
}

// Length returns the sum of segment norms (the total arc length).
func (p Path) Length() float64 {
	total := 0.0
	for i := 1; i < len(p.points); i++ {
		total += p.points[i].Distance(p.points[i-1])
	}
	return total
}

// Head returns the first point and true, or the zero Vector and false if
// the path is empty.
func (p Path) Head() (Vector, bool) {
	if len(p.points) == 0 {
		return Vector{}, false
	}
	return p.points[0], true
}

// Tail returns the last point and true, or the zero Vector and false if
// the path is empty.
func (p Path) Tail() (Vector, bool) {
	if len(p.points) == 0 {
		return Vector{}, false
	}
	return p.points[len(p.points)-1], true
}

// Reverse returns the path with point order reversed.
func (p Path) Reverse() Path {
	out := make([]Vector, len(p.points))
	for i, pt := range p.points {
		out[len(out)-1-i] = pt
	}
	return Path{points: out}
}

// NearestIndex returns the index of the path point closest to pt.
func (p Path) NearestIndex(pt Vector) (int, bool) {
	if len(p.points) == 0 {
		return 0, false
	}
	best := 0
	bestDist := p.points[0].Distance(pt)
	for i := 1; i < len(p.points); i++ {
		if d := p.points[i].Distance(pt); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, true
}

// Resample returns a new path whose points are spaced uniformly at
// `spacing` along the original path's arc length, always including the
// first and last original points.
func (p Path) Resample(spacing float64) (Path, error) {
	if len(p.points) < 2 || spacing <= 0 {
		return p, nil
	}
	out := []Vector{p.points[0]}
	var carry float64
	for i := 1; i < len(p.points); i++ {
		segStart := p.points[i-1]
		segEnd := p.points[i]
		segLen := segEnd.Distance(segStart)
		if segLen == 0 {
			continue
		}
		dir := segEnd.Sub(segStart).Scale(1 / segLen)
		dist := carry
		for dist+spacing <= segLen {
			dist += spacing
			out = append(out, segStart.Add(dir.Scale(dist)))
		}
		carry = dist - segLen
	}
	last := p.points[len(p.points)-1]
	if len(out) == 0 || !out[len(out)-1].Equal(last) {
		out = append(out, last)
	}
	return Path{points: out}, nil
}

// Simplify reduces the path via the Ramer-Douglas-Peucker algorithm with
// tolerance epsilon. It is idempotent: simplifying an already-simplified
// path with the same epsilon returns the same path.
func (p Path) Simplify(epsilon float64) Path {
	if len(p.points) < 3 {
		return p
	}
	keep := make([]bool, len(p.points))
	keep[0] = true
	keep[len(p.points)-1] = true
	rdp(p.points, 0, len(p.points)-1, epsilon, keep)

	out := make([]Vector, 0, len(p.points))
	for i, k := range keep {
		if k {
			out = append(out, p.points[i])
		}
	}
	return Path{points: out}
}

func rdp(points []Vector, start, end int, epsilon float64, keep []bool) {
	if end <= start+1 {
		return
	}
	maxDist := -1.0
	maxIdx := start
	a, b := points[start], points[end]
	for i := start + 1; i < end; i++ {
		d := perpendicularDistance(points[i], a, b)
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist > epsilon {
		keep[maxIdx] = true
		rdp(points, start, maxIdx, epsilon, keep)
		rdp(points, maxIdx, end, epsilon, keep)
	}
}

func perpendicularDistance(pt, a, b Vector) float64 {
	ab := b.Sub(a)
	abLen := ab.Length()
	if abLen == 0 {
		return pt.Distance(a)
	}
	ap := pt.Sub(a)
	// |ap x ab| / |ab| generalizes to n dimensions via the projection
	// residual: the component of ap orthogonal to ab.
	proj := ap.Project(ab)
	residual := ap.Sub(proj)
	return residual.Length()
}

// Smooth applies a weighted moving average over a window of `radius`
// points on each side (window size 2*radius+1), leaving endpoints fixed.
func (p Path) Smooth(radius int) Path {
	if radius <= 0 || len(p.points) < 3 {
		return p
	}
	out := make([]Vector, len(p.points))
	for i, pt := range p.points {
		if i == 0 || i == len(p.points)-1 {
			out[i] = pt
			continue
		}
		lo := i - radius
		if lo < 0 {
			lo = 0
		}
		hi := i + radius
		if hi > len(p.points)-1 {
			hi = len(p.points) - 1
		}
		sum := NewZeroVector(pt.Dim())
		var weightTotal float64
		for j := lo; j <= hi; j++ {
			w := 1.0 / (1.0 + absInt(j-i))
			sum = sum.Add(p.points[j].Scale(w))
			weightTotal += w
		}
		out[i] = sum.Scale(1 / weightTotal)
	}
	return Path{points: out}
}

func absInt(x int) float64 {
	if x < 0 {
		return float64(-x)
	}
	return float64(x)
}
