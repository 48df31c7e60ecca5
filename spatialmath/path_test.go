package spatialmath

import (
	"testing"

	"go.viam.com/test"
)

func straightPath(t *testing.T) Path {
	t.Helper()
	p, err := NewPath(
		NewVector2D(0, 0),
		NewVector2D(1, 0),
		NewVector2D(2, 0),
		NewVector2D(3, 0),
	)
	test.That(t, err, test.ShouldBeNil)
	return p
}

func TestPathLength(t *testing.T) {
	p := straightPath(t)
	test.That(t, p.Length(), test.ShouldAlmostEqual, 3.0)
}

func TestPathDimensionMismatch(t *testing.T) {
	_, err := NewPath(NewVector2D(0, 0), NewVector3D(1, 1, 1))
	test.That(t, err, test.ShouldEqual, ErrDimensionMismatch)
}

func TestPathHeadTail(t *testing.T) {
	p := straightPath(t)
	head, ok := p.Head()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, head, test.ShouldResemble, NewVector2D(0, 0))

	tail, ok := p.Tail()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, tail, test.ShouldResemble, NewVector2D(3, 0))

	empty := Path{}
	_, ok = empty.Head()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestPathReverse(t *testing.T) {
	p := straightPath(t)
	r := p.Reverse()
	head, _ := r.Head()
	test.That(t, head, test.ShouldResemble, NewVector2D(3, 0))
}

func TestPathNearestIndex(t *testing.T) {
	p := straightPath(t)
	idx, ok := p.NearestIndex(NewVector2D(2.1, 0.1))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, idx, test.ShouldEqual, 2)
}

func TestPathResample(t *testing.T) {
	p := straightPath(t)
	r, err := p.Resample(0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Len(), test.ShouldEqual, 7)
	last, _ := r.Tail()
	test.That(t, last, test.ShouldResemble, NewVector2D(3, 0))
}

func TestPathSimplifyIsIdempotent(t *testing.T) {
	p, err := NewPath(
		NewVector2D(0, 0),
		NewVector2D(1, 0.01),
		NewVector2D(2, -0.01),
		NewVector2D(3, 5),
		NewVector2D(4, 5.01),
		NewVector2D(5, 10),
	)
	test.That(t, err, test.ShouldBeNil)

	once := p.Simplify(0.5)
	twice := once.Simplify(0.5)
	test.That(t, twice.Points(), test.ShouldResemble, once.Points())
	test.That(t, once.Len() < p.Len(), test.ShouldBeTrue)
}

func TestPathSmoothKeepsEndpoints(t *testing.T) {
	p := straightPath(t)
	s := p.Smooth(1)
	head, _ := s.Head()
	tail, _ := s.Tail()
	test.That(t, head, test.ShouldResemble, NewVector2D(0, 0))
	test.That(t, tail, test.ShouldResemble, NewVector2D(3, 0))
}

func TestPathInsertRemove(t *testing.T) {
	p := straightPath(t)
	p2, err := p.Insert(1, NewVector2D(0.5, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p2.Len(), test.ShouldEqual, p.Len()+1)

	p3, err := p2.Remove(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p3.Points(), test.ShouldResemble, p.Points())
}
