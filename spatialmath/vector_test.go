package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestVectorArithmetic(t *testing.T) {
	a := NewVector2D(1, 2)
	b := NewVector2D(3, 4)

	test.That(t, a.Add(b), test.ShouldResemble, NewVector2D(4, 6))
	test.That(t, b.Sub(a), test.ShouldResemble, NewVector2D(2, 2))
	test.That(t, a.Scale(2), test.ShouldResemble, NewVector2D(2, 4))
	test.That(t, a.Dot(b), test.ShouldEqual, 11.0)
}

func TestVectorLengthAndNormalize(t *testing.T) {
	v := NewVector2D(3, 4)
	test.That(t, v.Length(), test.ShouldEqual, 5.0)

	n := v.Normalize()
	test.That(t, n.Length(), test.ShouldAlmostEqual, 1.0)

	zero := NewVector2D(0, 0)
	test.That(t, zero.Normalize(), test.ShouldResemble, zero)
}

func TestVectorAngleAndDistance(t *testing.T) {
	a := NewVector2D(1, 0)
	b := NewVector2D(0, 1)
	test.That(t, a.Angle(b), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, a.Distance(b), test.ShouldAlmostEqual, math.Sqrt2)
}

func TestVectorCross(t *testing.T) {
	x := NewVector3D(1, 0, 0)
	y := NewVector3D(0, 1, 0)
	test.That(t, x.Cross(y).Equal(NewVector3D(0, 0, 1)), test.ShouldBeTrue)
}

func TestVectorProject(t *testing.T) {
	v := NewVector2D(2, 2)
	onto := NewVector2D(1, 0)
	test.That(t, v.Project(onto).Equal(NewVector2D(2, 0)), test.ShouldBeTrue)
}

func TestSemanticAccessors(t *testing.T) {
	v := NewVector3D(1, 2, 3)
	test.That(t, v.X(), test.ShouldEqual, 1.0)
	test.That(t, v.Y(), test.ShouldEqual, 2.0)
	test.That(t, v.Z(), test.ShouldEqual, 3.0)

	yaw := NewVector(0.5)
	test.That(t, yaw.Yaw(), test.ShouldEqual, 0.5)
}

func TestDimensionMismatchPanics(t *testing.T) {
	a := NewVector2D(1, 1)
	b := NewVector3D(1, 1, 1)
	test.That(t, func() { a.Add(b) }, test.ShouldPanic)
}

func TestAngleDiffWraps(t *testing.T) {
	d := AngleDiff(math.Pi-0.1, -math.Pi+0.1)
	test.That(t, d, test.ShouldAlmostEqual, 0.2)
}

func TestFromR3RoundTrip(t *testing.T) {
	v := NewVector3D(1, 2, 3)
	test.That(t, FromR3(v.R3()).Equal(v), test.ShouldBeTrue)
}
