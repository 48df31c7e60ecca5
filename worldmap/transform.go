package worldmap

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.korebot.dev/core/spatialmath"
)

// ErrTransformUnavailable is returned when a src->tgt lookup cannot be
// resolved from the buffered tree, either because one of the frames was
// never observed or because the composition path is broken.
var ErrTransformUnavailable = errors.New("worldmap: transform unavailable")

// StampedTransform is one edge of the kinematic tree: the pose of Child
// relative to Parent at Stamp.
type StampedTransform struct {
	Parent, Child string
	Translation   spatialmath.Vector // 3D
	Rotation      spatialmath.Vector // roll, pitch, yaw, radians
	Stamp         time.Time
}

// TransformSource resolves poses between named frames. Implementations
// may be backed by a live TF-style buffer (TransformBuffer below) or by a
// fixed tree in tests.
type TransformSource interface {
	TransformPoint(p spatialmath.Vector, src, tgt string) (spatialmath.Vector, error)
	TransformRot(rpy spatialmath.Vector, src, tgt string) (spatialmath.Vector, error)
	TransformPath(path spatialmath.Path, src, tgt string) (spatialmath.Path, []int, error)
	TransformEuler(src, tgt string) (spatialmath.Vector, spatialmath.Vector, error)
}

// TransformBuffer is a small in-memory buffer of the most recent stamped
// transform for each (parent, child) edge. It resolves src->tgt by
// walking up from each frame to a common ancestor, composing edges along
// the way — the same shape as a ROS tf2 buffer, simplified to "latest
// only" per edge since planners always want the freshest pose.
type TransformBuffer struct {
	mu    sync.RWMutex
	edges map[string]StampedTransform // keyed by child frame id
}

// NewTransformBuffer returns an empty buffer.
func NewTransformBuffer() *TransformBuffer {
	return &TransformBuffer{edges: make(map[string]StampedTransform)}
}

// SetTransform records (or replaces) the latest transform for the edge
// parent->child.
func (b *TransformBuffer) SetTransform(t StampedTransform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edges[t.Child] = t
}

// chainToRoot returns the sequence of edges from frame up to its root
// ancestor, root-first.
func (b *TransformBuffer) chainToRoot(frame string) ([]StampedTransform, error) {
	var chain []StampedTransform
	seen := map[string]bool{}
	cur := frame
	for {
		edge, ok := b.edges[cur]
		if !ok {
			break
		}
		if seen[cur] {
			return nil, errors.Errorf("worldmap: cycle detected resolving frame %q", frame)
		}
		seen[cur] = true
		chain = append([]StampedTransform{edge}, chain...)
		cur = edge.Parent
	}
	return chain, nil
}

// composedPose returns the translation and RPY rotation of frame relative
// to its root, composing quaternions along the chain.
func (b *TransformBuffer) composedPose(frame string) (spatialmath.Vector, spatialmath.Vector, string, error) {
	if frame == "" {
		return spatialmath.NewZeroVector(3), spatialmath.NewZeroVector(3), "", nil
	}
	chain, err := b.chainToRoot(frame)
	if err != nil {
		return spatialmath.Vector{}, spatialmath.Vector{}, "", err
	}
	if len(chain) == 0 {
		// frame is itself a root (or unknown); treat as identity relative
		// to itself so same-frame lookups always succeed.
		return spatialmath.NewZeroVector(3), spatialmath.NewZeroVector(3), frame, nil
	}
	root := chain[0].Parent

	pos := spatialmath.NewZeroVector(3)
	q := quat.Number{Real: 1}
	for _, edge := range chain {
		eq := eulerToQuat(edge.Rotation)
		rotated := rotateByQuat(q, edge.Translation)
		pos = pos.Add(rotated)
		q = quat.Mul(q, eq)
	}
	return pos, quatToEuler(q), root, nil
}

func vecToQuat(v spatialmath.Vector) quat.Number {
	return quat.Number{Imag: v.X(), Jmag: v.Y(), Kmag: v.Z()}
}

// rotateByQuat rotates v by the sandwich product q*v*conj(q), assuming q
// is a unit quaternion. gonum's num/quat package only exposes arithmetic
// primitives (Mul, Conj), not a rotation helper, so the composition is
// spelled out here.
func rotateByQuat(q quat.Number, v spatialmath.Vector) spatialmath.Vector {
	r := quat.Mul(quat.Mul(q, vecToQuat(v)), quat.Conj(q))
	return spatialmath.NewVector3D(r.Imag, r.Jmag, r.Kmag)
}

func eulerToQuat(rpy spatialmath.Vector) quat.Number {
	roll, pitch, yaw := rpy.X(), rpy.Y(), rpy.Z()
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

func quatToEuler(q quat.Number) spatialmath.Vector {
	sinrCosp := 2 * (q.Real*q.Imag + q.Jmag*q.Kmag)
	cosrCosp := 1 - 2*(q.Imag*q.Imag+q.Jmag*q.Jmag)
	roll := math.Atan2(sinrCosp, cosrCosp)

	sinp := 2 * (q.Real*q.Jmag - q.Kmag*q.Imag)
	var pitch float64
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	sinyCosp := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosyCosp := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	yaw := math.Atan2(sinyCosp, cosyCosp)

	return spatialmath.NewVector3D(roll, pitch, yaw)
}

// TransformPoint transforms p from src to tgt by composing each frame's
// pose relative to their common root.
func (b *TransformBuffer) TransformPoint(p spatialmath.Vector, src, tgt string) (spatialmath.Vector, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	srcPos, srcRot, srcRoot, err := b.composedPose(src)
	if err != nil {
		return spatialmath.Vector{}, ErrTransformUnavailable
	}
	tgtPos, tgtRot, tgtRoot, err := b.composedPose(tgt)
	if err != nil {
		return spatialmath.Vector{}, ErrTransformUnavailable
	}
	if srcRoot != tgtRoot {
		return spatialmath.Vector{}, ErrTransformUnavailable
	}

	worldPoint := rotateVec(srcRot, p).Add(srcPos)
	inv := quat.Conj(eulerToQuat(tgtRot))
	rel := worldPoint.Sub(tgtPos)
	return rotateByQuat(inv, rel), nil
}

func rotateVec(rpy, v spatialmath.Vector) spatialmath.Vector {
	q := eulerToQuat(rpy)
	return rotateByQuat(q, v)
}

// TransformRot composes Euler rotations from src to tgt via quaternion
// multiplication.
func (b *TransformBuffer) TransformRot(rpy spatialmath.Vector, src, tgt string) (spatialmath.Vector, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, srcRot, srcRoot, err := b.composedPose(src)
	if err != nil {
		return spatialmath.Vector{}, ErrTransformUnavailable
	}
	_, tgtRot, tgtRoot, err := b.composedPose(tgt)
	if err != nil {
		return spatialmath.Vector{}, ErrTransformUnavailable
	}
	if srcRoot != tgtRoot {
		return spatialmath.Vector{}, ErrTransformUnavailable
	}

	composed := quat.Mul(eulerToQuat(srcRot), eulerToQuat(rpy))
	relative := quat.Mul(quat.Conj(eulerToQuat(tgtRot)), composed)
	return quatToEuler(relative), nil
}

// TransformPath maps each point of the path element-wise from src to tgt,
// dropping (and reporting the index of) any point whose lookup fails.
func (b *TransformBuffer) TransformPath(path spatialmath.Path, src, tgt string) (spatialmath.Path, []int, error) {
	var dropped []int
	var out []spatialmath.Vector
	for i, pt := range path.Points() {
		tp, err := b.TransformPoint(pt, src, tgt)
		if err != nil {
			dropped = append(dropped, i)
			continue
		}
		out = append(out, tp)
	}
	newPath, err := spatialmath.NewPath(out...)
	if err != nil {
		return spatialmath.Path{}, dropped, err
	}
	return newPath, dropped, nil
}

// TransformEuler returns the position and RPY rotation of src expressed
// in tgt's frame.
func (b *TransformBuffer) TransformEuler(src, tgt string) (spatialmath.Vector, spatialmath.Vector, error) {
	pos, err := b.TransformPoint(spatialmath.NewZeroVector(3), src, tgt)
	if err != nil {
		return spatialmath.Vector{}, spatialmath.Vector{}, err
	}
	rot, err := b.TransformRot(spatialmath.NewZeroVector(3), src, tgt)
	if err != nil {
		return spatialmath.Vector{}, spatialmath.Vector{}, err
	}
	return pos, rot, nil
}
