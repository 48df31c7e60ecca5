package localplan

import (
	"math"

	"go.korebot.dev/core/spatialmath"
)

// pursuitVelocity implements the spec's pure-pursuit law: v = min(vMax,
// dGoal); omega = 2*sin(theta)/L clamped to omegaMax; v is additionally
// scaled down when theta exceeds roughly 15 degrees.
func pursuitVelocity(theta, dGoal, lookahead, vMax, omegaMax float64) (v, omega float64) {
	v = math.Min(vMax, dGoal)
	omega = 2 * math.Sin(theta) / lookahead
	omega = clamp(omega, -omegaMax, omegaMax)

	const steerThreshold = 15.0 * math.Pi / 180.0
	if math.Abs(theta) > steerThreshold {
		v *= math.Max(0.25, 1-math.Abs(theta)/(math.Pi/2))
	}
	return v, omega
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// lookaheadTarget returns the first waypoint whose Euclidean distance
// from pose exceeds lookahead, falling back to the path's last point.
func lookaheadTarget(path spatialmath.Path, pose spatialmath.Vector, lookahead float64) (spatialmath.Vector, bool) {
	for i := 0; i < path.Len(); i++ {
		pt := path.At(i)
		if pt.Distance2D(pose) > lookahead {
			return pt, true
		}
	}
	return path.Tail()
}
