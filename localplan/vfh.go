package localplan

import (
	"math"

	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/worldmap"
)

// smoothingTaps is the 5-tap weighted average applied to the raw
// histogram before local-minima/maxima enhancement.
var smoothingTaps = []float64{0.1, 0.2, 0.4, 0.2, 0.1}

// buildHistogram scans every occupied cell in cm within radius of pose,
// binning its contribution to cell_value/d^2 by bearing from pose, then
// applies the spec's 5-tap smoothing and local min/max enhancement.
func buildHistogram(cm *worldmap.Costmap, pose spatialmath.Vector, bins int, radius float64) []float64 {
	hist := make([]float64, bins)
	px, py := pose.X(), pose.Y()

	for y := 0; y < cm.Height; y++ {
		for x := 0; x < cm.Width; x++ {
			v := cm.GetValue(worldmap.Cell{X: x, Y: y})
			if v == worldmap.UnknownCost || v <= 0 {
				continue
			}
			cellWorld := cm.GridToWorld(worldmap.Cell{X: x, Y: y})
			dx := cellWorld.X() - px
			dy := cellWorld.Y() - py
			d2 := dx*dx + dy*dy
			if d2 < 1e-6 {
				d2 = 1e-6
			}
			if radius > 0 && d2 > radius*radius {
				continue
			}
			theta := math.Atan2(dy, dx)
			bin := binIndex(theta, bins)
			hist[bin] += float64(v) / d2
		}
	}

	smoothed := smoothHistogram(hist)
	return enhanceHistogram(smoothed)
}

// binIndex maps an angle in radians to a bin in [0, bins) via the spec's
// ((theta + pi) / 2pi) * N formula.
func binIndex(theta float64, bins int) int {
	theta = spatialmath.WrapAngle(theta)
	frac := (theta + math.Pi) / (2 * math.Pi)
	idx := int(frac * float64(bins))
	if idx >= bins {
		idx = bins - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// binAngle is binIndex's inverse: the bin-center angle.
func binAngle(bin, bins int) float64 {
	frac := (float64(bin) + 0.5) / float64(bins)
	return spatialmath.WrapAngle(frac*2*math.Pi - math.Pi)
}

func smoothHistogram(hist []float64) []float64 {
	n := len(hist)
	out := make([]float64, n)
	half := len(smoothingTaps) / 2
	for i := 0; i < n; i++ {
		var sum float64
		for k, w := range smoothingTaps {
			j := (i + k - half + n) % n
			sum += w * hist[j]
		}
		out[i] = sum
	}
	return out
}

// enhanceHistogram scales local minima down by 0.8 and local maxima up by
// 1.2 (clipped to 1.0), per the spec's histogram post-processing.
func enhanceHistogram(hist []float64) []float64 {
	n := len(hist)
	out := make([]float64, n)
	copy(out, hist)
	for i := 0; i < n; i++ {
		prev := hist[(i-1+n)%n]
		next := hist[(i+1)%n]
		switch {
		case hist[i] < prev && hist[i] < next:
			out[i] = hist[i] * 0.8
		case hist[i] > prev && hist[i] > next:
			out[i] = math.Min(1.0, hist[i]*1.2)
		}
	}
	return out
}

// selectDirection minimizes w_obstacle*H[i] + w_goal*|angleDiff(bin,goal)|
// + w_prev*|angleDiff(bin,prev)| across every bin, returning the selected
// bin's center angle.
func selectDirection(hist []float64, goalAngle, prevAngle float64, wObstacle, wGoal, wPrev float64, havePrev bool) float64 {
	bins := len(hist)
	bestBin := 0
	bestCost := math.Inf(1)
	for i := 0; i < bins; i++ {
		angle := binAngle(i, bins)
		cost := wObstacle * hist[i]
		cost += wGoal * math.Abs(spatialmath.AngleDiff(angle, goalAngle))
		if havePrev {
			cost += wPrev * math.Abs(spatialmath.AngleDiff(angle, prevAngle))
		}
		if cost < bestCost {
			bestCost = cost
			bestBin = i
		}
	}
	return binAngle(bestBin, bins)
}
