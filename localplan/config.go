package localplan

import "time"

// Config holds the tunables for one Planner. Zero-valued fields from a
// literal Config{} are not usable directly; start from DefaultConfig.
type Config struct {
	VMax     float64 // m/s
	OmegaMax float64 // rad/s

	PositionTolerance float64 // meters, WAYPOINT_FOLLOW -> POSITION_REACHED
	AngleTolerance    float64 // radians, ORIENTING -> DONE

	LookaheadDistance float64 // meters, waypoint-path lookahead
	SafeGoalDistance  float64 // meters, final-waypoint ignore-obstacles radius

	HistogramBins   int     // N, polar histogram bin count
	WeightObstacle  float64 // w_obstacle
	WeightGoal      float64 // w_goal
	WeightPrevious  float64 // w_prev

	SafetyThreshold float64 // meters, ray-march distance for collision override
	OccupiedValue   int8    // not read by the planner: the VFH histogram counts any cell value > 0, checkCollision any value > 50

	StuckDetectionWindow time.Duration
	StuckDistanceThreshold float64
	StuckTimeThreshold     time.Duration

	RecoveryReverseDuration time.Duration // seconds 0-3: reverse
	RecoveryRotateDuration  time.Duration // seconds 3-5: rotate
	RecoveryReverseSpeed    float64
	RecoveryRotateFraction  float64 // fraction of OmegaMax

	VelocityLowPassFactor float64 // 0.4 per spec
}

// DefaultConfig returns the spec's nominal values for a 10 Hz control loop.
func DefaultConfig() Config {
	return Config{
		VMax:     0.5,
		OmegaMax: 1.0,

		PositionTolerance: 0.15,
		AngleTolerance:    0.1,

		LookaheadDistance: 0.5,
		SafeGoalDistance:  0.3,

		HistogramBins:  36,
		WeightObstacle: 1.0,
		WeightGoal:     1.0,
		WeightPrevious: 0.5,

		SafetyThreshold: 0.4,
		OccupiedValue:   50,

		StuckDetectionWindow:   3 * time.Second,
		StuckDistanceThreshold: 0.05,
		StuckTimeThreshold:     3 * time.Second,

		RecoveryReverseDuration: 3 * time.Second,
		RecoveryRotateDuration:  2 * time.Second,
		RecoveryReverseSpeed:    0.2,
		RecoveryRotateFraction:  0.7,

		VelocityLowPassFactor: 0.4,
	}
}
