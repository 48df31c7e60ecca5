// Package localplan implements the VFH + Pure Pursuit local planner (C5):
// a 10 Hz control loop producing (v, omega) from the latest costmap and
// pose against a goal or waypoint path, with stuck detection/recovery and
// near-goal obstacle-ignoring.
package localplan

import "fmt"

// State is a PlannerState value in the per-tick state machine.
type State int

const (
	StateIdle State = iota
	StateWaypointFollow
	StatePositionReached
	StateOrienting
	StateDone
	StateStuck
	StateRecovery
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWaypointFollow:
		return "WAYPOINT_FOLLOW"
	case StatePositionReached:
		return "POSITION_REACHED"
	case StateOrienting:
		return "ORIENTING"
	case StateDone:
		return "DONE"
	case StateStuck:
		return "STUCK"
	case StateRecovery:
		return "RECOVERY"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
