package skill

import "context"

// Result is a skill invocation's structured outcome (spec §7 "Skills
// that fail return a structured {success, failure_reason, error} map").
type Result struct {
	Success       bool
	FailureReason string
	Error         error
	Data          any
}

// Skill is a constructed, callable unit of robot behavior. Call may
// block for the duration of the action, or may spawn its own worker and
// return quickly once it is registered as running via
// Library.RegisterRunning (by the skill itself or by its caller). Stop is
// optional (see Stoppable) and must be idempotent; skills with no
// meaningful cancellation do not implement it.
type Skill interface {
	Call(ctx context.Context, args map[string]any) Result
}

// Stoppable is implemented by skills whose Call spawns background work
// that a caller may later cancel out-of-band via Library.Terminate.
type Stoppable interface {
	Stop()
}
