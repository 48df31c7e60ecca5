package skill

// Robot is the minimal capability bundle a RobotSkill is built against:
// whatever subset of the navigation/memory/agent surface a given skill
// needs, captured by the concrete skill's constructor closure. It is
// intentionally an empty interface boundary here — concrete robot
// capability bundles (such as nav.Robot) live in other packages and
// satisfy whatever narrower interface a skill declares it needs (Go's structural typing is the "weak reference"
// called for in the spec: the skill only ever holds the capability
// surface it was constructed with, not a strong ownership handle on the
// whole robot).
type Robot interface{}

// RobotSkill is embedded by skills that need live access to the robot
// rather than only their constructor args, grounded on the teacher's
// resource-dependency-injection pattern (components are constructed with
// a `resource.Dependencies` bundle rather than reaching for a global).
type RobotSkill struct {
	Robot Robot
}
