// Package skill implements the skill-execution fabric (C6): a registry of
// declarative skill descriptors, deferred-construction instances, and a
// library that tracks running skills so they can be cancelled by name.
package skill

// ParamType is the declared JSON-schema type of a skill parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
)

// ParamSpec declares one constructor or call-time parameter, used both
// for validation and to synthesize the skill's JSON-schema tool
// description (GetTools).
type ParamSpec struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// Descriptor declares a skill's identity and parameter surface,
// independent of any particular instance. The spec's runtime-reflection
// based schema discovery (§9 design note) is replaced here by this
// explicit, hand-written table per skill.
type Descriptor struct {
	Name        string
	Description string
	Params      []ParamSpec
	New         func(args map[string]any) (Skill, error)
}
