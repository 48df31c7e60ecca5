// Package agent implements the agent orchestration shell (C7): a minimal
// contract over an external LLM collaborator, wiring a text-query stream
// and optional observation/image streams to a shared response_stream,
// and letting the collaborator invoke registered skills by name.
package agent

import "context"

// ToolCall is one skill invocation the reasoner requests.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Reply is one reasoning step's output: text to publish, plus any skill
// calls the shell should execute and feed back for a follow-on reply.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Turn is everything the reasoner is given for one reasoning step.
type Turn struct {
	Query       string
	Observation any    // latest structured observation-data snapshot, if any
	Image       []byte // latest image-stream frame, if any
	ToolResults []ToolResult
}

// ToolResult pairs a prior ToolCall with what executing it produced, fed
// back into the next reasoning step so the collaborator can compose a
// follow-on reply.
type ToolResult struct {
	Call   ToolCall
	Result any
}

// Tool mirrors skill.ToolDescriptor without importing the skill package,
// keeping Reasoner implementations free of a skill-package dependency.
type Tool struct {
	Name        string
	Description string
	Parameters  any
}

// Reasoner is the external LLM collaborator's contract: given a turn and
// the tools currently available, produce a reply.
type Reasoner interface {
	Respond(ctx context.Context, turn Turn, tools []Tool) (Reply, error)
}
