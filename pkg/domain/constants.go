package domain

import "fmt"

// EndTemplateID is reserved. A jump to it ends the run cleanly.
const EndTemplateID = "END"

// DefaultMaxIterations bounds a loop that has no exit condition.
const DefaultMaxIterations = 10

// Loop exit reasons recorded in session metadata.
const (
	LoopExitCondition = "condition"
	LoopExitMaxIter   = "max_iterations"
	LoopExitBreak     = "break"
)

// Metadata keys written by the engine and the built-in tools.
const (
	KeyToolName   = "tool_name"
	KeyToolCallID = "tool_call_id"
	KeyTemplateID = "template_id"
)

// LoopExitKey is the metadata key holding why the loop with the given id
// last stopped.
func LoopExitKey(templateID string) string {
	return fmt.Sprintf("tendril.loop.%s.exit", templateID)
}

// LoopIterationsKey is the metadata key holding how many passes the loop
// with the given id completed the last time it ran.
func LoopIterationsKey(templateID string) string {
	return fmt.Sprintf("tendril.loop.%s.iterations", templateID)
}
