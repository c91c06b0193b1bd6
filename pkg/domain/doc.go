/*
Package domain contains the core data model of the Tendril engine.

It defines the conversation records that templates read and write, the typed
errors and control signals that flow through rendering, and the lifecycle
events emitted for observability. The package has no I/O and no dependency
on the engine itself.

# Key Entities

  - Message: A single immutable turn (system, user, assistant, tool_result or control).
  - Session: The ordered, append-only conversation plus metadata, stack and jump target.
  - Metadata: A copy-on-write key/value map with a defined deep clone.
  - StackFrame: The position of a control-flow template currently being executed.
  - Tool: A callable the model may request through a ToolCall.
*/
package domain
