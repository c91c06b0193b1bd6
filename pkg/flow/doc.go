/*
Package flow loads conversation flows from YAML files.

A flow file names the root template and, optionally, the initial session
metadata and a process tools file:

	name: survey
	tools: tools.yaml
	metadata:
	  user: ada
	root:
	  type: linear
	  templates:
	    - type: system
	      content: "You are talking to {{ .metadata.user }}."
	    - id: ask
	      type: input
	      content: "How are you?"
	    - type: generate
	    - type: jump
	      target: ask
	      when: {not: {last_message_is: "bye"}}

Node types are linear, loop, conditional, system, assistant, user, input,
generate, tool, subroutine, jump, end and break. Conditions and hooks are
small mappings, see Condition and Hook.

YAML is decoded into generic maps first and then into the typed
definitions with mapstructure, so scalar types are converted loosely
("3" is accepted where an integer is expected).
*/
package flow
