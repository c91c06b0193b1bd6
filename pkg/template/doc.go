/*
Package template defines the building blocks of a conversation flow.

A flow is a tree of templates. Each template is one variant of a closed set
(Linear, Loop, Conditional, Jump, Message, ToolInvocation, Subroutine, End
and Break) and carries a stable id plus ordered before/after hooks. The
package only describes flows; rendering lives in the engine, which
dispatches on the concrete variant.

Templates are plain structs and are usually written as literals:

	root := &template.Linear{
		Base: template.Base{ID: "root"},
		Templates: []template.Template{
			template.System("You are a helpful assistant."),
			&template.Loop{
				Templates: []template.Template{
					template.UserInput("Your question", ""),
					template.Generate(),
				},
				ExitCondition: template.LastMessageIs("bye"),
			},
		},
	}

Prepare must be called once on the root before rendering; it assigns
missing ids and rejects invalid trees.
*/
package template
