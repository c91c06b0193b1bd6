/*
Package tendril composes LLM conversations out of templates.

A flow is a tree of templates: static and generated messages, user input,
tool invocations, loops, conditionals, jumps and subroutines. Rendering a
flow appends messages to a session; the runner drives the render, resolves
jumps, persists the session and reports failures with the template that
caused them.

# Concept

The template tree is the program and the session is its state. Models,
user interaction and tools are collaborators injected at run time, so the
same flow runs in a terminal, behind an HTTP API or as an MCP tool. A run
that needs more user input than is available stops cleanly and resumes at
the waiting question on the next run.

# Usage

Flows are usually built in Go:

	root := template.Seq(
		template.System("You are a helpful assistant."),
		template.Named("chat", &template.Loop{
			Templates: []template.Template{
				template.UserInput("", ""),
				template.Generate(),
			},
			ExitCondition: template.LastMessageIs("bye"),
		}),
	)
	r := runner.New(root, runner.WithModel(myModel), runner.WithInteraction(ui))
	session, err := r.Run(ctx, nil)

or loaded from a directory holding flow.yaml and, optionally, tools.yaml:

	p, err := tendril.Open("./support", tendril.WithModel(myModel))
	if err != nil {
		log.Fatal(err)
	}
	session, err := p.NewRunner(runner.WithHandler(handler)).Run(ctx, nil)

See package flow for the YAML format and cmd/tendril for the command line.
*/
package tendril
