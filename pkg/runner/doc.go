/*
Package runner drives a template tree to completion against a session.

The runner owns the conversation loop: it renders the root template,
hands every produced message to an IOHandler, resolves jumps by resuming
at their target, asks the user when a template needs input and persists
the session between steps.

# Key Components

  - Runner: the loop. It implements ports.FlowRunner.
  - IOHandler: decouples presentation from the loop. TextHandler serves
    terminals, JSONHandler serves structured hosts speaking JSON Lines.
  - ToolInterceptor: policy consulted before a tool runs.
  - SessionManager: load-or-create over a ports.SessionStore.

# Usage

	r := runner.New(root,
		runner.WithModel(model),
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	s, err := r.Run(ctx, domain.NewSession())
*/
package runner
