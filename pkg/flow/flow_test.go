package flow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/flow"
	"github.com/aretw0/tendril/pkg/interaction"
	"github.com/aretw0/tendril/pkg/model"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/template"
)

func contents(s *domain.Session) []string {
	var out []string
	for _, m := range s.Messages() {
		out = append(out, m.Content)
	}
	return out
}

func TestLoad_BuildsAndRuns(t *testing.T) {
	def, err := flow.Load("testdata/chat.yaml")
	require.NoError(t, err)
	assert.Equal(t, "chat", def.Name)
	assert.Equal(t, "ada", def.Metadata["user"])
	assert.Equal(t, 5, def.Root.Templates[1].MaxIterations, "weakly typed")

	root, err := flow.NewBuilder().Build(def)
	require.NoError(t, err)

	r := runner.New(root,
		runner.WithModel(model.Echo{}),
		runner.WithInteraction(interaction.NewQueue("hi", "bye")),
	)
	out, err := r.Run(context.Background(), domain.NewSession(domain.WithMetadata(def.Metadata)))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"You are talking to ada.",
		"hi", "hi",
		"bye", "bye",
		"See you, ada.",
	}, contents(out))
	turns, ok := out.Metadata().Int("turns")
	require.True(t, ok)
	assert.Equal(t, 2, turns)
}

func TestBuild_ConditionalAndJumps(t *testing.T) {
	def, err := flow.Parse([]byte(`
root:
  type: linear
  templates:
    - id: start
      type: conditional
      when: {meta_equals: {lang: pt}}
      then: {type: assistant, content: "Olá"}
      else: {type: assistant, content: "Hello"}
    - type: jump
      target: END
      when: {meta_true: done}
      before:
        - set: {done: true}
    - type: assistant
      content: "unreachable"
`))
	require.NoError(t, err)
	root, err := flow.NewBuilder().Build(def)
	require.NoError(t, err)

	out, err := runner.New(root).Run(context.Background(), domain.NewSession(domain.WithMetadata(map[string]any{"lang": "pt"})))
	require.NoError(t, err)
	assert.Equal(t, []string{"Olá"}, contents(out))
}

func TestBuild_ToolsAndModels(t *testing.T) {
	upper := registry.Func(domain.ToolSpec{Name: "upper", Description: "upper-cases text"},
		func(context.Context, map[string]any) (domain.ToolResult, error) {
			return domain.ToolResult{Content: "DONE"}, nil
		})
	scripted := model.NewSequence(model.CallTool("upper", nil), model.Reply("finished"))

	def, err := flow.Parse([]byte(`
root:
  type: linear
  templates:
    - type: user
      content: "go"
    - type: tool
      tools: [upper]
      model: scripted
`))
	require.NoError(t, err)
	root, err := flow.NewBuilder(
		flow.WithRegistry(registry.New(upper)),
		flow.WithModels(map[string]ports.Model{"scripted": scripted}),
	).Build(def)
	require.NoError(t, err)

	inv, ok := root.Children()[1].(*template.ToolInvocation)
	require.True(t, ok)
	assert.Len(t, inv.Tools, 1)
	assert.Same(t, scripted, inv.Model)
}

func TestBuild_Subroutine(t *testing.T) {
	def, err := flow.Parse([]byte(`
root:
  type: linear
  templates:
    - type: system
      content: "parent"
    - type: subroutine
      init: {type: inherit_system}
      squash: {type: last_message}
      templates:
        - type: assistant
          content: "one"
        - type: assistant
          content: "two"
`))
	require.NoError(t, err)
	root, err := flow.NewBuilder().Build(def)
	require.NoError(t, err)

	out, err := runner.New(root).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"parent", "two"}, contents(out))
}

func TestParse_Errors(t *testing.T) {
	_, err := flow.Parse([]byte("name: empty"))
	assert.ErrorIs(t, err, flow.ErrNoRoot)

	_, err = flow.Parse([]byte("root: {type: end, colour: red}"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = flow.Parse([]byte("root: [unclosed"))
	assert.Error(t, err)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown type", `root: {type: teleport}`},
		{"missing type", `root: {id: x}`},
		{"unknown tool", `root: {type: tool, tools: [nope]}`},
		{"unknown model", `root: {type: generate, model: gpt}`},
		{"dangling jump", `root: {type: linear, templates: [{type: jump, target: nowhere}]}`},
		{"duplicate ids", `root: {type: linear, templates: [{id: a, type: end}, {id: a, type: end}]}`},
		{"empty condition", `root: {type: loop, until: {}, templates: [{type: break}]}`},
		{"empty hook", `root: {type: end, after: [{}]}`},
		{"exec without runner", `root: {type: end, after: [{exec: {key: out, tool: python}}]}`},
		{"llm squash without model", `root: {type: subroutine, squash: {type: llm_summarize}, templates: [{type: end}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := flow.Parse([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = flow.NewBuilder().Build(def)
			var cfg *domain.ConfigurationError
			assert.ErrorAs(t, err, &cfg)
		})
	}
}
