package tendril_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/interaction"
	"github.com/aretw0/tendril/pkg/model"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
)

const flowYAML = `
name: greeter
metadata:
  user: ada
root:
  type: linear
  templates:
    - type: assistant
      content: "Hello {{ .metadata.user }}, how are you?"
    - id: answer
      type: input
    - type: generate
`

const toolsYAML = `
tools:
  - name: shout
    command: sh
    args: ["-c", "echo $TENDRIL_ARG_TEXT"]
    description: repeats text
    arguments:
      - {name: text, type: string, required: true}
`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestOpen(t *testing.T) {
	dir := writeProject(t, map[string]string{
		tendril.DefaultFlowFile:  flowYAML,
		tendril.DefaultToolsFile: toolsYAML,
	})

	p, err := tendril.Open(dir, tendril.WithModel(model.Echo{}), tendril.WithFileTools())
	require.NoError(t, err)
	assert.Equal(t, "greeter", p.Name)
	assert.Equal(t, map[string]any{"user": "ada"}, p.InitialMetadata())

	var names []string
	for _, s := range p.Tools.Specs() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"create_or_overwrite_file", "read_file", "shout", "tree_directory"}, names)

	r := p.NewRunner(runner.WithInteraction(interaction.NewQueue("fine")))
	out, err := r.Run(context.Background(), domain.NewSession(domain.WithMetadata(p.InitialMetadata())))
	require.NoError(t, err)

	var contents []string
	for _, m := range out.Messages() {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"Hello ada, how are you?", "fine", "fine"}, contents)
}

func TestOpen_Errors(t *testing.T) {
	_, err := tendril.Open(t.TempDir())
	assert.Error(t, err, "missing flow file")

	dir := writeProject(t, map[string]string{
		tendril.DefaultFlowFile: "root: {type: tool, tools: [missing]}",
	})
	_, err = tendril.Open(dir)
	var cfg *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

func TestProject_RunnerFactoryResumes(t *testing.T) {
	dir := writeProject(t, map[string]string{tendril.DefaultFlowFile: flowYAML})
	p, err := tendril.Open(dir, tendril.WithModel(model.Echo{}))
	require.NoError(t, err)

	mgr := session.NewManager(memory.NewStore())
	factory := p.RunnerFactory()
	ctx := context.Background()

	turn, err := mgr.Turn(ctx, "s", p.InitialMetadata(), factory(interaction.NewInput()))
	require.NoError(t, err)
	assert.Equal(t, "answer", turn.Response.Pending)
	assert.Len(t, turn.Response.Messages, 1)

	turn, err = mgr.Turn(ctx, "s", nil, factory(interaction.NewInput("great")))
	require.NoError(t, err)
	assert.Empty(t, turn.Response.Pending)
	assert.Equal(t, 3, turn.Response.Session.Len())
}
