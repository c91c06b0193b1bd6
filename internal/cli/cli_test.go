package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/model"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/template"
)

const greeterFlow = `
name: greeter
root:
  type: linear
  templates:
    - type: assistant
      content: "Hello {{ .metadata.user }}!"
    - id: answer
      type: input
    - type: generate
`

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flow.yaml"), []byte(greeterFlow), 0o644))
	return dir
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(ModelOptions{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Echo{}, m)

	m, err = NewModel(ModelOptions{Name: "none"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = NewModel(ModelOptions{Name: "echo", CacheSize: 8}, nil, NewLogger(false))
	require.NoError(t, err)
	assert.IsType(t, &model.Cached{}, m)

	_, err = NewModel(ModelOptions{Name: "gpt"}, nil, nil)
	assert.ErrorContains(t, err, "unknown model")
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBackend(BackendOptions{Dir: dir})
	require.NoError(t, err)
	assert.Nil(t, b.Locker)
	assert.Nil(t, b.Cache)
	assert.NoError(t, b.Close())

	b, err = OpenBackend(BackendOptions{Dir: dir, Memory: true})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, b.Store)

	mr := miniredis.RunT(t)
	b, err = OpenBackend(BackendOptions{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.NotNil(t, b.Locker)
	assert.NotNil(t, b.Cache)
	assert.NoError(t, b.Close())

	_, err = OpenBackend(BackendOptions{RedisURL: "://nope"})
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestOpenBackend_Protected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	b, err := OpenBackend(BackendOptions{Dir: dir, EncryptionKey: key, Redact: []string{"password"}})
	require.NoError(t, err)
	s := domain.NewSession(domain.WithID("safe"), domain.WithMetadata(map[string]any{
		"password": "hunter2",
		"note":     "keep me",
	}))
	require.NoError(t, b.Store.Save(ctx, "safe", s))

	raw, err := os.ReadFile(filepath.Join(dir, file.DefaultDir, "safe.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "keep me")

	loaded, err := b.Store.Load(ctx, "safe")
	require.NoError(t, err)
	assert.Equal(t, "keep me", loaded.Metadata()["note"])
	assert.Equal(t, middleware.Mask, loaded.Metadata()["password"])

	_, err = OpenBackend(BackendOptions{Dir: dir, EncryptionKey: "c2hvcnQ="})
	assert.ErrorContains(t, err, "invalid encryption key")
	_, err = OpenBackend(BackendOptions{Dir: dir, Redact: []string{"["}})
	assert.Error(t, err)
}

func TestRun_Ephemeral(t *testing.T) {
	dir := project(t)
	var out bytes.Buffer

	err := Run(context.Background(), RunOptions{
		Dir:     dir,
		Context: `{"user": "Ada"}`,
	}, strings.NewReader("nice to meet you\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Hello Ada!")
	assert.Equal(t, 2, strings.Count(text, "nice to meet you"), "piped input is echoed, then repeated by the model")
	assert.Contains(t, text, "[System] Finished after 3 messages.")

	_, err = os.Stat(filepath.Join(dir, file.DefaultDir))
	assert.True(t, os.IsNotExist(err), "ephemeral runs store nothing")
}

func TestRun_SessionResume(t *testing.T) {
	dir := project(t)
	opts := RunOptions{Dir: dir, SessionID: "s1", Context: `{"user": "Ada"}`}

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), opts, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Session 's1' active.")
	assert.Contains(t, out.String(), "Paused at 'answer'.")

	out.Reset()
	require.NoError(t, Run(context.Background(), opts, strings.NewReader("again\n"), &out))
	assert.Contains(t, out.String(), "Resuming session 's1' at 'answer'.")
	assert.NotContains(t, out.String(), "Hello Ada!")
	assert.Contains(t, out.String(), "Finished after 3 messages.")

	out.Reset()
	opts.Fresh = true
	require.NoError(t, Run(context.Background(), opts, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Session 's1' active.")
	assert.Contains(t, out.String(), "Hello Ada!")
}

func TestRun_JSON(t *testing.T) {
	dir := project(t)
	var out bytes.Buffer

	err := Run(context.Background(), RunOptions{Dir: dir, JSON: true}, strings.NewReader("\"hey\"\n"), &out)
	require.NoError(t, err)

	var types []string
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var ev runner.JSONEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), sc.Text())
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, runner.EventTypeInput)
	assert.Contains(t, types, runner.EventTypeMessage)
	assert.NotContains(t, types, runner.EventTypeSystem)
}

func TestRun_Errors(t *testing.T) {
	dir := project(t)

	err := Run(context.Background(), RunOptions{Dir: dir, Context: "{"}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "--context")

	err = Run(context.Background(), RunOptions{Dir: t.TempDir()}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "error loading flow")

	err = Run(context.Background(), RunOptions{Dir: dir, Model: ModelOptions{Name: "nope"}}, strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	rep, err := Validate(project(t), "")
	require.NoError(t, err)
	assert.Equal(t, "greeter", rep.Name)
	assert.Equal(t, 4, rep.Templates)
	assert.Equal(t, 1, rep.Kinds[template.KindLinear])
	assert.Equal(t, 3, rep.Kinds[template.KindMessage])
	assert.Equal(t, 1, rep.MaxDepth)
	assert.Empty(t, rep.Tools)

	var out bytes.Buffer
	rep.Print(&out)
	assert.Contains(t, out.String(), `Flow "greeter" is valid.`)
	assert.Contains(t, out.String(), "tools: none")

	_, err = Validate(t.TempDir(), "")
	assert.Error(t, err)
}

func TestService(t *testing.T) {
	svc, err := OpenService(ServeOptions{
		Dir:        project(t),
		AllowTools: []string{"read_file"},
		FileTools:  true,
		Backend:    BackendOptions{Memory: true},
	})
	require.NoError(t, err)
	defer svc.Close()

	ts := httptest.NewServer(svc.HTTPHandler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/runs", "application/json", strings.NewReader(`{"session_id": "web", "input": ["hi"]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ids, err := svc.Sessions.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, ids)

	assert.NotNil(t, svc.MCPServer().MCPServer())
}
