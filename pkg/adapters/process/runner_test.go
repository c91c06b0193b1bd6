package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunner_Run(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner()
	r.Register("greet", "sh", "-c", "echo hello")
	r.Register("echo_env", "sh", "-c", "echo $TENDRIL_ARG_MSG")
	r.Register("json", "sh", "-c", `echo '{"ok": true}'`)
	r.Register("fail", "sh", "-c", "echo oops >&2; exit 3")

	t.Run("executes registered command", func(t *testing.T) {
		out, err := r.Run(context.Background(), "greet", nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", out.Stdout)
		assert.Nil(t, out.Parsed)
	})

	t.Run("passes arguments via env vars", func(t *testing.T) {
		out, err := r.Run(context.Background(), "echo_env", map[string]any{"msg": "SecretMessage"})
		require.NoError(t, err)
		assert.Equal(t, "SecretMessage", out.Stdout)
	})

	t.Run("parses JSON output", func(t *testing.T) {
		out, err := r.Run(context.Background(), "json", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ok": true}, out.Parsed)
	})

	t.Run("reports stderr on failure", func(t *testing.T) {
		_, err := r.Run(context.Background(), "fail", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oops")
	})

	t.Run("rejects unregistered command", func(t *testing.T) {
		_, err := r.Run(context.Background(), "hacker_script", nil)
		assert.ErrorIs(t, err, ErrNotRegistered)
	})
}

func TestRunner_Cancellation(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(WithWaitDelay(time.Second))
	r.Register("sleepy", "sh", "-c", "sleep 30")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "sleepy", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTool_Execute(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner()
	r.Register("json", "sh", "-c", `echo "{\"n\": $TENDRIL_ARG_N}"`)

	tool, ok := r.Tool("json")
	require.True(t, ok)
	assert.Equal(t, "json", tool.Spec().Name)

	res, err := tool.Execute(context.Background(), map[string]any{"n": 7})
	require.NoError(t, err)
	assert.Equal(t, `{"n": 7}`, res.Content)
	assert.Equal(t, map[string]any{"n": float64(7)}, res.Metadata["output"])

	_, ok = r.Tool("missing")
	assert.False(t, ok)
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: weather
    command: ./weather.sh
    description: Looks up the weather
    arguments:
      - name: city
        type: string
        required: true
  - command: ignored-without-name
`), 0o644))

	tools, err := LoadTools(path)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	w := tools["weather"]
	assert.Equal(t, "./weather.sh", w.Command)
	require.Len(t, w.Arguments, 1)
	assert.True(t, w.Arguments[0].Required)

	r := NewRunner(WithRegistry(tools))
	assert.Equal(t, []string{"weather"}, r.Names())
	assert.Len(t, r.Tools(), 1)

	missing, err := LoadTools(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
