package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/caniput/internal/config"
	"github.com/vk/caniput/internal/testutil"
	"github.com/vk/caniput/internal/value"
)

type result struct {
	out  string
	logs string
	err  error
}

// execute runs the command tree with an isolated config directory.
func execute(t *testing.T, args ...string) result {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{config.EnvUsername, config.EnvReplica, config.EnvCanister, config.EnvLogLevel} {
		if _, set := os.LookupEnv(k); set {
			t.Setenv(k, "")
		}
	}
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	err := Execute(context.Background(), out, logs, args)
	return result{out: out.String(), logs: logs.String(), err: err}
}

func exitCodeOf(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %v", err)
	return exitErr.Code
}

func TestHelp(t *testing.T) {
	res := execute(t, "--help")
	require.NoError(t, res.err)
	for _, want := range []string{"Usage:", "value", "text", "file", "inspect", "completion", "--username", "--replica", "--canister", "--trace-log"} {
		assert.Contains(t, res.out, want)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown flag", []string{"--nope"}, "unknown flag"},
		{"unknown command", []string{"frobnicate"}, `unknown command "frobnicate"`},
		{"missing args", []string{"text", "only-path"}, "accepts 2 arg(s), received 1"},
		{"bad syntax flag", []string{"value", "--syntax", "yaml", "p", "1"}, "unknown syntax"},
		{"bad canister", []string{"-c", "nope", "text", "p", "x"}, "invalid canister id"},
		{"bad log level", []string{"--log-level", "loud", "inspect", "."}, "invalid log level"},
		{"missing config file", []string{"--config", "/no/such/caniput.hcl", "inspect", "."}, "config file"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := execute(t, tc.args...)
			require.Error(t, res.err)
			assert.Equal(t, ExitUsage, exitCodeOf(t, res.err))
			assert.ErrorContains(t, res.err, tc.wantErr)
		})
	}
}

func TestValueCommand(t *testing.T) {
	// --- Arrange ---
	replica := testutil.NewReplica(t)

	// --- Act ---
	res := execute(t, "-r", replica.URL(), "-u", "alice", "value", "a/b", "(7 : nat16)")

	// --- Assert ---
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Put value successfully.")
	puts := replica.Puts()
	require.Len(t, puts, 1)
	assert.Equal(t, "alice", puts[0].User)
	assert.Equal(t, []string{"a", "b"}, puts[0].Path)
	assert.True(t, value.Equal(value.Nat16(7), puts[0].Values[0]))
}

func TestValueCommandHCL(t *testing.T) {
	replica := testutil.NewReplica(t)

	res := execute(t, "-r", replica.URL(), "value", "--syntax", "hcl", "cfg", `{ on = true }`)

	require.NoError(t, res.err)
	want := value.Record{{Label: value.NamedLabel("on"), Value: value.Bool(true)}}
	assert.True(t, value.Equal(want, replica.Puts()[0].Values[0]))
}

func TestLogicalFailureExitCode(t *testing.T) {
	replica := testutil.NewReplica(t)
	replica.Refuse = true

	res := execute(t, "-r", replica.URL(), "text", "p", "x")

	require.Error(t, res.err)
	assert.Equal(t, ExitLogicalFailure, exitCodeOf(t, res.err))
	assert.Equal(t, "Failure to put.", res.err.Error())
}

func TestTransportFailureIsGeneric(t *testing.T) {
	res := execute(t, "-r", "http://127.0.0.1:1", "--fetch-root-key=false", "--retry-pause", "10ms", "--timeout", "100ms", "text", "p", "x")

	require.Error(t, res.err)
	var exitErr *ExitError
	assert.False(t, errors.As(res.err, &exitErr))
	assert.ErrorContains(t, res.err, "request timed out")
}

func TestFileAndInspectCommands(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"one.txt":  "1234",
		"blob.hex": "4449444c0000",
	})

	res := execute(t, "inspect", "--sort", root)
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "blob.hex")
	assert.Contains(t, res.out, "args")
	assert.Contains(t, res.out, "one.txt")
	assert.Contains(t, res.out, "1234")

	replica := testutil.NewReplica(t)
	res = execute(t, "-r", replica.URL(), "file", "--sort", "dest", root)
	require.NoError(t, res.err)
	require.Len(t, replica.Puts(), 1)
	dir, ok := replica.Puts()[0].Values[0].(value.FileValue)
	require.True(t, ok)
	assert.Equal(t, "file:directory", value.Kind(dir))
}

func TestConfigFilePrecedence(t *testing.T) {
	replica := testutil.NewReplica(t)
	cfgPath := filepath.Join(t.TempDir(), "caniput.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
username = "from-file"
replica = "`+replica.URL()+`"
`), 0o644))

	res := execute(t, "--config", cfgPath, "text", "p", "x")
	require.NoError(t, res.err)
	res = execute(t, "--config", cfgPath, "-u", "from-flag", "text", "p", "x")
	require.NoError(t, res.err)

	puts := replica.Puts()
	require.Len(t, puts, 2)
	assert.Equal(t, "from-file", puts[0].User)
	assert.Equal(t, "from-flag", puts[1].User)
}

func TestWholePathFlag(t *testing.T) {
	replica := testutil.NewReplica(t)

	res := execute(t, "-r", replica.URL(), "text", "a/b", "x")
	require.NoError(t, res.err)
	res = execute(t, "-r", replica.URL(), "--whole-path", "text", "a/b", "x")
	require.NoError(t, res.err)

	puts := replica.Puts()
	require.Len(t, puts, 2)
	assert.Equal(t, []string{"a", "b"}, puts[0].Path)
	assert.Equal(t, []string{"a/b"}, puts[1].Path)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	replica := testutil.NewReplica(t)
	cfgPath := filepath.Join(t.TempDir(), "caniput.hcl")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`username = "from-file"`), 0o644))

	res := executeWithEnv(t, map[string]string{config.EnvUsername: "from-env", config.EnvReplica: replica.URL()},
		"--config", cfgPath, "text", "p", "x")

	require.NoError(t, res.err)
	require.Len(t, replica.Puts(), 1)
	assert.Equal(t, "from-env", replica.Puts()[0].User)
}

func executeWithEnv(t *testing.T, env map[string]string, args ...string) result {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for k, v := range env {
		t.Setenv(k, v)
	}
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	err := Execute(context.Background(), out, logs, args)
	return result{out: out.String(), logs: logs.String(), err: err}
}

func TestLogFlags(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"x": "true"})

	res := execute(t, "-d", "--log-format", "text", "inspect", root)
	require.NoError(t, res.err)
	assert.Contains(t, res.logs, "level=DEBUG")

	res = execute(t, "-t", "--log-format", "json", "inspect", root)
	require.NoError(t, res.err)
	assert.Contains(t, res.logs, `"level":"TRACE"`)

	res = execute(t, "--log-format", "text", "inspect", root)
	require.NoError(t, res.err)
	assert.Empty(t, res.logs)
}

func TestCompletion(t *testing.T) {
	res := execute(t, "completion", "bash")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "caniput")
}
