package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
username       = "alice"
replica        = "http://replica.local:8000"
canister       = "rrkah-fqaaa-aaaaa-aaaaq-cai"
fetch_root_key = false

retry {
  pause   = "250ms"
  timeout = "5s"
}

log {
  level  = "debug"
  format = "json"
}
`

const sampleTOML = `
username = "alice"
replica = "http://replica.local:8000"
canister = "rrkah-fqaaa-aaaaa-aaaaq-cai"
fetch_root_key = false

[retry]
pause = "250ms"
timeout = "5s"

[log]
level = "debug"
format = "json"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"hcl", "caniput.hcl", sampleHCL},
		{"toml", "caniput.toml", sampleTOML},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			path := writeFile(t, t.TempDir(), tc.file, tc.content)

			// --- Act ---
			f, used, err := Load(path)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, path, used)
			assert.Equal(t, "alice", f.Username)
			assert.Equal(t, "http://replica.local:8000", f.Replica)
			assert.Equal(t, "rrkah-fqaaa-aaaaa-aaaaq-cai", f.Canister)
			require.NotNil(t, f.FetchRootKey)
			assert.False(t, *f.FetchRootKey)

			pause, err := f.RetryPause()
			require.NoError(t, err)
			assert.Equal(t, 250*time.Millisecond, pause)
			timeout, err := f.RetryTimeout()
			require.NoError(t, err)
			assert.Equal(t, 5*time.Second, timeout)

			assert.Equal(t, "debug", f.LogLevel())
			assert.Equal(t, "json", f.LogFormat())
		})
	}
}

func TestLoadPartialFileLeavesRestUnset(t *testing.T) {
	path := writeFile(t, t.TempDir(), "caniput.hcl", `username = "bob"`)

	f, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", f.Username)
	assert.Empty(t, f.Replica)
	assert.Nil(t, f.FetchRootKey)
	assert.Nil(t, f.Retry)
	assert.Empty(t, f.LogLevel())

	pause, err := f.RetryPause()
	require.NoError(t, err)
	assert.Zero(t, pause)
}

func TestLoadDefaultDirectory(t *testing.T) {
	t.Run("missing file is not an error", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		f, used, err := Load("")
		require.NoError(t, err)
		assert.Empty(t, used)
		assert.Equal(t, &File{}, f)
	})

	t.Run("hcl wins over toml", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", home)
		writeFile(t, home, "caniput/caniput.toml", `username = "from-toml"`)
		hclPath := writeFile(t, home, "caniput/caniput.hcl", `username = "from-hcl"`)

		f, used, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, hclPath, used)
		assert.Equal(t, "from-hcl", f.Username)
	})

	t.Run("toml alone", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", home)
		writeFile(t, home, "caniput/caniput.toml", `username = "from-toml"`)

		f, _, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-toml", f.Username)
	})
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"explicit missing file", filepath.Join(dir, "nope.hcl"), "config file"},
		{"unknown extension", writeFile(t, dir, "caniput.yaml", "username: x"), "unsupported config format"},
		{"hcl syntax", writeFile(t, dir, "bad.hcl", "username = "), "failed to parse HCL file"},
		{"hcl unknown attribute", writeFile(t, dir, "extra.hcl", `colour = "blue"`), "failed to decode HCL file"},
		{"toml unknown key", writeFile(t, dir, "extra.toml", `colour = "blue"`), "parse config"},
		{"bad duration", writeFile(t, dir, "dur.hcl", "retry {\n  pause = \"soon\"\n}\n"), "retry.pause"},
		{"negative duration", writeFile(t, dir, "neg.toml", "[retry]\ntimeout = \"-1s\"\n"), "retry.timeout must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Load(tc.path)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoaderFor(t *testing.T) {
	l, err := LoaderFor("x/caniput.HCL")
	require.NoError(t, err)
	assert.IsType(t, HCLLoader{}, l)

	l, err = LoaderFor("caniput.toml")
	require.NoError(t, err)
	assert.IsType(t, TOMLLoader{}, l)

	_, err = LoaderFor("caniput")
	assert.Error(t, err)
}
