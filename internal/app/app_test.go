package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/testutil"
	"github.com/vk/caniput/internal/transport"
	"github.com/vk/caniput/internal/value"
)

// setupAppTest creates an App pointed at a fresh fake replica.
func setupAppTest(t *testing.T, mutate ...func(*Config)) (*App, *testutil.Replica, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()

	replica := testutil.NewReplica(t)
	cfg := DefaultConfig()
	cfg.Replica = replica.URL()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	for _, m := range mutate {
		m(&cfg)
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	a := New(out, logs, validated)
	t.Cleanup(func() {
		_ = a.Close()
		if os.Getenv("CANIPUT_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, replica, out, logs
}

func TestPutText(t *testing.T) {
	// --- Arrange ---
	a, replica, _, logs := setupAppTest(t, func(c *Config) { c.Username = "alice" })

	// --- Act ---
	out, err := a.PutText(context.Background(), "notes/today", "hello\n")

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, out.Stored)
	puts := replica.Puts()
	require.Len(t, puts, 1)
	assert.Equal(t, "alice", puts[0].User)
	assert.Equal(t, []string{"notes", "today"}, puts[0].Path)
	require.Len(t, puts[0].Values, 1)
	assert.True(t, value.Equal(value.Text("hello\n"), puts[0].Values[0]))
	testutil.AssertLogged(t, logs, `msg="Got root key."`, `msg="Put finished."`, "stored=true")
}

func TestPutRejectsForgedReply(t *testing.T) {
	// --- Arrange ---
	a, replica, _, _ := setupAppTest(t)
	replica.Forge = true

	// --- Act ---
	_, err := a.PutText(context.Background(), "notes", "hello")

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrIdentity)
	assert.Equal(t, 1, replica.StatusServed())
	assert.Len(t, replica.Puts(), 1, "the put reached the gateway, only its reply was refused")
}

func TestPutWithoutRootKeyTrustsReplies(t *testing.T) {
	// --- Arrange ---
	a, replica, _, _ := setupAppTest(t, func(c *Config) { c.FetchRootKey = false })
	replica.Forge = true

	// --- Act ---
	out, err := a.PutText(context.Background(), "notes", "hello")

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.Zero(t, replica.StatusServed())
}

func TestPutValueSyntaxes(t *testing.T) {
	tests := []struct {
		name    string
		literal string
		syntax  Syntax
		want    value.Value
	}{
		{"candid record", `record { name = "x"; size = 3 : nat8 }`, SyntaxCandid, value.Record{
			{Label: value.NamedLabel("name"), Value: value.Text("x")},
			{Label: value.NamedLabel("size"), Value: value.Nat8(3)},
		}},
		{"candid opt", `opt true`, SyntaxCandid, value.Opt{Value: value.Bool(true)}},
		{"hcl list", `["a", true]`, SyntaxHCL, value.Vec{value.Text("a"), value.Bool(true)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, replica, _, _ := setupAppTest(t)

			out, err := a.PutValue(context.Background(), "v", tc.literal, tc.syntax)
			require.NoError(t, err)
			assert.True(t, out.Stored)

			puts := replica.Puts()
			require.Len(t, puts, 1)
			require.Len(t, puts[0].Values, 1)
			assert.True(t, value.Equal(tc.want, puts[0].Values[0]), "got %s", value.Format(puts[0].Values[0]))
		})
	}
}

func TestPutValueParseErrorSkipsNetwork(t *testing.T) {
	a, replica, _, _ := setupAppTest(t)

	_, err := a.PutValue(context.Background(), "v", `record {`, SyntaxCandid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCodec))
	assert.Empty(t, replica.Puts())
}

func TestPutFile(t *testing.T) {
	// --- Arrange ---
	a, replica, _, _ := setupAppTest(t)
	root := testutil.WriteTree(t, map[string]string{
		"a.txt":       "hello\n",
		"sub/num":     "42",
		"sub/empty/":  "",
		"sub/raw.bin": "\xff\xfe",
	})

	// --- Act ---
	out, err := a.PutFile(context.Background(), "backup", root, true)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, out.Stored)
	puts := replica.Puts()
	require.Len(t, puts, 1)

	want := value.FileValue{File: value.Directory{Entries: []value.NameFile{
		{Name: "a.txt", File: value.TextFile("hello")},
		{Name: "sub", File: value.Directory{Entries: []value.NameFile{
			{Name: "empty", File: value.Directory{}},
			{Name: "num", File: value.ValueFile{Value: value.Number("42")}},
			{Name: "raw.bin", File: value.BinaryFile{0xff, 0xfe}},
		}}},
	}}}
	assert.True(t, value.Equal(want, puts[0].Values[0]), "got %s", value.Format(puts[0].Values[0]))
}

func TestPutRefused(t *testing.T) {
	a, replica, _, logs := setupAppTest(t)
	replica.Refuse = true

	out, err := a.PutText(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.False(t, out.Stored)
	testutil.AssertLogged(t, logs, `msg="Failure to put."`)
}

func TestPutWithInjectedTransport(t *testing.T) {
	tr := &testutil.MockTransport{Respond: func(int, transport.Request) ([]byte, error) {
		return nil, errs.Rejected(400, errors.New("call rejected: bad"))
	}}
	cfg, err := NewConfig(DefaultConfig())
	require.NoError(t, err)
	a := New(&bytes.Buffer{}, &bytes.Buffer{}, cfg, WithTransport(tr))

	_, err = a.PutText(context.Background(), "x", "y")
	require.Error(t, err)
	assert.ErrorContains(t, err, "call rejected: bad")
	assert.Equal(t, 1, tr.Attempts())

	require.NoError(t, a.Close())
	assert.True(t, tr.Closed())
}

func TestInspect(t *testing.T) {
	// --- Arrange ---
	cfg, err := NewConfig(DefaultConfig())
	require.NoError(t, err)
	out := &bytes.Buffer{}
	a := New(out, &bytes.Buffer{}, cfg)
	root := testutil.WriteTree(t, map[string]string{
		"notes.txt": "remember",
		"flag":      "true",
	})

	// --- Act ---
	err = a.Inspect(context.Background(), root, true)

	// --- Assert ---
	require.NoError(t, err)
	got := out.String()
	for _, want := range []string{"directory", "2 entries", "flag", "value", "true", "notes.txt", "text", `"remember"`} {
		assert.Contains(t, got, want)
	}
	assert.Nil(t, a.transport, "inspect must not connect")
}

func TestInspectMissingPath(t *testing.T) {
	cfg, err := NewConfig(DefaultConfig())
	require.NoError(t, err)
	a := New(&bytes.Buffer{}, &bytes.Buffer{}, cfg)

	err = a.Inspect(context.Background(), "/does/not/exist", false)
	assert.True(t, errors.Is(err, errs.ErrIO))
}

func TestPutWholePath(t *testing.T) {
	// --- Arrange ---
	a, replica, _, _ := setupAppTest(t, func(c *Config) { c.WholePath = true })

	// --- Act ---
	out, err := a.PutText(context.Background(), "notes//today/", "hi")

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, out.Stored)
	puts := replica.Puts()
	require.Len(t, puts, 1)
	assert.Equal(t, []string{"notes//today/"}, puts[0].Path)
}

func TestPathSegments(t *testing.T) {
	split := DefaultConfig()
	assert.Equal(t, []string{"a", "b"}, split.PathSegments("a/b"))

	whole := DefaultConfig()
	whole.WholePath = true
	assert.Equal(t, []string{"a/b"}, whole.PathSegments("a/b"))
	assert.Equal(t, []string{""}, whole.PathSegments(""))
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitPath("/a//b/"))
	assert.Equal(t, []string{"x"}, SplitPath("x"))
	assert.Nil(t, SplitPath(""))
}

func TestParseSyntax(t *testing.T) {
	s, err := ParseSyntax("HCL")
	require.NoError(t, err)
	assert.Equal(t, SyntaxHCL, s)

	_, err = ParseSyntax("yaml")
	assert.Error(t, err)
}
