package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvUsername: "from-env",
		EnvLogLevel: "debug",
		EnvReplica:  "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	f := &File{Username: "from-file", Replica: "http://file:8000", Canister: "aaaaa-aa"}

	ApplyEnv(f, lookup)

	assert.Equal(t, "from-env", f.Username)
	assert.Equal(t, "http://file:8000", f.Replica)
	assert.Equal(t, "aaaaa-aa", f.Canister)
	assert.Equal(t, "debug", f.LogLevel())
}
