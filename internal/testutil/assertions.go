package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that captured log output contains every fragment,
// for example `msg="Put finished."` and `stored=true`.
func AssertLogged(t *testing.T, logs fmt.Stringer, fragments ...string) {
	t.Helper()
	out := logs.String()
	for _, f := range fragments {
		require.True(t, strings.Contains(out, f), "expected %q in log output:\n%s", f, out)
	}
}
