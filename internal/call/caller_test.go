package call

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/principal"
	"github.com/vk/caniput/internal/testutil"
	"github.com/vk/caniput/internal/transport"
)

var testCanister = principal.MustFromText("rrkah-fqaaa-aaaaa-aaaaq-cai")

func alwaysUnavailable(int, transport.Request) ([]byte, error) {
	return nil, errs.Retryable(503, errors.New("unavailable"))
}

func newCaller(t *testing.T, tr transport.Transport, p Policy) *Caller {
	t.Helper()
	c, err := NewCaller(tr, testCanister, p)
	require.NoError(t, err)
	return c
}

func TestNewCallerRejectsBadInput(t *testing.T) {
	_, err := NewCaller(nil, testCanister, DefaultPolicy())
	assert.Error(t, err)

	_, err = NewCaller(&testutil.MockTransport{}, testCanister, Policy{Pause: time.Second})
	assert.ErrorContains(t, err, "invalid policy")
}

func TestCallTimesOutWithinBounds(t *testing.T) {
	// --- Arrange ---
	policy := Policy{Pause: 50 * time.Millisecond, Timeout: 200 * time.Millisecond}
	tr := &testutil.MockTransport{Respond: alwaysUnavailable}
	c := newCaller(t, tr, policy)

	// --- Act ---
	start := time.Now()
	res, err := c.Call(context.Background(), "put", []byte("arg"))
	took := time.Since(start)

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTimeout)
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.Contains(t, err.Error(), "unavailable")
	assert.GreaterOrEqual(t, took, policy.Timeout)
	assert.LessOrEqual(t, took, policy.Timeout+policy.Pause)
	assert.GreaterOrEqual(t, res.Elapsed, policy.Timeout)
	assert.Equal(t, tr.Attempts(), res.Attempts)
	assert.GreaterOrEqual(t, tr.Attempts(), 2)
}

func TestCallPausesBetweenAttempts(t *testing.T) {
	policy := Policy{Pause: 20 * time.Millisecond, Timeout: time.Second}
	tr := &testutil.MockTransport{Respond: func(n int, _ transport.Request) ([]byte, error) {
		if n < 3 {
			return nil, errs.Retryable(0, errors.New("connection refused"))
		}
		return []byte("ok"), nil
	}}
	c := newCaller(t, tr, policy)

	res, err := c.Call(context.Background(), "put", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), res.Reply)
	assert.Equal(t, 3, res.Attempts)

	times := tr.AttemptTimes()
	require.Len(t, times, 3)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), policy.Pause)
	}
}

func TestCallSucceedsOnAttemptN(t *testing.T) {
	const n = 5
	policy := Policy{Pause: 10 * time.Millisecond, Timeout: 2 * time.Second}
	tr := &testutil.MockTransport{Respond: func(attempt int, req transport.Request) ([]byte, error) {
		assert.Equal(t, testCanister, req.Canister)
		assert.Equal(t, "put", req.Method)
		if attempt < n {
			return nil, errs.Retryable(500, errors.New("busy"))
		}
		return []byte("reply"), nil
	}}

	res, err := newCaller(t, tr, policy).Call(context.Background(), "put", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, n, res.Attempts)
	assert.Less(t, res.Elapsed, policy.Timeout)
}

func TestCallReturnsDefinitiveErrorsAtOnce(t *testing.T) {
	reject := errs.Rejected(403, errors.New("call rejected: forbidden"))
	tr := &testutil.MockTransport{Respond: func(int, transport.Request) ([]byte, error) { return nil, reject }}

	res, err := newCaller(t, tr, DefaultPolicy()).Call(context.Background(), "put", nil)
	require.Error(t, err)
	assert.Same(t, reject, err)
	assert.NotErrorIs(t, err, errs.ErrTimeout)
	assert.Equal(t, 1, tr.Attempts())
	assert.Equal(t, 1, res.Attempts)
}

func TestCallHonoursCancellation(t *testing.T) {
	tr := &testutil.MockTransport{Respond: alwaysUnavailable}
	c := newCaller(t, tr, Policy{Pause: 10 * time.Millisecond, Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Call(ctx, "put", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, errs.ErrTimeout)
}
