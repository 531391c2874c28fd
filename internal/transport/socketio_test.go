package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/caniput/internal/errs"
)

func TestParseReply(t *testing.T) {
	t.Run("other call", func(t *testing.T) {
		_, match := parseReply("a", map[string]any{"id": "b", "status": ReplyReplied})
		assert.False(t, match)
	})

	t.Run("not an object", func(t *testing.T) {
		_, match := parseReply("a", "text")
		assert.False(t, match)
	})

	t.Run("replied", func(t *testing.T) {
		r, match := parseReply("a", map[string]any{"id": "a", "status": ReplyReplied, "reply": "4449444c0000"})
		require.True(t, match)
		require.NoError(t, r.err)
		assert.Equal(t, []byte("DIDL\x00\x00"), r.body)
	})

	t.Run("bad hex", func(t *testing.T) {
		r, _ := parseReply("a", map[string]any{"id": "a", "status": ReplyReplied, "reply": "zz"})
		assert.True(t, errors.Is(r.err, errs.ErrCodec))
	})

	t.Run("rejected", func(t *testing.T) {
		r, _ := parseReply("a", map[string]any{"id": "a", "status": ReplyRejected, "message": "no such canister"})
		require.Error(t, r.err)
		assert.False(t, errs.IsRetryable(r.err))
		assert.ErrorContains(t, r.err, "no such canister")
	})

	t.Run("unknown status", func(t *testing.T) {
		r, _ := parseReply("a", map[string]any{"id": "a", "status": "processing"})
		assert.True(t, errs.IsRetryable(r.err))
	})
}

func TestNewSocketIORejectsHTTP(t *testing.T) {
	_, err := NewSocketIO("http://example.org", nil)
	assert.Error(t, err)
}
