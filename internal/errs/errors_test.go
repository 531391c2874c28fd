package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MatchesKindMarker(t *testing.T) {
	err := IO("ingest", fs.ErrPermission)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, ErrCodec)
	assert.Equal(t, KindIO, KindOf(err))
	assert.Equal(t, "io error: ingest: permission denied", err.Error())
}

func TestNew_NilErrorStaysNil(t *testing.T) {
	assert.NoError(t, New(KindCodec, "encode", nil))
}

func TestTimeout_IsTransport(t *testing.T) {
	err := Timeout("call put", Retryable(503, errors.New("unavailable")))

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "status 503")
}

func TestUnsupported_IsCodec(t *testing.T) {
	err := Unsupported("convert", "capsule of type %s", "thing")

	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, err, ErrCodec)
	assert.Equal(t, KindCodec, KindOf(err))
}

func TestTransportError_Retryable(t *testing.T) {
	retry := Retryable(0, errors.New("connection refused"))
	reject := Rejected(403, errors.New("forbidden"))

	assert.True(t, IsRetryable(retry))
	assert.True(t, IsRetryable(fmt.Errorf("attempt 2: %w", retry)))
	assert.False(t, IsRetryable(reject))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.ErrorIs(t, reject, ErrTransport)
}

func TestKindOf_OutermostWins(t *testing.T) {
	inner := Codec("decode", errors.New("bad magic"))
	outer := Transport("call", inner)

	assert.Equal(t, KindTransport, KindOf(outer))
	assert.Equal(t, KindCodec, KindOf(fmt.Errorf("wrapped: %w", inner)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}
