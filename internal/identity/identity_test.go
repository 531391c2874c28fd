package identity

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/principal"
)

func TestBasicSignsAndVerifies(t *testing.T) {
	id, err := NewBasic(nil)
	require.NoError(t, err)

	digest := []byte("request digest")
	sig, err := id.Sign(digest)
	require.NoError(t, err)

	require.NoError(t, Verify(id.PublicKey(), digest, sig))
	err = Verify(id.PublicKey(), []byte("tampered"), sig)
	assert.True(t, errors.Is(err, errs.ErrIdentity))
}

func TestBasicSenderIsSelfAuthenticating(t *testing.T) {
	id, err := FromSeed(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	assert.Equal(t, principal.SelfAuthenticating(id.PublicKey()), id.Sender())
	assert.Equal(t, 29, id.Sender().Len())
	assert.Equal(t, byte(0x02), id.Sender().Bytes()[28])

	again, err := FromSeed(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	assert.Equal(t, id.Sender(), again.Sender())
}

func TestFromSeedRejectsShortSeed(t *testing.T) {
	_, err := FromSeed([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, errs.KindIdentity, errs.KindOf(err))
}

func TestNewBasicReaderFailure(t *testing.T) {
	_, err := NewBasic(bytes.NewReader(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrIdentity))
}

func TestAnonymous(t *testing.T) {
	var id Identity = Anonymous{}
	assert.True(t, id.Sender().IsAnonymous())
	assert.Nil(t, id.PublicKey())
	sig, err := id.Sign([]byte("x"))
	assert.NoError(t, err)
	assert.Nil(t, sig)
}
