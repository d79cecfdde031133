package session

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner(t *testing.T) {
	assert := assert.New(t)

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	signer := NewSigner("kid-1", privateKey, time.Hour, func() time.Time { return now })

	token, expiresAt, err := signer.Issue("user-1")
	assert.Nil(err)
	assert.Equal(now.Add(time.Hour), expiresAt)

	t.Run("Verify", func(t *testing.T) {
		subject, err := signer.Verify(token)
		assert.Nil(err)
		assert.Equal("user-1", subject)
	})

	t.Run("Expired", func(t *testing.T) {
		later := NewSigner("kid-1", privateKey, time.Hour, func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Verify(token)
		assert.ErrorIs(err, ErrorInvalidToken)
	})

	t.Run("Other key", func(t *testing.T) {
		otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		other := NewSigner("kid-1", otherKey, time.Hour, func() time.Time { return now })
		_, err = other.Verify(token)
		assert.ErrorIs(err, ErrorInvalidToken)
	})

	t.Run("Other key id", func(t *testing.T) {
		other := NewSigner("kid-2", privateKey, time.Hour, func() time.Time { return now })
		_, err := other.Verify(token)
		assert.ErrorIs(err, ErrorInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := signer.Verify("a.b.c")
		assert.ErrorIs(err, ErrorInvalidToken)
	})
}
