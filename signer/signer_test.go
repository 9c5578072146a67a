// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(b byte) []byte {
	s := make([]byte, 32)
	for i := range s {
		s[i] = b
	}
	return s
}

func TestFromSeedDeterministic(t *testing.T) {
	a, err := FromSeed(seed(7))
	require.NoError(t, err)
	b, err := FromSeed(seed(7))
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.Len(t, string(a.Address()), 2+64)
	assert.Equal(t, "0x", string(a.Address())[:2])
}

func TestDistinctSeedsDistinctAddresses(t *testing.T) {
	a, err := FromSeed(seed(1))
	require.NoError(t, err)
	b, err := FromSeed(seed(2))
	require.NoError(t, err)
	assert.NotEqual(t, a.Address(), b.Address())
}

func TestFromSeedRejectsBadLength(t *testing.T) {
	_, err := FromSeed(make([]byte, 16))
	require.Error(t, err)
}

func TestFromHexSeed(t *testing.T) {
	a, err := FromHexSeed("0x0101010101010101010101010101010101010101010101010101010101010101")
	require.NoError(t, err)
	b, err := FromSeed(seed(1))
	require.NoError(t, err)
	assert.Equal(t, b.Address(), a.Address())
}

func TestSignEnvelope(t *testing.T) {
	s, err := FromSeed(seed(3))
	require.NoError(t, err)

	msg := []byte(`{"sender":"0xabc"}`)
	envelope, err := base64.StdEncoding.DecodeString(s.Sign(msg))
	require.NoError(t, err)

	require.Len(t, envelope, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	assert.Equal(t, SchemeEd25519, envelope[0])

	sig := envelope[1 : 1+ed25519.SignatureSize]
	pub := envelope[1+ed25519.SignatureSize:]
	assert.Equal(t, s.PublicKey(), []byte(pub))
	assert.True(t, ed25519.Verify(pub, msg, sig))
}
