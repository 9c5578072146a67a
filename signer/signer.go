// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"

	"github.com/mystenlabs/objectpool/types"
)

// SchemeEd25519 is the signature-scheme flag prepended to public keys and
// serialized signatures.
const SchemeEd25519 byte = 0x00

var errSeedSize = errors.New("seed must be 32 bytes")

// Signer holds an ed25519 keypair and the address derived from it. It is
// read-only after construction and safe for concurrent use.
type Signer struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address types.Address
}

// New generates a fresh random keypair.
func New() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return fromKeys(pub, priv), nil
}

// FromSeed derives a deterministic keypair from a 32-byte seed.
func FromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errSeedSize
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return fromKeys(priv.Public().(ed25519.PublicKey), priv), nil
}

// FromHexSeed derives a deterministic keypair from a 0x-prefixed hex seed.
func FromHexSeed(s string) (*Signer, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return FromSeed(seed)
}

func fromKeys(pub ed25519.PublicKey, priv ed25519.PrivateKey) *Signer {
	return &Signer{priv: priv, pub: pub, address: deriveAddress(pub)}
}

// deriveAddress hashes the scheme flag followed by the public key. The
// address is the full 32-byte blake2b-256 digest in hex.
func deriveAddress(pub ed25519.PublicKey) types.Address {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, SchemeEd25519)
	buf = append(buf, pub...)
	sum := blake2b.Sum256(buf)
	return types.Address("0x" + hex.EncodeToString(sum[:]))
}

// Address returns the account address owning the signer's objects.
func (s *Signer) Address() types.Address {
	return s.address
}

// PublicKey returns the raw public key bytes.
func (s *Signer) PublicKey() []byte {
	out := make([]byte, len(s.pub))
	copy(out, s.pub)
	return out
}

// Sign produces the serialized signature envelope for the given transaction
// bytes: base64(flag || signature || pubkey).
func (s *Signer) Sign(txBytes []byte) string {
	sig := ed25519.Sign(s.priv, txBytes)
	envelope := make([]byte, 0, 1+len(sig)+len(s.pub))
	envelope = append(envelope, SchemeEd25519)
	envelope = append(envelope, sig...)
	envelope = append(envelope, s.pub...)
	return base64.StdEncoding.EncodeToString(envelope)
}
