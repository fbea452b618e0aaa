// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/go-jose/go-jose/v4"
)

// ECDSASignatureSize is the size of a raw r||s P-256 signature.
const ECDSASignatureSize = 64

// ECDSAKey is an ECDSA P-256 key signing the SHA-256 digest of messages.
// A key loaded from a public key file can only verify.
type ECDSAKey struct {
	id   string
	priv *ecdsa.PrivateKey
	pub  *ecdsa.PublicKey
}

type ecdsaSignature struct {
	R, S *big.Int
}

func newECDSAKey(id string, priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) (*ECDSAKey, error) {
	if priv != nil {
		pub = &priv.PublicKey
	}
	if pub == nil {
		return nil, fmt.Errorf("missing EC key material")
	}
	if pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("unsupported curve %s, expected P-256", pub.Curve.Params().Name)
	}
	return &ECDSAKey{id: id, priv: priv, pub: pub}, nil
}

func generateECDSA(id string) (*ECDSAKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return newECDSAKey(id, priv, nil)
}

func (k *ECDSAKey) Kind() Kind       { return KindECDSAP256 }
func (k *ECDSAKey) KeyID() string    { return k.id }
func (k *ECDSAKey) CanSign() bool    { return k.priv != nil }
func (k *ECDSAKey) CanEncrypt() bool { return false }
func (k *ECDSAKey) NeedsNonce() bool { return false }

// Sign returns the 64 byte r||s signature of the SHA-256 digest of msg.
// Signatures are deterministic (RFC 6979).
func (k *ECDSAKey) Sign(msg []byte) ([]byte, error) {
	if k.priv == nil {
		return nil, ErrCannotSign
	}
	digest := sha256.Sum256(msg)
	der, err := k.priv.Sign(nil, digest[:], crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	var parsed ecdsaSignature
	if _, err := asn1.Unmarshal(der, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w", err)
	}
	sig := make([]byte, ECDSASignatureSize)
	parsed.R.FillBytes(sig[:32])
	parsed.S.FillBytes(sig[32:])
	return sig, nil
}

// Verify checks a 64 byte r||s signature over msg.
func (k *ECDSAKey) Verify(msg, sig, _ []byte) error {
	if len(sig) != ECDSASignatureSize {
		return fmt.Errorf("%w: signature size %d, expected %d", ErrVerifySig, len(sig), ECDSASignatureSize)
	}
	digest := sha256.Sum256(msg)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	if !ecdsa.Verify(k.pub, digest[:], r, s) {
		return ErrVerifySig
	}
	return nil
}

// PublicPoint returns the uncompressed public point as X||Y.
func (k *ECDSAKey) PublicPoint() []byte {
	out := make([]byte, 64)
	k.pub.X.FillBytes(out[:32])
	k.pub.Y.FillBytes(out[32:])
	return out
}

func (k *ECDSAKey) jwk() jose.JSONWebKey {
	var key any = k.pub
	if k.priv != nil {
		key = k.priv
	}
	return jose.JSONWebKey{
		Key:       key,
		KeyID:     k.id,
		Algorithm: string(jose.ES256),
		Use:       useSig,
	}
}
