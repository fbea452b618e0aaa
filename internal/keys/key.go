// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

// Kind identifies the algorithm family of a key.
type Kind string

const (
	KindECDSAP256 Kind = "ecdsa-p256"
	KindAESGCM    Kind = "aes-gcm"
	KindAESCBC    Kind = "aes-cbc"
	KindAESCTR    Kind = "aes-ctr"
)

// Kinds lists the supported key kinds.
var Kinds = []Kind{KindAESGCM, KindECDSAP256, KindAESCBC, KindAESCTR}

// ParseKind returns the Kind matching s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		names = append(names, string(k))
	}
	return "", fmt.Errorf("%w: %s (supported: %s)", ErrUnknownKind, s, strings.Join(names, ", "))
}

// Key is the capability contract shared by every key kind.
type Key interface {
	// Kind returns the algorithm family of the key.
	Kind() Kind
	// KeyID returns the key identifier, empty for keys loaded from PEM.
	KeyID() string
	// CanSign reports whether the key can produce signatures or tags.
	CanSign() bool
	// CanEncrypt reports whether the key can encrypt payloads.
	CanEncrypt() bool
	// NeedsNonce reports whether signing or encryption consumes a nonce.
	NeedsNonce() bool
	// Verify checks sig over msg. The nonce is ignored by keys that do not need one.
	Verify(msg, sig, nonce []byte) error

	jwk() jose.JSONWebKey
}

// Signer is implemented by keys that sign without a nonce.
type Signer interface {
	Key
	Sign(msg []byte) ([]byte, error)
}

// NonceSigner is implemented by keys that need a nonce to sign.
// When nonce is empty a fresh one is generated and returned.
type NonceSigner interface {
	Key
	SignWithNonce(msg, nonce []byte) (sig []byte, nonceUsed []byte, err error)
}

// EncryptOptions carries the IV material of an encryption.
type EncryptOptions struct {
	// Nonce is the nonce or IV. When empty a fresh one is generated.
	Nonce []byte
	// Address, when set, is stored in the low 32 bits of the AES-CTR
	// initial counter block.
	Address *uint32
	// Tag is the detached authentication tag, used by GCM decryption.
	Tag []byte
}

// Ciphertext is the result of an encryption.
type Ciphertext struct {
	Data  []byte
	Tag   []byte
	Nonce []byte
}

// Encrypter is implemented by keys that can encrypt payloads.
type Encrypter interface {
	Key
	Encrypt(payload []byte, opts EncryptOptions) (*Ciphertext, error)
	Decrypt(data []byte, opts EncryptOptions) ([]byte, error)
}

// Sign authenticates msg with k. Keys that need a nonce use the given one,
// generating it when empty; the nonce actually used is returned so that
// the caller can persist it.
func Sign(k Key, msg, nonce []byte) (sig []byte, nonceUsed []byte, err error) {
	if !k.CanSign() {
		return nil, nil, ErrCannotSign
	}
	switch s := k.(type) {
	case NonceSigner:
		return s.SignWithNonce(msg, nonce)
	case Signer:
		sig, err = s.Sign(msg)
		return sig, nonce, err
	default:
		return nil, nil, ErrCannotSign
	}
}

// Encrypt encrypts payload with k.
func Encrypt(k Key, payload []byte, opts EncryptOptions) (*Ciphertext, error) {
	e, ok := k.(Encrypter)
	if !ok || !k.CanEncrypt() {
		return nil, ErrCannotEncrypt
	}
	return e.Encrypt(payload, opts)
}

// Decrypt reverses Encrypt.
func Decrypt(k Key, data []byte, opts EncryptOptions) ([]byte, error) {
	e, ok := k.(Encrypter)
	if !ok || !k.CanEncrypt() {
		return nil, ErrCannotEncrypt
	}
	return e.Decrypt(data, opts)
}
