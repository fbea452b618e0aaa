// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

const (
	// AESKeySize is the size of the AES-128 secrets.
	AESKeySize = 16
	// GCMNonceSize is the size of the AES-GCM nonce.
	GCMNonceSize = 12
	// GCMTagSize is the size of the AES-GCM authentication tag.
	GCMTagSize = 16
	// IVSize is the size of the AES-CBC IV and AES-CTR counter block.
	IVSize = aes.BlockSize
)

// AESKey is a symmetric AES-128 key in GCM, CBC or CTR mode.
type AESKey struct {
	id     string
	kind   Kind
	secret []byte
	block  cipher.Block
}

func newAESKey(id string, kind Kind, secret []byte) (*AESKey, error) {
	if len(secret) != AESKeySize {
		return nil, fmt.Errorf("AES key size %d, expected %d", len(secret), AESKeySize)
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	return &AESKey{
		id:     id,
		kind:   kind,
		secret: append([]byte(nil), secret...),
		block:  block,
	}, nil
}

func generateAES(id string, kind Kind) (*AESKey, error) {
	secret := make([]byte, AESKeySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return newAESKey(id, kind, secret)
}

func (k *AESKey) Kind() Kind       { return k.kind }
func (k *AESKey) KeyID() string    { return k.id }
func (k *AESKey) CanSign() bool    { return k.kind == KindAESGCM }
func (k *AESKey) CanEncrypt() bool { return true }
func (k *AESKey) NeedsNonce() bool { return true }

// NonceSize returns the nonce or IV size used by the key mode.
func (k *AESKey) NonceSize() int {
	if k.kind == KindAESGCM {
		return GCMNonceSize
	}
	return IVSize
}

// Secret returns a copy of the key material.
func (k *AESKey) Secret() []byte {
	return append([]byte(nil), k.secret...)
}

func (k *AESKey) nonce(nonce []byte) ([]byte, error) {
	if len(nonce) == 0 {
		fresh := make([]byte, k.NonceSize())
		if _, err := rand.Read(fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	}
	if len(nonce) != k.NonceSize() {
		return nil, fmt.Errorf("%w: %d bytes, expected %d", ErrNonceSize, len(nonce), k.NonceSize())
	}
	return nonce, nil
}

// SignWithNonce returns the GCM tag authenticating msg as additional data.
func (k *AESKey) SignWithNonce(msg, nonce []byte) ([]byte, []byte, error) {
	if k.kind != KindAESGCM {
		return nil, nil, ErrCannotSign
	}
	nonce, err := k.nonce(nonce)
	if err != nil {
		return nil, nil, err
	}
	aead, err := cipher.NewGCM(k.block)
	if err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, nonce, nil, msg), nonce, nil
}

// Verify recomputes the GCM tag of msg with nonce and compares it to sig.
func (k *AESKey) Verify(msg, sig, nonce []byte) error {
	if k.kind != KindAESGCM {
		return ErrCannotSign
	}
	if len(nonce) == 0 {
		return ErrNonceRequired
	}
	tag, _, err := k.SignWithNonce(msg, nonce)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(tag, sig) != 1 {
		return ErrVerifySig
	}
	return nil
}

// Encrypt encrypts payload. GCM returns a detached tag, CBC requires a
// payload aligned on the AES block size.
func (k *AESKey) Encrypt(payload []byte, opts EncryptOptions) (*Ciphertext, error) {
	nonce, err := k.nonce(opts.Nonce)
	if err != nil {
		return nil, err
	}

	switch k.kind {
	case KindAESGCM:
		aead, err := cipher.NewGCM(k.block)
		if err != nil {
			return nil, err
		}
		sealed := aead.Seal(nil, nonce, payload, nil)
		n := len(sealed) - GCMTagSize
		return &Ciphertext{Data: sealed[:n], Tag: sealed[n:], Nonce: nonce}, nil
	case KindAESCBC:
		if len(payload)%aes.BlockSize != 0 {
			return nil, fmt.Errorf("%w: %d bytes", ErrPayloadAlignment, len(payload))
		}
		out := make([]byte, len(payload))
		cipher.NewCBCEncrypter(k.block, nonce).CryptBlocks(out, payload)
		return &Ciphertext{Data: out, Nonce: nonce}, nil
	case KindAESCTR:
		out := make([]byte, len(payload))
		cipher.NewCTR(k.block, counterBlock(nonce, opts.Address)).XORKeyStream(out, payload)
		return &Ciphertext{Data: out, Nonce: nonce}, nil
	default:
		return nil, ErrCannotEncrypt
	}
}

// Decrypt reverses Encrypt. GCM decryption requires opts.Tag.
func (k *AESKey) Decrypt(data []byte, opts EncryptOptions) ([]byte, error) {
	if len(opts.Nonce) != k.NonceSize() {
		return nil, fmt.Errorf("%w: %d bytes, expected %d", ErrNonceSize, len(opts.Nonce), k.NonceSize())
	}

	switch k.kind {
	case KindAESGCM:
		aead, err := cipher.NewGCM(k.block)
		if err != nil {
			return nil, err
		}
		sealed := make([]byte, 0, len(data)+len(opts.Tag))
		sealed = append(append(sealed, data...), opts.Tag...)
		out, err := aead.Open(nil, opts.Nonce, sealed, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVerifySig, err)
		}
		return out, nil
	case KindAESCBC:
		if len(data)%aes.BlockSize != 0 {
			return nil, fmt.Errorf("%w: %d bytes", ErrPayloadAlignment, len(data))
		}
		out := make([]byte, len(data))
		cipher.NewCBCDecrypter(k.block, opts.Nonce).CryptBlocks(out, data)
		return out, nil
	case KindAESCTR:
		out := make([]byte, len(data))
		cipher.NewCTR(k.block, counterBlock(opts.Nonce, opts.Address)).XORKeyStream(out, data)
		return out, nil
	default:
		return nil, ErrCannotEncrypt
	}
}

// counterBlock builds the initial AES-CTR counter block from the nonce,
// storing the address big-endian in its last word when given.
func counterBlock(nonce []byte, address *uint32) []byte {
	iv := append([]byte(nil), nonce...)
	if address != nil {
		binary.BigEndian.PutUint32(iv[IVSize-4:], *address)
	}
	return iv
}

func (k *AESKey) jwk() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       k.Secret(),
		KeyID:     k.id,
		Algorithm: algorithmByKind[k.kind],
		Use:       useEnc,
	}
}
