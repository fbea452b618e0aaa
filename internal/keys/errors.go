// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"errors"
	"fmt"
)

// ErrCannotSign is returned when a key without signing capability is used to sign.
var ErrCannotSign = errors.New("key is not usable to sign")

// ErrCannotEncrypt is returned when a key without encryption capability is used to encrypt.
var ErrCannotEncrypt = errors.New("key does not support encryption")

// ErrNonceRequired is returned when a nonce-requiring operation has no nonce.
var ErrNonceRequired = errors.New("nonce required for this key")

// ErrNonceSize is returned when a supplied nonce has the wrong length.
var ErrNonceSize = errors.New("invalid nonce size")

// ErrPayloadAlignment is returned when a CBC payload is not a multiple of the block size.
var ErrPayloadAlignment = errors.New("payload size is not a multiple of the AES block size")

// ErrVerifySig is returned when signature verification fails.
var ErrVerifySig = errors.New("failed to verify signature")

// ErrNoPublicPart is returned when public material is requested from a symmetric key.
var ErrNoPublicPart = errors.New("symmetric keys have no public part")

// ErrUnknownKind is returned for unsupported key kinds.
var ErrUnknownKind = errors.New("unexpected key type")

// FormatError reports malformed or unsupported key material.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid key: %v", e.Err)
	}
	return fmt.Sprintf("invalid key file %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
