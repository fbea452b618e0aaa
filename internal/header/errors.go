// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package header

import "errors"

// ErrInvalidPadding is returned when the certificates leave no room for the
// signature and trailer before the firmware offset.
var ErrInvalidPadding = errors.New("invalid padding")

// ErrNonceRequired is returned when a nonce-based key signs without a nonce.
var ErrNonceRequired = errors.New("sign key requires a nonce, provide a nonce or IV file")

// ErrNonceMismatch is returned when the key authenticated the header with a
// nonce different from the one stored in it.
var ErrNonceMismatch = errors.New("nonce used differs from the header nonce")

// ErrSignatureSize is returned when a signature cannot be normalized to the
// 32 byte installed header field.
var ErrSignatureSize = errors.New("unexpected signature size")

// ErrHeaderTooLarge is returned when the header does not fit before the
// firmware offset.
var ErrHeaderTooLarge = errors.New("header is larger than offset before binary")

// ErrInvalidState is returned when decoding an unknown image state block.
var ErrInvalidState = errors.New("invalid image state")

// ErrTruncated is returned when decoding a buffer shorter than its layout.
var ErrTruncated = errors.New("header data is truncated")
