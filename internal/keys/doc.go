// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

// Package keys provides the firmware signing and encryption keys used by
// the fwimage tool.
//
// Four key kinds are supported, each exposing a fixed set of capabilities:
//
//   - ecdsa-p256: ECDSA over SHA-256, 64 byte r||s signatures, sign only
//   - aes-gcm: AES-128-GCM, 16 byte tags, sign and encrypt, 12 byte nonce
//   - aes-cbc: AES-128-CBC, encrypt only, 16 byte IV
//   - aes-ctr: AES-128-CTR, encrypt only, 16 byte initial counter block
//
// Keys are persisted as JSON Web Keys. ECDSA keys can also be loaded from
// PEM files produced by OpenSSL.
package keys
