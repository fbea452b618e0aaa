// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

// Package header builds, decodes and verifies the authenticated firmware
// header consumed by the secure boot loader.
//
// The header is little-endian:
//
//	magic | protocol_version(2) | fw_version(2) | total_size(4) |
//	partial_offset(4) | partial_size(4) | tag | partial_tag | nonce |
//	reserved | [leaf_cert] | [inter_cert] | [pad] | signature |
//	image_state(96) | fingerprint(32)
//
// The signature covers every byte that precedes it.
package header
