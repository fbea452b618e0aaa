// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

// Package bindiff computes the block aligned delta between two firmware
// binaries used for partial updates.
package bindiff
