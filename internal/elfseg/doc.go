// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

// Package elfseg flattens the loadable segments of an ELF executable into
// a single contiguous buffer addressed from its load base.
package elfseg
