// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

// Package merge lays out boot loader, header and application segments
// into a single flashable binary.
//
// Merge and Append place segments with fixed roles. BigBinary folds an
// ordered list of arbitrary segments, refusing any injection that would
// overwrite data.
package merge
