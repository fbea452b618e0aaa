// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

// Package fileutil contains the small file helpers shared by the fwimage
// commands: atomic output writes so that a failed run never leaves a
// partially written image in place, and parsing of the numeric arguments
// and side files exchanged between commands.
package fileutil
