// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package bindiff

import "errors"

// ErrAlignment is returned for a zero or negative alignment.
var ErrAlignment = errors.New("wrong alignment value, must be greater than 0")

// ErrBeginAlignment is returned when begin is not a multiple of the alignment.
var ErrBeginAlignment = errors.New("wrong begin value, must be a modulo of the specified alignment")

// ErrEndAlignment is returned when end is not the last offset of a block.
var ErrEndAlignment = errors.New("wrong end value, must be last offset of a block defined by alignment")

// ErrEndOutOfRange is returned when end lies past the second binary.
var ErrEndOutOfRange = errors.New("wrong end set, must be within secondary binary file range")
