// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package merge

import (
	"errors"
	"fmt"
)

// Exit codes reported for layout conflicts.
const (
	ExitSBSFUTooLarge   = 2
	ExitLoaderTooLarge  = 3
	ExitPartialOverlap  = 2
	ExitOverlapNotEmpty = 3
	ExitUnmanagedLayout = 99
)

// ErrSBSFUTooLarge is returned when the boot loader ends after the loader base.
var ErrSBSFUTooLarge = errors.New("sbsfu is too large to merge with loader")

// ErrLoaderTooLarge is returned when the loader ends after the header address.
var ErrLoaderTooLarge = errors.New("loader is too large to merge with appli")

// ErrInsufficientSpace is returned when a segment must be placed below the
// end of the data already laid out.
var ErrInsufficientSpace = errors.New("insufficient space between segments")

// ErrHeaderAddress is returned when the header address can neither be read
// from the arguments nor derived from the application base.
var ErrHeaderAddress = errors.New("header address is required without user application")

// ErrOverlapNotEmpty is returned when an injected segment would overwrite
// bytes that differ from the pad value.
var ErrOverlapNotEmpty = errors.New("overlapped zone is not empty")

// ErrPartialOverlap is returned when a segment straddles a boundary of the
// aggregated binary.
var ErrPartialOverlap = errors.New("current binary is overlapping with previously aggregated binaries")

// ErrUnmanagedLayout is returned for segment configurations outside the
// supported cases.
var ErrUnmanagedLayout = errors.New("segment configuration is generating not managed case")

// ConflictError is a layout conflict carrying the process exit status.
type ConflictError struct {
	Code int
	Err  error
}

func (e *ConflictError) Error() string {
	return e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func conflict(code int, err error, format string, args ...any) error {
	return &ConflictError{Code: code, Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}
