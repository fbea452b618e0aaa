// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package bindiff

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// DefaultAlign is the default block size.
const DefaultAlign = 2

// Options bounds the comparison.
type Options struct {
	// Begin is the first compared byte, a multiple of Align.
	Begin int
	// End is the last compared byte, the last byte of a block. Zero
	// compares up to the end of the binaries.
	End int
	// Align is the block size.
	Align int
}

// Result is the delta between two binaries.
type Result struct {
	// FirstBlock and LastBlock are the indexes of the first and last
	// copied blocks. LastBlock is -1 when the binaries are identical.
	FirstBlock int
	LastBlock  int
	// Data holds the bytes of the second binary from FirstBlock to
	// LastBlock, trimmed to the second binary size.
	Data []byte
	// Offset is the byte offset of FirstBlock.
	Offset int
	// Identical is set when no block differs in the compared range.
	Identical bool
	// CompareEnd is the last compared byte.
	CompareEnd int
}

// Diff compares a and b block by block and returns the blocks of b that
// must be written over a. Bytes of b past the end of a are always part of
// the delta, zero or pad valued ones included, unless End stops the
// comparison before them.
func Diff(ctx context.Context, a, b []byte, opts Options) (*Result, error) {
	align := opts.Align
	if align <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrAlignment, align)
	}
	if opts.Begin < 0 || opts.Begin%align != 0 {
		return nil, fmt.Errorf("%w: begin %d, alignment %d", ErrBeginAlignment, opts.Begin, align)
	}
	if opts.End < 0 || (opts.End > 0 && (opts.End+1)%align != 0) {
		return nil, fmt.Errorf("%w: end %d, alignment %d", ErrEndAlignment, opts.End, align)
	}

	// Both binaries are zero padded with up to one block so that even an
	// aligned binary ends with a padding block.
	pa := padBlocks(a, align)
	pb := padBlocks(b, align)

	if opts.End > 0 && opts.End >= len(pb) {
		return nil, fmt.Errorf("%w: end %d, size %d", ErrEndOutOfRange, opts.End, len(pb))
	}

	endCmp, endCpy := bounds(len(pa), len(pb), opts.End)
	if endCpy == -1 && len(b) > len(a) && (opts.End == 0 || opts.End >= len(a)) {
		// The growth of b ends within the padding block of a.
		endCpy = endCmp
	}

	first, last := -1, -1
	if endCpy != -1 {
		// b grows past a: the growth is copied whatever its content, from
		// the block holding the first byte past a.
		growth := len(a) / align
		for i := opts.Begin / align; i < growth; i++ {
			if !bytes.Equal(pa[i*align:(i+1)*align], pb[i*align:(i+1)*align]) {
				first = i
				break
			}
		}
		if first == -1 {
			first = max(growth, opts.Begin/align)
		}
		last = endCpy / align
	} else {
		for i := opts.Begin / align; i <= endCmp/align; i++ {
			if bytes.Equal(pa[i*align:(i+1)*align], pb[i*align:(i+1)*align]) {
				continue
			}
			if first == -1 {
				first = i
			}
			last = i
		}
	}

	identical := false
	if first == -1 {
		logr.FromContextOrDiscard(ctx).V(1).Info("input files are identical within comparison range",
			"begin", opts.Begin, "end", endCmp)
		identical = true
		first, last = 0, -1
	}

	size := (last - first + 1) * align
	if (last+1)*align > len(b) {
		size = (last-first)*align + len(b)%align
	}
	data := make([]byte, 0, max(size, 0))
	if size > 0 {
		data = append(data, pb[first*align:first*align+size]...)
	}

	return &Result{
		FirstBlock: first,
		LastBlock:  last,
		Data:       data,
		Offset:     first * align,
		Identical:  identical,
		CompareEnd: endCmp,
	}, nil
}

// bounds returns the last compared byte and the last copied byte of the
// padded binaries, the latter -1 when copying stops with the comparison.
func bounds(sizeA, sizeB, end int) (endCmp, endCpy int) {
	switch {
	case sizeA == sizeB:
		if end > 0 && end < sizeA {
			return end, -1
		}
		return sizeA - 1, -1
	case sizeA > sizeB:
		if end > 0 && end < sizeB {
			return end, -1
		}
		return sizeB - 1, -1
	default:
		if end > 0 && end < sizeA {
			return end, -1
		}
		if end > 0 && end < sizeB {
			return sizeA - 1, end
		}
		return sizeA - 1, sizeB - 1
	}
}

func padBlocks(b []byte, align int) []byte {
	out := make([]byte, len(b), len(b)+align)
	copy(out, b)
	return append(out, make([]byte, align-len(b)%align)...)
}

// Apply writes the delta over a copy of a, growing it with zero bytes when
// the delta ends past it.
func Apply(a []byte, r *Result) []byte {
	out := append([]byte(nil), a...)
	if end := r.Offset + len(r.Data); end > len(out) {
		out = append(out, make([]byte, end-len(out))...)
	}
	copy(out[r.Offset:], r.Data)
	return out
}
