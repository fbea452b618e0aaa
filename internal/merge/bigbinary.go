// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package merge

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/orbfw/fwimage/internal/elfseg"
)

// BigBinary is the contiguous aggregate of the segments folded so far,
// covering [Base, End).
type BigBinary struct {
	Base uint32
	End  uint64
	Data []byte
}

// NewBigBinary starts an aggregate from a copy of seg.
func NewBigBinary(seg elfseg.Segment) *BigBinary {
	return &BigBinary{
		Base: seg.Base,
		End:  seg.End(),
		Data: append([]byte(nil), seg.Data...),
	}
}

// Inject folds seg into the aggregate. Segments before or after the
// aggregate are joined with pad fill, segments inside it must only cover
// pad bytes, and a segment containing the aggregate must only have pad
// bytes where the aggregate lands. A failed injection leaves bb unchanged.
func (bb *BigBinary) Inject(seg elfseg.Segment, pad byte) error {
	base, end := uint64(seg.Base), seg.End()
	bbBase, bbEnd := uint64(bb.Base), bb.End

	if end > math.MaxUint32 {
		return conflict(ExitUnmanagedLayout, ErrUnmanagedLayout,
			"segment [0x%08x, 0x%x) exceeds the 32-bit address space", base, end)
	}

	switch {
	case base > bbBase && end < bbEnd:
		off := base - bbBase
		if i := firstNonPad(bb.Data[off:off+uint64(len(seg.Data))], pad); i >= 0 {
			return conflict(ExitOverlapNotEmpty, ErrOverlapNotEmpty,
				"byte at 0x%08x would be overwritten by segment [0x%08x, 0x%08x)", base+uint64(i), base, end)
		}
		copy(bb.Data[off:], seg.Data)
	case end <= bbBase:
		data := make([]byte, 0, bbEnd-base)
		data = append(data, seg.Data...)
		data = append(data, bytes.Repeat([]byte{pad}, int(bbBase-end))...)
		bb.Data = append(data, bb.Data...)
		bb.Base = seg.Base
	case base >= bbEnd:
		bb.Data = append(bb.Data, bytes.Repeat([]byte{pad}, int(base-bbEnd))...)
		bb.Data = append(bb.Data, seg.Data...)
		bb.End = end
	case base <= bbBase && end <= bbEnd, base >= bbBase && end >= bbEnd:
		return conflict(ExitPartialOverlap, ErrPartialOverlap,
			"segment [0x%08x, 0x%08x) straddles [0x%08x, 0x%08x)", base, end, bbBase, bbEnd)
	case base < bbBase && end > bbEnd:
		off := bbBase - base
		if i := firstNonPad(seg.Data[off:off+uint64(len(bb.Data))], pad); i >= 0 {
			return conflict(ExitOverlapNotEmpty, ErrOverlapNotEmpty,
				"byte at 0x%08x of segment [0x%08x, 0x%08x) would be overwritten", bbBase+uint64(i), base, end)
		}
		data := append([]byte(nil), seg.Data...)
		copy(data[off:], bb.Data)
		bb.Data = data
		bb.Base = seg.Base
		bb.End = end
	default:
		return conflict(ExitUnmanagedLayout, ErrUnmanagedLayout,
			"segment [0x%08x, 0x%08x), aggregate [0x%08x, 0x%08x)", base, end, bbBase, bbEnd)
	}
	return nil
}

func firstNonPad(b []byte, pad byte) int {
	for i, v := range b {
		if v != pad {
			return i
		}
	}
	return -1
}

// Input is a named segment to fold.
type Input struct {
	Name    string
	Segment elfseg.Segment
}

// FoldAll folds inputs in order, the first one starting the aggregate.
func FoldAll(ctx context.Context, inputs []Input, pad byte) (*BigBinary, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no segment to merge")
	}
	log := logr.FromContextOrDiscard(ctx)

	var bb *BigBinary
	for _, in := range inputs {
		log.V(1).Info("adding segment", "name", in.Name,
			"from", fmt.Sprintf("0x%08x", in.Segment.Base), "to", fmt.Sprintf("0x%08x", in.Segment.End()))
		if bb == nil {
			bb = NewBigBinary(in.Segment)
			continue
		}
		if err := bb.Inject(in.Segment, pad); err != nil {
			return nil, fmt.Errorf("%s: %w", in.Name, err)
		}
	}
	return bb, nil
}
