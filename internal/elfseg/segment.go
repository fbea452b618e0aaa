// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package elfseg

import (
	"bytes"
	"context"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
)

// ErrSegmentOverlap is returned when a loadable segment starts before the
// end of the previous one.
var ErrSegmentOverlap = errors.New("loadable segments overlap")

// ErrNoLoadableSegment is returned for executables without PT_LOAD segments.
var ErrNoLoadableSegment = errors.New("no loadable segment found")

// ErrNoAllocSection is returned in ModeLowestSection when the executable has
// no allocatable section with file contents.
var ErrNoAllocSection = errors.New("no allocatable section found")

// Mode selects how the base address of the extracted buffer is computed.
type Mode int

const (
	// ModePhysical uses the physical address of the first loadable segment.
	ModePhysical Mode = iota
	// ModeLowestSection uses the lowest allocatable section address and
	// drops the bytes of the first segment that precede it.
	ModeLowestSection
)

// ParseMode maps the numeric ELF type flag to a Mode: 0 is
// ModePhysical, 1 is ModeLowestSection.
func ParseMode(v int) (Mode, error) {
	switch v {
	case 0:
		return ModePhysical, nil
	case 1:
		return ModeLowestSection, nil
	default:
		return 0, fmt.Errorf("unsupported elf type %d, expected 0 or 1", v)
	}
}

// Segment is a contiguous byte buffer loaded at Base.
type Segment struct {
	Base uint32
	Data []byte
}

// End returns the first address after the segment.
func (s Segment) End() uint64 {
	return uint64(s.Base) + uint64(len(s.Data))
}

// RawSegment wraps the contents of a raw binary placed at base.
func RawSegment(data []byte, base uint32) Segment {
	return Segment{Base: base, Data: data}
}

// Extract reads the ELF executable from r and concatenates its loadable
// segments in program header order, filling the gaps between them with pad.
func Extract(r io.ReaderAt, pad byte, mode Mode) (Segment, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return Segment{}, fmt.Errorf("failed to parse ELF file: %w", err)
	}

	var (
		seg   Segment
		next  uint64
		found bool
	)
	for i, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		data, err := io.ReadAll(p.Open())
		if err != nil {
			return Segment{}, fmt.Errorf("failed to read segment %d: %w", i, err)
		}

		if !found {
			found = true
			seg = Segment{Base: uint32(p.Paddr), Data: data}
			if mode == ModeLowestSection {
				lowest, ok := lowestSection(f)
				if !ok {
					return Segment{}, ErrNoAllocSection
				}
				if lowest < p.Paddr || lowest-p.Paddr > uint64(len(data)) {
					return Segment{}, fmt.Errorf("lowest section 0x%x is outside the first segment [0x%x, 0x%x)",
						lowest, p.Paddr, p.Paddr+uint64(len(data)))
				}
				seg = Segment{Base: uint32(lowest), Data: data[lowest-p.Paddr:]}
			}
			next = seg.End()
			continue
		}

		if len(data) == 0 {
			continue
		}
		if p.Paddr < next {
			return Segment{}, fmt.Errorf("%w: segment %d at 0x%x starts before 0x%x", ErrSegmentOverlap, i, p.Paddr, next)
		}
		seg.Data = append(seg.Data, bytes.Repeat([]byte{pad}, int(p.Paddr-next))...)
		seg.Data = append(seg.Data, data...)
		next = p.Paddr + uint64(len(data))
	}

	if !found {
		return Segment{}, ErrNoLoadableSegment
	}
	return seg, nil
}

// ExtractFile is Extract for the ELF file at path.
func ExtractFile(ctx context.Context, path string, pad byte, mode Mode) (Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return Segment{}, err
	}
	defer f.Close()

	seg, err := Extract(f, pad, mode)
	if err != nil {
		return Segment{}, fmt.Errorf("%s: %w", path, err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("extracted ELF file",
		"path", path, "base", fmt.Sprintf("0x%08x", seg.Base), "end", fmt.Sprintf("0x%08x", seg.End()))
	return seg, nil
}

// lowestSection returns the lowest address of an allocatable section that
// occupies file space.
func lowestSection(f *elf.File) (uint64, bool) {
	var (
		lowest uint64
		found  bool
	)
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_NOBITS {
			continue
		}
		if !found || s.Addr < lowest {
			lowest = s.Addr
			found = true
		}
	}
	return lowest, found
}
