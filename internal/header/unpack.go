// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package header

import (
	"encoding/binary"
	"fmt"
)

// Layout holds the sizes of the variable header fields, which are not
// encoded in the header itself.
type Layout struct {
	MagicSize      int
	TagSize        int
	PartialTagSize int
	NonceSize      int
	ReservedSize   int
	LeafCertSize   int
	InterCertSize  int
	// SignatureSize is 16 or 64 for built headers and 32 for installed ones.
	SignatureSize int
	// Offset is the distance between the header and the firmware,
	// DefaultOffset when zero.
	Offset int
}

// Unpack decodes the header at the start of raw.
func Unpack(raw []byte, l Layout) (*Header, error) {
	offset := l.Offset
	if offset == 0 {
		offset = DefaultOffset
	}
	if l.MagicSize == 0 {
		l.MagicSize = len(DefaultMagic)
	}

	r := &reader{data: raw}
	var f Fields
	f.Magic = string(r.next(l.MagicSize))
	f.ProtocolVersion = binary.LittleEndian.Uint16(r.next(2))
	f.FirmwareVersion = binary.LittleEndian.Uint16(r.next(2))
	f.TotalSize = binary.LittleEndian.Uint32(r.next(4))
	f.PartialOffset = binary.LittleEndian.Uint32(r.next(4))
	f.PartialSize = binary.LittleEndian.Uint32(r.next(4))
	f.Tag = r.next(l.TagSize)
	f.PartialTag = r.next(l.PartialTagSize)
	f.Nonce = r.next(l.NonceSize)
	f.Reserved = len(r.next(l.ReservedSize))
	f.LeafCert = r.next(l.LeafCertSize)
	f.InterCert = r.next(l.InterCertSize)
	if r.err != nil {
		return nil, r.err
	}

	signedLen := r.pos
	if f.hasCerts() {
		signedLen = offset - certReserve
		if signedLen < r.pos {
			return nil, fmt.Errorf("%w: certificates end at %d", ErrInvalidPadding, r.pos)
		}
		r.next(signedLen - r.pos)
	}
	sig := r.next(l.SignatureSize)
	stateBytes := r.next(StateSize)
	r.next(FingerprintSize)
	if r.err != nil {
		return nil, r.err
	}

	state, err := parseState(stateBytes)
	if err != nil {
		return nil, err
	}

	return &Header{
		Fields:    f,
		Signed:    clone(raw[:signedLen]),
		Signature: clone(sig),
		State:     state,
		Offset:    offset,
		Installed: l.SignatureSize == InstalledSignatureSize,
		data:      clone(raw[:r.pos]),
	}, nil
}

type reader struct {
	data []byte
	pos  int
	err  error
}

// next returns the following n bytes, or zeroes once the data is exhausted
// so that callers check err once.
func (r *reader) next(n int) []byte {
	if r.err != nil || n < 0 || r.pos+n > len(r.data) {
		if r.err == nil {
			r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, len(r.data))
		}
		return make([]byte, max(n, 0))
	}
	b := clone(r.data[r.pos : r.pos+n])
	r.pos += n
	return b
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
