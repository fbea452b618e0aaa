// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package merge

import (
	"bytes"
	"fmt"

	"github.com/orbfw/fwimage/internal/elfseg"
)

// image is a contiguous binary under construction, growing upwards from base.
type image struct {
	base uint32
	data []byte
	pad  byte
}

func newImage(seg elfseg.Segment, pad byte) *image {
	return &image{
		base: seg.Base,
		data: append([]byte(nil), seg.Data...),
		pad:  pad,
	}
}

func (im *image) end() uint64 {
	return uint64(im.base) + uint64(len(im.data))
}

// padTo fills with the pad value up to addr.
func (im *image) padTo(addr uint64, what string) error {
	if addr < im.end() {
		return fmt.Errorf("%w: %s at 0x%08x is below the end of the previous segment at 0x%08x",
			ErrInsufficientSpace, what, addr, im.end())
	}
	im.data = append(im.data, bytes.Repeat([]byte{im.pad}, int(addr-im.end()))...)
	return nil
}

func (im *image) write(b []byte) {
	im.data = append(im.data, b...)
}

// splice overwrites the bytes at addr with b, growing the image when b
// extends past its end.
func (im *image) splice(addr uint64, b []byte) error {
	if addr < uint64(im.base) || addr > im.end() {
		return fmt.Errorf("%w: 0x%08x is outside [0x%08x, 0x%08x)", ErrInsufficientSpace, addr, im.base, im.end())
	}
	off := addr - uint64(im.base)
	n := copy(im.data[off:], b)
	im.data = append(im.data, b[n:]...)
	return nil
}

// placeApp writes the application at its base. The header is repeated
// right before the application unless it was just written there.
func (im *image) placeApp(app *elfseg.Segment, header []byte) error {
	if app == nil {
		return nil
	}
	if im.end() != uint64(app.Base) {
		if uint64(app.Base) < uint64(len(header)) {
			return fmt.Errorf("%w: application base 0x%08x leaves no room for the header", ErrInsufficientSpace, app.Base)
		}
		if err := im.padTo(uint64(app.Base)-uint64(len(header)), "application header"); err != nil {
			return err
		}
		im.write(header)
	}
	im.write(app.Data)
	return nil
}

func headerAddress(explicit *uint32, app *elfseg.Segment, headerLen int) (uint64, error) {
	if explicit != nil {
		return uint64(*explicit), nil
	}
	if app == nil {
		return 0, ErrHeaderAddress
	}
	if uint64(app.Base) < uint64(headerLen) {
		return 0, fmt.Errorf("%w: application base 0x%08x leaves no room for the header", ErrInsufficientSpace, app.Base)
	}
	return uint64(app.Base) - uint64(headerLen), nil
}
