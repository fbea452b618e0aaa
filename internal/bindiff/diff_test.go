// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package bindiff

import (
	"bytes"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/orbfw/fwimage/internal/testutils"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 1)
	}
	return b
}

func TestDiffScenario(t *testing.T) {
	g := NewWithT(t)

	a := make([]byte, 1024)
	b := make([]byte, 1024)
	b[100], b[101] = 0xab, 0xab

	r, err := Diff(testutils.NewContext(t), a, b, Options{Align: 2})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(r.FirstBlock).To(Equal(50))
	g.Expect(r.LastBlock).To(Equal(50))
	g.Expect(r.Data).To(Equal([]byte{0xab, 0xab}))
	g.Expect(r.Offset).To(Equal(100))
	g.Expect(r.Identical).To(BeFalse())
	g.Expect(Apply(a, r)).To(Equal(b))
}

func TestDiffIdentical(t *testing.T) {
	g := NewWithT(t)

	a := pattern(100)
	r, err := Diff(testutils.NewContext(t), a, append([]byte(nil), a...), Options{Align: 4})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(r.Identical).To(BeTrue())
	g.Expect(r.FirstBlock).To(Equal(0))
	g.Expect(r.LastBlock).To(Equal(-1))
	g.Expect(r.Data).To(BeEmpty())
	g.Expect(r.Offset).To(Equal(0))
	g.Expect(r.CompareEnd).To(Equal(103))
	g.Expect(Apply(a, r)).To(Equal(a))
}

func TestDiffGrowth(t *testing.T) {
	base := pattern(1000)

	tests := []struct {
		name       string
		growth     []byte
		offset     int
		firstBlock int
	}{
		{name: "new trailing data", growth: bytes.Repeat([]byte{0x55}, 500), offset: 1000, firstBlock: 500},
		{name: "zero trailing data", growth: make([]byte, 500), offset: 1000, firstBlock: 500},
		{name: "erased trailing data", growth: bytes.Repeat([]byte{0xff}, 500), offset: 1000, firstBlock: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			b := append(append([]byte(nil), base...), tt.growth...)

			r, err := Diff(testutils.NewContext(t), base, b, Options{Align: 2})
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(r.Identical).To(BeFalse())
			g.Expect(r.FirstBlock).To(Equal(tt.firstBlock))
			g.Expect(r.LastBlock).To(Equal(750))
			g.Expect(r.Offset).To(Equal(tt.offset))
			g.Expect(r.Offset + len(r.Data)).To(Equal(len(b)))
			g.Expect(Apply(base, r)).To(Equal(b))
		})
	}
}

// applyErased writes the delta over a copied to erased flash of len(b) bytes.
func applyErased(a []byte, size int, r *Result) []byte {
	out := bytes.Repeat([]byte{0xff}, size)
	copy(out, a)
	copy(out[r.Offset:], r.Data)
	return out
}

func TestDiffGrowthMatchingFill(t *testing.T) {
	tests := []struct {
		name   string
		a      []byte
		b      []byte
		align  int
		offset int
	}{
		{
			name:   "aligned base with zero growth",
			a:      []byte{1, 2, 3, 4},
			b:      []byte{1, 2, 3, 4, 0, 0, 5, 5},
			align:  2,
			offset: 4,
		},
		{
			name:   "growth within the padding block",
			a:      []byte{1, 2, 3, 4, 5},
			b:      []byte{1, 2, 3, 4, 5, 0, 0, 0},
			align:  4,
			offset: 4,
		},
		{
			name:   "unaligned base with zero growth",
			a:      pattern(10),
			b:      append(pattern(10), make([]byte, 12)...),
			align:  4,
			offset: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			r, err := Diff(testutils.NewContext(t), tt.a, tt.b, Options{Align: tt.align})
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(r.Identical).To(BeFalse())
			g.Expect(r.Offset).To(Equal(tt.offset))
			g.Expect(r.Data).To(Equal(tt.b[tt.offset:]))
			g.Expect(Apply(tt.a, r)).To(Equal(tt.b))
			g.Expect(applyErased(tt.a, len(tt.b), r)).To(Equal(tt.b))
		})
	}
}

func TestDiffGrowthWithEarlierChange(t *testing.T) {
	g := NewWithT(t)

	a := pattern(64)
	b := append(append([]byte(nil), a...), 1, 2, 3, 4, 5, 6, 7)
	b[10] ^= 0xff

	r, err := Diff(testutils.NewContext(t), a, b, Options{Align: 4})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(r.FirstBlock).To(Equal(2))
	g.Expect(r.Offset).To(Equal(8))
	g.Expect(r.Data).To(Equal(b[8:]))
	g.Expect(Apply(a, r)).To(Equal(b))
}

func TestDiffSingleBlock(t *testing.T) {
	g := NewWithT(t)

	a := pattern(256)
	b := append([]byte(nil), a...)
	b[130] ^= 0x01

	r, err := Diff(testutils.NewContext(t), a, b, Options{Align: 16})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(r.FirstBlock).To(Equal(8))
	g.Expect(r.LastBlock).To(Equal(8))
	g.Expect(r.Offset).To(Equal(128))
	g.Expect(r.Data).To(Equal(b[128:144]))
	g.Expect(Apply(a, r)).To(Equal(b))
}

func TestDiffTrimsPartialLastBlock(t *testing.T) {
	g := NewWithT(t)

	a := pattern(11)
	b := append([]byte(nil), a...)
	b[10] ^= 0xff

	r, err := Diff(testutils.NewContext(t), a, b, Options{Align: 4})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(r.FirstBlock).To(Equal(2))
	g.Expect(r.LastBlock).To(Equal(2))
	g.Expect(r.Data).To(Equal(b[8:11]))
	g.Expect(Apply(a, r)).To(Equal(b))
}

func TestDiffRange(t *testing.T) {
	a := make([]byte, 512)
	b := make([]byte, 512)
	b[20] = 0x01
	b[200] = 0x02
	b[400] = 0x03

	tests := []struct {
		name       string
		opts       Options
		firstBlock int
		lastBlock  int
	}{
		{name: "whole file", opts: Options{Align: 2}, firstBlock: 10, lastBlock: 200},
		{name: "begin bound", opts: Options{Align: 2, Begin: 40}, firstBlock: 100, lastBlock: 200},
		{name: "end bound", opts: Options{Align: 2, End: 299}, firstBlock: 10, lastBlock: 100},
		{name: "begin and end bound", opts: Options{Align: 2, Begin: 100, End: 299}, firstBlock: 100, lastBlock: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			r, err := Diff(testutils.NewContext(t), a, b, tt.opts)
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(r.FirstBlock).To(Equal(tt.firstBlock))
			g.Expect(r.LastBlock).To(Equal(tt.lastBlock))
			g.Expect(r.Data).To(Equal(b[tt.firstBlock*2 : (tt.lastBlock+1)*2]))

			applied := Apply(a, r)
			g.Expect(applied[tt.firstBlock*2 : (tt.lastBlock+1)*2]).To(Equal(b[tt.firstBlock*2 : (tt.lastBlock+1)*2]))
		})
	}
}

func TestDiffArgumentErrors(t *testing.T) {
	a := make([]byte, 1024)

	tests := []struct {
		name      string
		opts      Options
		expectErr error
	}{
		{name: "zero alignment", opts: Options{}, expectErr: ErrAlignment},
		{name: "negative alignment", opts: Options{Align: -2}, expectErr: ErrAlignment},
		{name: "misaligned begin", opts: Options{Align: 2, Begin: 1}, expectErr: ErrBeginAlignment},
		{name: "misaligned end", opts: Options{Align: 2, End: 10}, expectErr: ErrEndAlignment},
		{name: "misaligned end with large block", opts: Options{Align: 16, Begin: 16, End: 16}, expectErr: ErrEndAlignment},
		{name: "end out of range", opts: Options{Align: 2, End: 2001}, expectErr: ErrEndOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			r, err := Diff(testutils.NewContext(t), a, a, tt.opts)
			g.Expect(err).To(MatchError(tt.expectErr))
			g.Expect(r).To(BeNil())
		})
	}
}
