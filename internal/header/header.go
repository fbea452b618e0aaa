// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package header

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/orbfw/fwimage/internal/keys"
)

const (
	// DefaultMagic is the magic of firmware headers.
	DefaultMagic = "SFUM"
	// DefaultOffset is the distance between the header and the firmware.
	DefaultOffset = 512
	// StateSize is the size of the image state block.
	StateSize = 3 * 32
	// FingerprintSize is the size of the update source fingerprint reserve.
	FingerprintSize = 32
	// InstalledSignatureSize is the fixed size of the signature field in
	// installed headers.
	InstalledSignatureSize = 32

	// certReserve is the room certificates must leave before the offset for
	// the signature, the image state and the fingerprint.
	certReserve = 64 + StateSize + FingerprintSize
)

// State is the terminal image state of a header.
type State int

const (
	// StateNew marks a freshly built image.
	StateNew State = iota
	// StateValid marks an image already validated by the boot loader.
	StateValid
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateValid:
		return "valid"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) bytes() []byte {
	if s == StateValid {
		return append(bytes.Repeat([]byte{0xff}, 32), make([]byte, 64)...)
	}
	return bytes.Repeat([]byte{0xff}, StateSize)
}

func parseState(b []byte) (State, error) {
	for _, s := range []State{StateNew, StateValid} {
		if bytes.Equal(b, s.bytes()) {
			return s, nil
		}
	}
	return 0, ErrInvalidState
}

// Fields holds the values packed in a header.
type Fields struct {
	Magic           string
	ProtocolVersion uint16
	FirmwareVersion uint16
	// TotalSize is the size of the complete firmware.
	TotalSize uint32
	// PartialOffset is the offset at which the partial firmware applies.
	PartialOffset uint32
	// PartialSize is the size of the partial firmware, TotalSize when the
	// update is complete.
	PartialSize uint32
	Tag         []byte
	PartialTag  []byte
	Nonce       []byte
	// Reserved is the number of zero bytes reserved after the nonce.
	Reserved  int
	LeafCert  []byte
	InterCert []byte
}

func (f Fields) hasCerts() bool {
	return len(f.LeafCert) > 0 || len(f.InterCert) > 0
}

func (f Fields) encode() []byte {
	b := make([]byte, 0, len(f.Magic)+16+len(f.Tag)+len(f.PartialTag)+len(f.Nonce)+f.Reserved)
	b = append(b, f.Magic...)
	b = binary.LittleEndian.AppendUint16(b, f.ProtocolVersion)
	b = binary.LittleEndian.AppendUint16(b, f.FirmwareVersion)
	b = binary.LittleEndian.AppendUint32(b, f.TotalSize)
	b = binary.LittleEndian.AppendUint32(b, f.PartialOffset)
	b = binary.LittleEndian.AppendUint32(b, f.PartialSize)
	b = append(b, f.Tag...)
	b = append(b, f.PartialTag...)
	b = append(b, f.Nonce...)
	b = append(b, make([]byte, f.Reserved)...)
	b = append(b, f.LeafCert...)
	b = append(b, f.InterCert...)
	return b
}

// Options configures Build.
type Options struct {
	// Offset is the distance between the header start and the firmware,
	// DefaultOffset when zero.
	Offset int
	// State is the image state written after the signature.
	State State
}

func (o Options) offset() int {
	if o.Offset == 0 {
		return DefaultOffset
	}
	return o.Offset
}

// Header is a serialized firmware header.
type Header struct {
	Fields Fields
	// Signed holds the authenticated bytes, certificate padding included.
	Signed []byte
	// Signature is the signature field as stored in the header.
	Signature []byte
	State     State
	// Offset is the distance between the header and the firmware.
	Offset int
	// Installed is set for headers produced by BuildInstalled, whose
	// signature field is normalized to 32 bytes and padded to Offset.
	Installed bool

	data []byte
}

// Bytes returns a copy of the serialized header.
func (h *Header) Bytes() []byte {
	return append([]byte(nil), h.data...)
}

// Len returns the serialized header size.
func (h *Header) Len() int {
	return len(h.data)
}

// Layout returns the layout needed to Unpack the header.
func (h *Header) Layout() Layout {
	return Layout{
		MagicSize:      len(h.Fields.Magic),
		TagSize:        len(h.Fields.Tag),
		PartialTagSize: len(h.Fields.PartialTag),
		NonceSize:      len(h.Fields.Nonce),
		ReservedSize:   h.Fields.Reserved,
		LeafCertSize:   len(h.Fields.LeafCert),
		InterCertSize:  len(h.Fields.InterCert),
		SignatureSize:  len(h.Signature),
		Offset:         h.Offset,
	}
}

// Build packs fields, authenticates them with k and appends the signature,
// the image state and the fingerprint reserve.
func Build(ctx context.Context, f Fields, k keys.Key, opts Options) (*Header, error) {
	log := logr.FromContextOrDiscard(ctx)
	offset := opts.offset()

	signed := f.encode()
	if f.hasCerts() {
		padding := offset - (len(signed) + certReserve)
		if padding < 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPadding, padding)
		}
		log.V(1).Info("adding certificate padding", "padding", padding)
		signed = append(signed, make([]byte, padding)...)
	}
	if len(signed) > offset {
		return nil, fmt.Errorf("%w: %d bytes signed, offset %d", ErrHeaderTooLarge, len(signed), offset)
	}

	if !k.CanSign() {
		return nil, fmt.Errorf("provided key is not usable to sign header: %w", keys.ErrCannotSign)
	}
	if k.NeedsNonce() && len(f.Nonce) == 0 {
		return nil, ErrNonceRequired
	}
	sig, nonceUsed, err := keys.Sign(k, signed, f.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to sign header: %w", err)
	}
	if k.NeedsNonce() && !bytes.Equal(nonceUsed, f.Nonce) {
		return nil, ErrNonceMismatch
	}

	log.V(1).Info("header signed", "magic", f.Magic, "signed", len(signed), "signature", len(sig), "state", opts.State.String())

	return &Header{
		Fields:    f,
		Signed:    signed,
		Signature: sig,
		State:     opts.State,
		Offset:    offset,
		data:      assemble(signed, sig, opts.State),
	}, nil
}

// BuildInstalled builds the header written as a standalone installed header
// file: the image state is valid, the signature field is normalized to 32
// bytes and the result is padded with 0xFF up to the offset.
func BuildInstalled(ctx context.Context, f Fields, k keys.Key, opts Options) (*Header, error) {
	opts.State = StateValid
	h, err := Build(ctx, f, k, opts)
	if err != nil {
		return nil, err
	}

	sig, err := NormalizeSignature(h.Signature)
	if err != nil {
		return nil, err
	}

	data := assemble(h.Signed, sig, h.State)
	if len(data) > h.Offset {
		return nil, fmt.Errorf("%w: %d bytes, offset %d", ErrHeaderTooLarge, len(data), h.Offset)
	}
	h.Signature = sig
	h.Installed = true
	h.data = append(data, bytes.Repeat([]byte{0xff}, h.Offset-len(data))...)
	return h, nil
}

// NormalizeSignature maps a signature to the 32 byte installed header
// field: GCM tags are duplicated and ECDSA signatures truncated.
func NormalizeSignature(sig []byte) ([]byte, error) {
	switch len(sig) {
	case keys.GCMTagSize:
		return append(append([]byte(nil), sig...), sig...), nil
	case keys.ECDSASignatureSize:
		return append([]byte(nil), sig[:InstalledSignatureSize]...), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrSignatureSize, len(sig))
	}
}

// Packed returns the header followed by 0xFF fill up to the header offset
// and the firmware bytes.
func Packed(h *Header, firmware []byte) ([]byte, error) {
	if h.Len() > h.Offset {
		return nil, fmt.Errorf("%w: %d bytes, offset %d", ErrHeaderTooLarge, h.Len(), h.Offset)
	}
	out := make([]byte, 0, h.Offset+len(firmware))
	out = append(out, h.data...)
	out = append(out, bytes.Repeat([]byte{0xff}, h.Offset-h.Len())...)
	return append(out, firmware...), nil
}

// Verify replays the authentication of the signed bytes with k.
func (h *Header) Verify(k keys.Key) error {
	sig := h.Signature
	if len(sig) == InstalledSignatureSize {
		if k.Kind() != keys.KindAESGCM {
			return fmt.Errorf("%w: truncated %s signature cannot be verified", ErrSignatureSize, k.Kind())
		}
		if !bytes.Equal(sig[:keys.GCMTagSize], sig[keys.GCMTagSize:]) {
			return keys.ErrVerifySig
		}
		sig = sig[:keys.GCMTagSize]
	}
	return k.Verify(h.Signed, sig, h.Fields.Nonce)
}

func assemble(signed, sig []byte, state State) []byte {
	out := make([]byte, 0, len(signed)+len(sig)+StateSize+FingerprintSize)
	out = append(out, signed...)
	out = append(out, sig...)
	out = append(out, state.bytes()...)
	return append(out, make([]byte, FingerprintSize)...)
}
