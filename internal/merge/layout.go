// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/orbfw/fwimage/internal/elfseg"
	"github.com/orbfw/fwimage/internal/fileutil"
)

// Layout is a mergev2 manifest listing the ELF files and the raw binaries
// folded into the aggregate, in order.
//
//	pad: 0xff
//	elfType: 1
//	files:
//	  - sbsfu.elf
//	binaries:
//	  - kms_blob.bin@0x08010000
type Layout struct {
	// Pad is the fill byte, 0xff when unset.
	Pad *int `json:"pad,omitempty"`
	// ELFType is 0 for physical addresses and 1 for the lowest section.
	ELFType *int `json:"elfType,omitempty"`
	// Files are ELF executables, folded first.
	Files []string `json:"files,omitempty"`
	// Binaries are raw binaries in the path@address form.
	Binaries []string `json:"binaries,omitempty"`
}

// LoadLayout reads a manifest, resolving relative paths against the
// manifest directory.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}

	var l Layout
	if err := yaml.UnmarshalStrict(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", path, err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, f := range l.Files {
		l.Files[i] = resolve(dir, f)
	}
	for i, b := range l.Binaries {
		ref, err := ParseBinaryRef(b)
		if err != nil {
			return nil, err
		}
		l.Binaries[i] = resolve(dir, ref.Path) + b[len(ref.Path):]
	}
	return &l, nil
}

// Validate checks the manifest values.
func (l *Layout) Validate() error {
	if len(l.Files) == 0 && len(l.Binaries) == 0 {
		return fmt.Errorf("no files or binaries listed")
	}
	if l.Pad != nil && (*l.Pad < 0 || *l.Pad > 0xff) {
		return fmt.Errorf("pad value %d is not a byte", *l.Pad)
	}
	if l.ELFType != nil {
		if _, err := elfseg.ParseMode(*l.ELFType); err != nil {
			return err
		}
	}
	for _, b := range l.Binaries {
		if _, err := ParseBinaryRef(b); err != nil {
			return err
		}
	}
	return nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// BinaryRef is a raw binary placed at Address.
type BinaryRef struct {
	Path    string
	Address uint32
}

// ParseBinaryRef parses the path@address form.
func ParseBinaryRef(s string) (BinaryRef, error) {
	i := strings.LastIndex(s, "@")
	if i <= 0 {
		return BinaryRef{}, fmt.Errorf("invalid binary %q, expected path@address", s)
	}
	addr, err := fileutil.ParseAddress(s[i+1:])
	if err != nil {
		return BinaryRef{}, fmt.Errorf("invalid binary %q: %w", s, err)
	}
	return BinaryRef{Path: s[:i], Address: addr}, nil
}

// LoadInputs extracts files as ELF executables and reads binaries, keeping
// the argument order with files first.
func LoadInputs(ctx context.Context, files, binaries []string, pad byte, mode elfseg.Mode) ([]Input, error) {
	inputs := make([]Input, 0, len(files)+len(binaries))
	for _, f := range files {
		seg, err := elfseg.ExtractFile(ctx, f, pad, mode)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, Input{Name: f, Segment: seg})
	}
	for _, b := range binaries {
		ref, err := ParseBinaryRef(b)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read binary: %w", err)
		}
		inputs = append(inputs, Input{Name: ref.Path, Segment: elfseg.RawSegment(data, ref.Address)})
	}
	return inputs, nil
}
