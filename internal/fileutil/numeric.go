// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package fileutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseUint parses a decimal or 0x prefixed hexadecimal number.
func ParseUint(s string, bitSize int) (uint64, error) {
	s = strings.TrimSpace(s)
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	v, err := strconv.ParseUint(digits, base, bitSize)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q: %w", s, err)
	}
	return v, nil
}

// ParseAddress parses a 32-bit address in decimal or hexadecimal notation.
// Values wider than 32 bits are masked to the lower 32 bits.
func ParseAddress(s string) (uint32, error) {
	v, err := ParseUint(s, 64)
	if err != nil {
		return 0, err
	}
	return uint32(v & 0xffffffff), nil
}

// ReadOffsetFile reads the decimal partial firmware offset written by the
// diff command.
func ReadOffsetFile(fileName string) (int, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return 0, fmt.Errorf("failed to read offset file: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid offset in %s: %w", fileName, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid negative offset %d in %s", v, fileName)
	}
	return v, nil
}

// OffsetFile returns the offset side file holding offset as decimal text.
func OffsetFile(fileName string, offset int) File {
	return File{Name: fileName, Data: []byte(strconv.Itoa(offset))}
}

// WriteOffsetFile stores offset as decimal text.
func WriteOffsetFile(fileName string, offset int) error {
	f := OffsetFile(fileName, offset)
	return WriteFileAtomic(f.Name, f.Data, 0644)
}
