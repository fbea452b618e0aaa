// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package csource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned when no line matches the searched name.
var ErrNotFound = errors.New("not found")

// Define returns the value of the first `#define name value` line.
func Define(r io.Reader, name string) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, name) {
			continue
		}
		words := strings.Fields(line)
		if len(words) > 2 && words[0] == "#define" && words[1] == name {
			return words[2], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("#define %s %w", name, ErrNotFound)
}

// HexValue returns the first 32-bit hexadecimal value, 0x prefixed, on the
// first line containing pattern.
func HexValue(r io.Reader, pattern string) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, pattern) {
			continue
		}
		_, after, ok := strings.Cut(line, "0x")
		if !ok {
			return "", fmt.Errorf("no hexadecimal value on the line of %s", pattern)
		}
		if len(after) > 8 {
			after = after[:8]
		}
		return "0x" + after, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s %w", pattern, ErrNotFound)
}

// InjectKey copies r to w, replacing pattern on CKA_VALUE lines with the
// key bytes and on CKA_EC_POINT lines with the key wrapped as a DER octet
// string holding an uncompressed point. Both are written as the byte count
// followed by big-endian 32-bit words.
func InjectKey(r io.Reader, w io.Writer, pattern string, key []byte) error {
	if pattern == "" {
		return fmt.Errorf("pattern is required")
	}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 && strings.Contains(line, pattern) {
			switch {
			case strings.Contains(line, "CKA_VALUE"):
				line = strings.ReplaceAll(line, pattern, words(key))
			case strings.Contains(line, "CKA_EC_POINT"):
				line = strings.ReplaceAll(line, pattern, words(ecPoint(key)))
			}
		}
		if _, werr := io.WriteString(w, line); werr != nil {
			return werr
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ecPoint wraps an X||Y point as OCTET STRING { 0x04 || X || Y }.
func ecPoint(key []byte) []byte {
	out := make([]byte, 0, len(key)+3)
	out = append(out, 0x04, byte(len(key)+1), 0x04)
	return append(out, key...)
}

func words(b []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d,", len(b))
	for i := 0; i < len(b); i += 4 {
		sb.WriteString(" 0x")
		for _, v := range b[i:min(i+4, len(b))] {
			fmt.Fprintf(&sb, "%02x", v)
		}
		sb.WriteString("U,")
	}
	return sb.String()
}
