// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package testutils

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// NewLogger returns a logger writing every level to t.Log.
func NewLogger(t *testing.T) logr.Logger {
	return funcr.New(func(prefix, args string) {
		t.Helper()
		if prefix != "" {
			t.Log(prefix, args)
			return
		}
		t.Log(args)
	}, funcr.Options{Verbosity: 1})
}

// NewContext returns a context carrying NewLogger(t).
func NewContext(t *testing.T) context.Context {
	return logr.NewContext(t.Context(), NewLogger(t))
}

// LogImage logs a hex dump of a binary loaded at base, truncated to max bytes.
func LogImage(t *testing.T, name string, data []byte, base uint32, max int) {
	t.Helper()
	dump := data
	if max > 0 && len(dump) > max {
		dump = dump[:max]
	}
	t.Logf("%s at 0x%08x (%d bytes):\n%s", name, base, len(data), hex.Dump(dump))
}
