// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"bytes"
	"fmt"
	"os"

	"github.com/orbfw/fwimage/internal/fileutil"
)

// LoadNonce reads a nonce or IV file. A missing file yields an empty nonce
// so that the key generates a fresh one.
func LoadNonce(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read nonce file: %w", err)
	}
	return data, nil
}

// PersistNonce writes nonceUsed to filePath when it differs from the
// supplied nonce. It reports whether the file was written.
func PersistNonce(filePath string, supplied, nonceUsed []byte) (bool, error) {
	if bytes.Equal(supplied, nonceUsed) {
		return false, nil
	}
	if filePath == "" {
		return false, fmt.Errorf("nonce filename required to persist the generated nonce")
	}
	if err := fileutil.WriteFileAtomic(filePath, nonceUsed, 0644); err != nil {
		return false, err
	}
	return true, nil
}
