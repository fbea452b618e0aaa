// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"os"

	"github.com/orbfw/fwimage/internal/fileutil"
	"github.com/orbfw/fwimage/internal/keys"
)

const keyEnvVar = "FWIMAGE_KEY"

// loadKey reads the key from file path or from the environment variable.
func loadKey(keyPath string) (keys.Key, error) {
	if keyPath != "" {
		return keys.Load(keyPath)
	} else if keyData := os.Getenv(keyEnvVar); keyData != "" {
		return keys.Parse([]byte(keyData))
	} else {
		return nil, fmt.Errorf("key must be specified with --key flag or %s environment variable", keyEnvVar)
	}
}

// nonceFile returns the nonce or IV file path, at most one can be set.
func nonceFile(noncePath, ivPath string) (string, error) {
	if noncePath != "" && ivPath != "" {
		return "", fmt.Errorf("either --nonce or --iv can be specified, not both")
	}
	if noncePath != "" {
		return noncePath, nil
	}
	return ivPath, nil
}

// isFile validates that the given path exists and is a regular file
func isFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to check path %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path %s is a directory", path)
	}
	return nil
}

func readFile(path, what string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	return data, nil
}

func writeFile(path string, data []byte) error {
	if err := fileutil.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// writeFiles writes an output together with its side files, none of them
// is replaced unless all can be written.
func writeFiles(files ...fileutil.File) error {
	if err := fileutil.WriteFilesAtomic(files, 0644); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}
	return nil
}

// parseByte parses a pad value flag.
func parseByte(s, flag string) (byte, error) {
	v, err := fileutil.ParseUint(s, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return byte(v), nil
}

// optionalAddress parses an address flag, nil when unset.
func optionalAddress(s, flag string) (*uint32, error) {
	if s == "" {
		return nil, nil
	}
	addr, err := fileutil.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return &addr, nil
}
