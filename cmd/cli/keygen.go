// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/keys"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a signing or encryption key in JWK format",
	Example: `  # Generate an ECDSA P-256 key for signing firmware headers
  fwimage keygen --type=ecdsa-p256 --key=ecc.jwk

  # Generate an AES-128-GCM key for authenticated encryption
  fwimage keygen -t aes-gcm -k oem_keys.jwk
`,
	Args: cobra.NoArgs,
	RunE: keygenCmdRun,
}

type keygenFlags struct {
	keyPath string
	keyType string
}

var keygenArgs keygenFlags

func init() {
	kinds := make([]string, 0, len(keys.Kinds))
	for _, k := range keys.Kinds {
		kinds = append(kinds, string(k))
	}
	keygenCmd.Flags().StringVarP(&keygenArgs.keyPath, "key", "k", "",
		"path to the output key file (required)")
	keygenCmd.Flags().StringVarP(&keygenArgs.keyType, "type", "t", "",
		fmt.Sprintf("key type, one of: %s (required)", strings.Join(kinds, ", ")))
	rootCmd.AddCommand(keygenCmd)
}

func keygenCmdRun(cmd *cobra.Command, args []string) error {
	if keygenArgs.keyPath == "" {
		return fmt.Errorf("--key flag is required")
	}
	if keygenArgs.keyType == "" {
		return fmt.Errorf("--type flag is required")
	}

	kind, err := keys.ParseKind(keygenArgs.keyType)
	if err != nil {
		return err
	}

	k, err := keys.Generate(kind)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	if err := keys.WriteFile(k, keygenArgs.keyPath); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}

	rootCmd.Printf("✔ %s key written to: %s\n", kind, keygenArgs.keyPath)
	return nil
}
