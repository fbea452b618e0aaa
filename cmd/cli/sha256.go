// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
)

var sha256Cmd = &cobra.Command{
	Use:   "sha256 [INFILE] [OUTFILE]",
	Short: "Write the raw SHA-256 digest of a binary",
	Example: `  # Compute the firmware tag stored in the header
  fwimage sha256 appli.bin appli.sha256
`,
	Args: cobra.ExactArgs(2),
	RunE: sha256CmdRun,
}

func init() {
	rootCmd.AddCommand(sha256Cmd)
}

func sha256CmdRun(cmd *cobra.Command, args []string) error {
	payload, err := readFile(args[0], "input file")
	if err != nil {
		return err
	}

	dgst := digest.SHA256.FromBytes(payload)
	raw, err := hex.DecodeString(dgst.Encoded())
	if err != nil {
		return fmt.Errorf("failed to decode digest %s: %w", dgst, err)
	}

	if err := writeFile(args[1], raw); err != nil {
		return err
	}
	rootCmd.Printf("✔ %s written to: %s\n", dgst, args[1])
	return nil
}
