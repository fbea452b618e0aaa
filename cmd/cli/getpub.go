// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/keys"
)

var getpubCmd = &cobra.Command{
	Use:   "getpub [OUTFILE]",
	Short: "Print the key material embedded in the boot loader as a C array",
	Example: `  # Print the public key of an ECDSA key pair
  fwimage getpub -k ecc.jwk

  # Write the C array to a source file
  fwimage getpub -k ecc.jwk se_key.c
`,
	Args: cobra.MaximumNArgs(1),
	RunE: getpubCmdRun,
}

type getpubFlags struct {
	keyPath string
}

var getpubArgs getpubFlags

func init() {
	getpubCmd.Flags().StringVarP(&getpubArgs.keyPath, "key", "k", "",
		"path to the key file")
	rootCmd.AddCommand(getpubCmd)
}

func getpubCmdRun(cmd *cobra.Command, args []string) error {
	k, err := loadKey(getpubArgs.keyPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := keys.EmitC(&buf, k); err != nil {
		return fmt.Errorf("failed to export key: %w", err)
	}

	if len(args) == 0 {
		_, err = rootCmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	if err := writeFile(args[0], buf.Bytes()); err != nil {
		return err
	}
	rootCmd.Printf("✔ key material written to: %s\n", args[0])
	return nil
}
