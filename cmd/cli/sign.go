// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/keys"
)

var signCmd = &cobra.Command{
	Use:   "sign [INFILE] [OUTFILE]",
	Short: "Sign a binary with a private key",
	Long: `Sign a binary with a private key.
ECDSA keys write the 64 bytes r||s signature of the SHA-256 digest.
AES-GCM keys write the 16 bytes authentication tag of the encrypted binary,
the nonce file is created with a fresh nonce when it does not exist.`,
	Example: `  # Sign a firmware with an ECDSA key
  fwimage sign -k ecc.jwk appli.bin appli.sign

  # Authenticate a firmware with an AES-GCM key and nonce
  fwimage sign -k oem_keys.jwk -n nonce.bin appli.bin appli.tag
`,
	Args: cobra.ExactArgs(2),
	RunE: signCmdRun,
}

type signFlags struct {
	keyPath   string
	noncePath string
}

var signArgs signFlags

func init() {
	signCmd.Flags().StringVarP(&signArgs.keyPath, "key", "k", "",
		"path to the key file")
	signCmd.Flags().StringVarP(&signArgs.noncePath, "nonce", "n", "",
		"path to the nonce file, required by AES-GCM keys")
	rootCmd.AddCommand(signCmd)
}

func signCmdRun(cmd *cobra.Command, args []string) error {
	k, err := loadKey(signArgs.keyPath)
	if err != nil {
		return err
	}
	if !k.CanSign() {
		return fmt.Errorf("provided key is not usable to sign: %w", keys.ErrCannotSign)
	}

	payload, err := readFile(args[0], "input file")
	if err != nil {
		return err
	}

	var signature []byte
	if k.NeedsNonce() {
		nonce, err := keys.LoadNonce(signArgs.noncePath)
		if err != nil {
			return err
		}
		if len(nonce) == 0 && signArgs.noncePath == "" {
			return fmt.Errorf("--nonce flag is required for %s keys", k.Kind())
		}
		ct, err := keys.Encrypt(k, payload, keys.EncryptOptions{Nonce: nonce})
		if err != nil {
			return fmt.Errorf("failed to sign: %w", err)
		}
		written, err := keys.PersistNonce(signArgs.noncePath, nonce, ct.Nonce)
		if err != nil {
			return err
		}
		if written {
			rootCmd.Printf("✔ nonce written to: %s\n", signArgs.noncePath)
		}
		signature = ct.Tag
	} else {
		signature, _, err = keys.Sign(k, payload, nil)
		if err != nil {
			return fmt.Errorf("failed to sign: %w", err)
		}
	}

	if err := writeFile(args[1], signature); err != nil {
		return err
	}
	rootCmd.Printf("✔ signature written to: %s\n", args[1])
	return nil
}
