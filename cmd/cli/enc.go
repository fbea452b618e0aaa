// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/fileutil"
	"github.com/orbfw/fwimage/internal/keys"
)

var encCmd = &cobra.Command{
	Use:   "enc [INFILE] [OUTFILE]",
	Short: "Encrypt a binary with a symmetric key",
	Long: `Encrypt a binary with a symmetric key.
The nonce or IV file is read when it exists, otherwise a fresh value is
generated and written to it. AES-CTR keys take the firmware slot address
in the low word of the initial counter block.`,
	Example: `  # Encrypt a firmware with AES-GCM
  fwimage enc -k oem_keys.jwk -n nonce.bin appli.bin appli.sfu

  # Encrypt a partial firmware with AES-CTR
  fwimage enc -k oem_keys.jwk -i iv.bin -a 0x0080600 --poffset partial.offset partial.bin partial.sfu
`,
	Args: cobra.ExactArgs(2),
	RunE: encCmdRun,
}

type encFlags struct {
	keyPath    string
	noncePath  string
	ivPath     string
	address    string
	offsetPath string
	tagPath    string
}

var encArgs encFlags

func init() {
	encCmd.Flags().StringVarP(&encArgs.keyPath, "key", "k", "",
		"path to the key file")
	encCmd.Flags().StringVarP(&encArgs.noncePath, "nonce", "n", "",
		"path to the nonce file")
	encCmd.Flags().StringVarP(&encArgs.ivPath, "iv", "i", "",
		"path to the IV file")
	encCmd.Flags().StringVarP(&encArgs.address, "address", "a", "",
		"firmware slot address bits [31:4] stored in the AES-CTR counter block")
	encCmd.Flags().StringVar(&encArgs.offsetPath, "poffset", "",
		"path to the file holding the partial firmware offset")
	encCmd.Flags().StringVar(&encArgs.tagPath, "tag", "",
		"path to the output file for the AES-GCM authentication tag")
	rootCmd.AddCommand(encCmd)
}

func encCmdRun(cmd *cobra.Command, args []string) error {
	k, err := loadKey(encArgs.keyPath)
	if err != nil {
		return err
	}
	if !k.CanEncrypt() {
		return keys.ErrCannotEncrypt
	}

	payload, err := readFile(args[0], "input file")
	if err != nil {
		return err
	}

	var opts keys.EncryptOptions
	ivPath, err := nonceFile(encArgs.noncePath, encArgs.ivPath)
	if err != nil {
		return err
	}
	if k.NeedsNonce() {
		if ivPath == "" {
			return fmt.Errorf("either --nonce or --iv is required for %s keys", k.Kind())
		}
		if opts.Nonce, err = keys.LoadNonce(ivPath); err != nil {
			return err
		}
	}

	address, err := optionalAddress(encArgs.address, "address")
	if err != nil {
		return err
	}
	if address != nil {
		if encArgs.offsetPath != "" {
			offset, err := fileutil.ReadOffsetFile(encArgs.offsetPath)
			if err != nil {
				return err
			}
			// The counter advances once per 16 bytes block.
			*address += uint32(offset / 16)
		}
		opts.Address = address
	}

	ct, err := keys.Encrypt(k, payload, opts)
	if err != nil {
		return fmt.Errorf("failed to encrypt: %w", err)
	}
	if encArgs.tagPath != "" && len(ct.Tag) == 0 {
		return fmt.Errorf("--tag is not supported by %s keys", k.Kind())
	}

	if k.NeedsNonce() {
		written, err := keys.PersistNonce(ivPath, opts.Nonce, ct.Nonce)
		if err != nil {
			return err
		}
		if written {
			rootCmd.Printf("✔ nonce written to: %s\n", ivPath)
		}
	}

	if err := writeFile(args[1], ct.Data); err != nil {
		return err
	}
	rootCmd.Printf("✔ encrypted binary written to: %s\n", args[1])

	if encArgs.tagPath != "" {
		if err := writeFile(encArgs.tagPath, ct.Tag); err != nil {
			return err
		}
		rootCmd.Printf("✔ tag written to: %s\n", encArgs.tagPath)
	}
	return nil
}
