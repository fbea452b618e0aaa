// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/header"
)

var packCmd = &cobra.Command{
	Use:   "pack [OUTFILE]",
	Short: "Build a firmware update file made of the header and the firmware",
	Long: `Build a firmware update file made of the header and the firmware.
The header is marked as new and followed by 0xFF up to the offset, then by
the firmware binary, or the partial firmware when --pfw is set.`,
	Example: `  # Pack an encrypted firmware authenticated with AES-GCM
  fwimage pack -k oem_keys.jwk -n nonce.bin -f appli.sfu -t appli.tag -v 2 appli.sfb

  # Pack a partial firmware update
  fwimage pack -k ecc.jwk -i iv.bin -f appli.sfu -t appli.sha256 -v 3 \
  --pfw partial.sfu --poffset partial.offset --ptag partial.sha256 partial.sfb
`,
	Args: cobra.ExactArgs(1),
	RunE: packCmdRun,
}

var packArgs = newImageHeaderFlags()

func init() {
	addImageHeaderFlags(packCmd, &packArgs)
	rootCmd.AddCommand(packCmd)
}

func packCmdRun(cmd *cobra.Command, args []string) error {
	fields, k, err := packArgs.headerFields()
	if err != nil {
		return err
	}

	firmwarePath := packArgs.firmwarePath
	if packArgs.partialPath != "" {
		firmwarePath = packArgs.partialPath
	}
	firmware, err := readFile(firmwarePath, "firmware")
	if err != nil {
		return err
	}

	h, err := header.Build(cmd.Context(), fields, k, header.Options{
		Offset: packArgs.offset,
		State:  header.StateNew,
	})
	if err != nil {
		return err
	}

	data, err := header.Packed(h, firmware)
	if err != nil {
		return err
	}

	if err := writeFile(args[0], data); err != nil {
		return err
	}
	rootCmd.Printf("✔ firmware image written to: %s\n", args[0])
	return nil
}
