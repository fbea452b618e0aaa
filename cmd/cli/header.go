// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/fileutil"
	"github.com/orbfw/fwimage/internal/header"
	"github.com/orbfw/fwimage/internal/keys"
)

var headerCmd = &cobra.Command{
	Use:   "header [OUTFILE]",
	Short: "Build the installed header of a firmware",
	Long: `Build the installed header of a firmware.
The header is marked as valid, its signature field is normalized to 32 bytes
and it is padded with 0xFF up to the offset. The result is merged with the
boot loader by the merge and append commands.`,
	Example: `  # Build the installed header of a firmware signed with ECDSA
  fwimage header -k ecc.jwk -i iv.bin -f appli.sfu -t appli.sha256 -v 1 header.bin
`,
	Args: cobra.ExactArgs(1),
	RunE: headerCmdRun,
}

// imageHeaderFlags are shared by the header and pack commands.
type imageHeaderFlags struct {
	keyPath       string
	noncePath     string
	ivPath        string
	firmwarePath  string
	tagPath       string
	version       string
	magic         string
	protocol      string
	reserved      int
	offset        int
	leafCertPath  string
	interCertPath string
	partialPath   string
	offsetPath    string
	partialTag    string
}

func newImageHeaderFlags() imageHeaderFlags {
	return imageHeaderFlags{
		magic:    header.DefaultMagic,
		protocol: "1",
		reserved: 8,
		offset:   header.DefaultOffset,
	}
}

var headerArgs = newImageHeaderFlags()

func init() {
	addImageHeaderFlags(headerCmd, &headerArgs)
	rootCmd.AddCommand(headerCmd)
}

func addImageHeaderFlags(cmd *cobra.Command, f *imageHeaderFlags) {
	cmd.Flags().StringVarP(&f.keyPath, "key", "k", "",
		"path to the key file used to sign the header")
	cmd.Flags().StringVarP(&f.noncePath, "nonce", "n", "",
		"path to the nonce file")
	cmd.Flags().StringVarP(&f.ivPath, "iv", "i", "",
		"path to the IV file")
	cmd.Flags().StringVarP(&f.firmwarePath, "firmware", "f", "",
		"path to the firmware binary (required)")
	cmd.Flags().StringVarP(&f.tagPath, "tag", "t", "",
		"path to the firmware tag file (required)")
	cmd.Flags().StringVarP(&f.version, "version", "v", "",
		"firmware version (required)")
	cmd.Flags().StringVarP(&f.magic, "magic", "m", f.magic,
		"header magic")
	cmd.Flags().StringVarP(&f.protocol, "protocol", "p", f.protocol,
		"header protocol version")
	cmd.Flags().IntVarP(&f.reserved, "reserved", "r", f.reserved,
		"number of reserved bytes after the nonce")
	cmd.Flags().IntVarP(&f.offset, "offset", "o", f.offset,
		"offset between the start of the header and the firmware")
	cmd.Flags().StringVar(&f.leafCertPath, "cert_fw_leaf", "",
		"path to the firmware leaf certificate")
	cmd.Flags().StringVar(&f.interCertPath, "cert_fw_inter", "",
		"path to the firmware intermediate certificate")
	cmd.Flags().StringVar(&f.partialPath, "pfw", "",
		"path to the partial firmware binary")
	cmd.Flags().StringVar(&f.offsetPath, "poffset", "",
		"path to the file holding the partial firmware offset")
	cmd.Flags().StringVar(&f.partialTag, "ptag", "",
		"path to the partial firmware tag file")
}

// headerFields validates the flags and loads the header fields and key.
func (f *imageHeaderFlags) headerFields() (header.Fields, keys.Key, error) {
	var fields header.Fields
	switch {
	case f.firmwarePath == "":
		return fields, nil, fmt.Errorf("--firmware flag is required")
	case f.tagPath == "":
		return fields, nil, fmt.Errorf("--tag flag is required")
	case f.version == "":
		return fields, nil, fmt.Errorf("--version flag is required")
	case f.reserved < 0:
		return fields, nil, fmt.Errorf("--reserved must be positive, got %d", f.reserved)
	case f.offset <= 0:
		return fields, nil, fmt.Errorf("--offset must be greater than 0, got %d", f.offset)
	}
	partial := f.partialPath != "" || f.offsetPath != "" || f.partialTag != ""
	if partial && (f.partialPath == "" || f.offsetPath == "" || f.partialTag == "") {
		return fields, nil, fmt.Errorf("--pfw, --poffset and --ptag flags must be specified together")
	}

	version, err := fileutil.ParseUint(f.version, 16)
	if err != nil {
		return fields, nil, fmt.Errorf("invalid --version: %w", err)
	}
	protocol, err := fileutil.ParseUint(f.protocol, 16)
	if err != nil {
		return fields, nil, fmt.Errorf("invalid --protocol: %w", err)
	}

	k, err := loadKey(f.keyPath)
	if err != nil {
		return fields, nil, err
	}

	size, err := fileSize(f.firmwarePath)
	if err != nil {
		return fields, nil, err
	}
	tag, err := readFile(f.tagPath, "tag file")
	if err != nil {
		return fields, nil, err
	}

	fields = header.Fields{
		Magic:           f.magic,
		ProtocolVersion: uint16(protocol),
		FirmwareVersion: uint16(version),
		TotalSize:       size,
		PartialSize:     size,
		Tag:             tag,
		PartialTag:      tag,
		Reserved:        f.reserved,
	}

	ivPath, err := nonceFile(f.noncePath, f.ivPath)
	if err != nil {
		return fields, nil, err
	}
	if ivPath != "" {
		if fields.Nonce, err = readFile(ivPath, "nonce file"); err != nil {
			return fields, nil, err
		}
	}

	if partial {
		if fields.PartialSize, err = fileSize(f.partialPath); err != nil {
			return fields, nil, err
		}
		offset, err := fileutil.ReadOffsetFile(f.offsetPath)
		if err != nil {
			return fields, nil, err
		}
		fields.PartialOffset = uint32(offset)
		if fields.PartialTag, err = readFile(f.partialTag, "partial tag file"); err != nil {
			return fields, nil, err
		}
	}

	if f.leafCertPath != "" {
		if fields.LeafCert, err = readFile(f.leafCertPath, "leaf certificate"); err != nil {
			return fields, nil, err
		}
	}
	if f.interCertPath != "" {
		if fields.InterCert, err = readFile(f.interCertPath, "intermediate certificate"); err != nil {
			return fields, nil, err
		}
	}

	return fields, k, nil
}

func fileSize(path string) (uint32, error) {
	if err := isFile(path); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.Size() > int64(^uint32(0)) {
		return 0, fmt.Errorf("file %s is larger than 4GiB", path)
	}
	return uint32(info.Size()), nil
}

func headerCmdRun(cmd *cobra.Command, args []string) error {
	fields, k, err := headerArgs.headerFields()
	if err != nil {
		return err
	}

	h, err := header.BuildInstalled(cmd.Context(), fields, k, header.Options{Offset: headerArgs.offset})
	if err != nil {
		return err
	}

	if err := writeFile(args[0], h.Bytes()); err != nil {
		return err
	}
	rootCmd.Printf("✔ installed header written to: %s\n", args[0])
	return nil
}
