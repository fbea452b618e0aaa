// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/header"
	"github.com/orbfw/fwimage/internal/keys"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [INFILE]",
	Short: "Print the fields of a firmware header",
	Long: `Print the fields of a firmware header read from an installed header,
a packed firmware image or a merged binary at --skip bytes.
The sizes of the variable fields are not stored in the header, they default
to a SHA-256 tag and are derived from the key when --key is set.
With --key the header signature is verified.`,
	Example: `  # Print and verify a packed firmware image authenticated with AES-GCM
  fwimage inspect -k oem_keys.jwk appli.sfb

  # Print an installed header signed with ECDSA and encrypted with AES-CBC
  fwimage inspect --installed --nonce-size 16 header.bin
`,
	Args: cobra.ExactArgs(1),
	RunE: inspectCmdRun,
}

type inspectFlags struct {
	keyPath        string
	magic          string
	tagSize        int
	partialTagSize int
	nonceSize      int
	reserved       int
	leafCertSize   int
	interCertSize  int
	signatureSize  int
	offset         int
	skip           int
	installed      bool
}

func newInspectFlags() inspectFlags {
	return inspectFlags{
		magic:          header.DefaultMagic,
		tagSize:        32,
		partialTagSize: 32,
		nonceSize:      -1,
		reserved:       8,
		offset:         header.DefaultOffset,
	}
}

var inspectArgs = newInspectFlags()

func init() {
	inspectCmd.Flags().StringVarP(&inspectArgs.keyPath, "key", "k", "",
		"path to the key file used to verify the header")
	inspectCmd.Flags().StringVarP(&inspectArgs.magic, "magic", "m", inspectArgs.magic,
		"expected header magic")
	inspectCmd.Flags().IntVar(&inspectArgs.tagSize, "tag-size", inspectArgs.tagSize,
		"size of the firmware tag")
	inspectCmd.Flags().IntVar(&inspectArgs.partialTagSize, "partial-tag-size", inspectArgs.partialTagSize,
		"size of the partial firmware tag")
	inspectCmd.Flags().IntVar(&inspectArgs.nonceSize, "nonce-size", inspectArgs.nonceSize,
		"size of the nonce, derived from the key when negative")
	inspectCmd.Flags().IntVarP(&inspectArgs.reserved, "reserved", "r", inspectArgs.reserved,
		"number of reserved bytes after the nonce")
	inspectCmd.Flags().IntVar(&inspectArgs.leafCertSize, "leaf-cert-size", 0,
		"size of the firmware leaf certificate")
	inspectCmd.Flags().IntVar(&inspectArgs.interCertSize, "inter-cert-size", 0,
		"size of the firmware intermediate certificate")
	inspectCmd.Flags().IntVar(&inspectArgs.signatureSize, "signature-size", 0,
		"size of the signature, derived from the key when zero")
	inspectCmd.Flags().IntVarP(&inspectArgs.offset, "offset", "o", inspectArgs.offset,
		"offset between the start of the header and the firmware")
	inspectCmd.Flags().IntVar(&inspectArgs.skip, "skip", 0,
		"offset of the header in the input file")
	inspectCmd.Flags().BoolVar(&inspectArgs.installed, "installed", false,
		"the input is an installed header with a 32 bytes signature field")
	rootCmd.AddCommand(inspectCmd)
}

func inspectCmdRun(cmd *cobra.Command, args []string) error {
	var k keys.Key
	if inspectArgs.keyPath != "" {
		var err error
		if k, err = keys.Load(inspectArgs.keyPath); err != nil {
			return err
		}
	}

	layout, err := inspectLayout(k)
	if err != nil {
		return err
	}

	data, err := readFile(args[0], "input file")
	if err != nil {
		return err
	}
	if inspectArgs.skip < 0 || inspectArgs.skip > len(data) {
		return fmt.Errorf("--skip %d is outside of the %d bytes input", inspectArgs.skip, len(data))
	}

	data = data[inspectArgs.skip:]
	if !bytes.HasPrefix(data, []byte(inspectArgs.magic)) {
		return fmt.Errorf("unexpected magic %q, expected %q", data[:min(len(data), len(inspectArgs.magic))], inspectArgs.magic)
	}

	h, err := header.Unpack(data, layout)
	if err != nil {
		return err
	}

	printTable(rootCmd.OutOrStdout(), []string{"field", "value"}, headerRows(h))

	if k != nil {
		if err := h.Verify(k); err != nil {
			return fmt.Errorf("header verification failed: %w", err)
		}
		rootCmd.Printf("✔ header signature verified with %s key\n", k.Kind())
	}
	return nil
}

func inspectLayout(k keys.Key) (header.Layout, error) {
	l := header.Layout{
		MagicSize:      len(inspectArgs.magic),
		TagSize:        inspectArgs.tagSize,
		PartialTagSize: inspectArgs.partialTagSize,
		NonceSize:      inspectArgs.nonceSize,
		ReservedSize:   inspectArgs.reserved,
		LeafCertSize:   inspectArgs.leafCertSize,
		InterCertSize:  inspectArgs.interCertSize,
		SignatureSize:  inspectArgs.signatureSize,
		Offset:         inspectArgs.offset,
	}

	if l.NonceSize < 0 {
		l.NonceSize = 0
		if aesKey, ok := k.(*keys.AESKey); ok {
			l.NonceSize = aesKey.NonceSize()
		}
	}

	if l.SignatureSize == 0 {
		switch {
		case inspectArgs.installed:
			l.SignatureSize = header.InstalledSignatureSize
		case k == nil:
			return l, fmt.Errorf("--signature-size, --installed or --key flag is required")
		case k.Kind() == keys.KindECDSAP256:
			l.SignatureSize = keys.ECDSASignatureSize
		case k.Kind() == keys.KindAESGCM:
			l.SignatureSize = keys.GCMTagSize
		default:
			return l, fmt.Errorf("%s keys do not sign headers: %w", k.Kind(), keys.ErrCannotSign)
		}
	}
	return l, nil
}

func headerRows(h *header.Header) [][]string {
	f := h.Fields
	rows := [][]string{
		{"magic", f.Magic},
		{"protocol version", fmt.Sprintf("%d", f.ProtocolVersion)},
		{"firmware version", fmt.Sprintf("%d", f.FirmwareVersion)},
		{"total size", fmt.Sprintf("%d", f.TotalSize)},
		{"partial offset", fmt.Sprintf("%d", f.PartialOffset)},
		{"partial size", fmt.Sprintf("%d", f.PartialSize)},
		{"tag", hex.EncodeToString(f.Tag)},
		{"partial tag", hex.EncodeToString(f.PartialTag)},
		{"nonce", hex.EncodeToString(f.Nonce)},
	}
	if len(f.LeafCert) > 0 {
		rows = append(rows, []string{"leaf certificate", fmt.Sprintf("%d bytes", len(f.LeafCert))})
	}
	if len(f.InterCert) > 0 {
		rows = append(rows, []string{"intermediate certificate", fmt.Sprintf("%d bytes", len(f.InterCert))})
	}
	return append(rows,
		[]string{"signature", hex.EncodeToString(h.Signature)},
		[]string{"state", h.State.String()},
		[]string{"offset", fmt.Sprintf("%d", h.Offset)},
	)
}

func printTable(writer io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
