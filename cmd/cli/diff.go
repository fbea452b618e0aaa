// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/bindiff"
	"github.com/orbfw/fwimage/internal/fileutil"
)

var diffCmd = &cobra.Command{
	Use:   "diff [OUTFILE]",
	Short: "Compute the partial update between two firmware binaries",
	Long: `Compute the partial update between two firmware binaries.
The binaries are compared in blocks of --align bytes, the output holds the
blocks of the second binary from the first to the last differing block and
the offset file holds the byte offset at which they apply.`,
	Example: `  # Compute the delta between two firmware versions
  fwimage diff -1 appli_v1.bin -2 appli_v2.bin -p partial.offset partial.bin

  # Compare 16 bytes blocks, skipping the first 1KiB
  fwimage diff -1 appli_v1.bin -2 appli_v2.bin -p partial.offset -b 0x400 -a 16 partial.bin
`,
	Args: cobra.ExactArgs(1),
	RunE: diffCmdRun,
}

type diffFlags struct {
	firstPath  string
	secondPath string
	offsetPath string
	begin      string
	end        string
	align      int
	verify     bool
}

var diffArgs = diffFlags{
	begin: "0",
	end:   "0",
	align: bindiff.DefaultAlign,
}

func init() {
	diffCmd.Flags().StringVarP(&diffArgs.firstPath, "file1", "1", "",
		"path to the first binary (required)")
	diffCmd.Flags().StringVarP(&diffArgs.secondPath, "file2", "2", "",
		"path to the second binary (required)")
	diffCmd.Flags().StringVarP(&diffArgs.offsetPath, "poffset", "p", "",
		"path to the output file holding the offset of the delta (required)")
	diffCmd.Flags().StringVarP(&diffArgs.begin, "begin", "b", diffArgs.begin,
		"offset in bytes of the first compared byte")
	diffCmd.Flags().StringVarP(&diffArgs.end, "end", "e", diffArgs.end,
		"offset in bytes of the last compared byte, 0 compares up to the end of the binaries")
	diffCmd.Flags().IntVarP(&diffArgs.align, "align", "a", diffArgs.align,
		"block size in bytes")
	diffCmd.Flags().BoolVar(&diffArgs.verify, "verify", false,
		"check that applying the delta to the first binary yields the second one")
	rootCmd.AddCommand(diffCmd)
}

func diffCmdRun(cmd *cobra.Command, args []string) error {
	switch {
	case diffArgs.firstPath == "":
		return fmt.Errorf("--file1 flag is required")
	case diffArgs.secondPath == "":
		return fmt.Errorf("--file2 flag is required")
	case diffArgs.offsetPath == "":
		return fmt.Errorf("--poffset flag is required")
	}

	begin, err := fileutil.ParseUint(diffArgs.begin, 31)
	if err != nil {
		return fmt.Errorf("invalid --begin: %w", err)
	}
	end, err := fileutil.ParseUint(diffArgs.end, 31)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	if diffArgs.verify && (begin != 0 || end != 0) {
		return fmt.Errorf("--verify requires comparing the whole binaries")
	}

	first, err := readFile(diffArgs.firstPath, "first binary")
	if err != nil {
		return err
	}
	second, err := readFile(diffArgs.secondPath, "second binary")
	if err != nil {
		return err
	}

	result, err := bindiff.Diff(cmd.Context(), first, second, bindiff.Options{
		Begin: int(begin),
		End:   int(end),
		Align: diffArgs.align,
	})
	if err != nil {
		return err
	}

	if diffArgs.verify {
		applied := bindiff.Apply(first, result)
		if len(applied) < len(second) || !bytes.Equal(applied[:len(second)], second) {
			return fmt.Errorf("delta does not reproduce %s", diffArgs.secondPath)
		}
	}

	if err := writeFiles(
		fileutil.File{Name: args[0], Data: result.Data},
		fileutil.OffsetFile(diffArgs.offsetPath, result.Offset),
	); err != nil {
		return err
	}

	if result.Identical {
		rootCmd.Println("✔ input files are identical within the comparison range")
	}
	rootCmd.Printf("✔ delta of %d bytes at offset %d written to: %s\n", len(result.Data), result.Offset, args[0])
	rootCmd.Printf("✔ offset written to: %s\n", diffArgs.offsetPath)
	return nil
}
