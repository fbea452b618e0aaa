// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/elfseg"
	"github.com/orbfw/fwimage/internal/fileutil"
	"github.com/orbfw/fwimage/internal/merge"
)

var mergev2Cmd = &cobra.Command{
	Use:   "mergev2 [OUTFILE]",
	Short: "Merge ELF executables and binaries in a contiguous binary",
	Long: `Merge ELF executables and binaries in a contiguous binary.
Inputs are folded in order, ELF files first. The gaps between them are
filled with the pad value and overlapping inputs are accepted only when the
overlapped bytes are all equal to the pad value. The base address of the
merged binary is written to OUTFILE.baseadd.`,
	Example: `  # Merge the secure boot with binaries placed at fixed addresses
  fwimage mergev2 -f "sbsfu.elf" -b "header.bin@0x08010000;appli.bin@0x08010200" merged.bin

  # Merge the inputs listed in a layout manifest
  fwimage mergev2 --layout layout.yaml merged.bin
`,
	Args: cobra.ExactArgs(1),
	RunE: mergev2CmdRun,
}

type mergev2Flags struct {
	binaries   string
	files      string
	value      string
	elfType    int
	layoutPath string
}

var mergev2Args = mergev2Flags{
	value:   "0xff",
	elfType: 1,
}

func init() {
	mergev2Cmd.Flags().StringVarP(&mergev2Args.binaries, "binaries", "b", "",
		"binaries to merge in the path@address form, separated by ';'")
	mergev2Cmd.Flags().StringVarP(&mergev2Args.files, "files", "f", "",
		"ELF executables to merge, separated by ';'")
	mergev2Cmd.Flags().StringVarP(&mergev2Args.value, "value", "v", mergev2Args.value,
		"byte used to fill the gaps between inputs")
	mergev2Cmd.Flags().IntVarP(&mergev2Args.elfType, "elf", "e", mergev2Args.elfType,
		"ELF base address: 0 for the first segment, 1 for the lowest section")
	mergev2Cmd.Flags().StringVar(&mergev2Args.layoutPath, "layout", "",
		"path to a YAML layout manifest listing the inputs")
	rootCmd.AddCommand(mergev2Cmd)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func mergev2CmdRun(cmd *cobra.Command, args []string) error {
	value := mergev2Args.value
	elfType := mergev2Args.elfType
	var files, binaries []string

	if mergev2Args.layoutPath != "" {
		layout, err := merge.LoadLayout(mergev2Args.layoutPath)
		if err != nil {
			return err
		}
		if layout.Pad != nil && !cmd.Flags().Changed("value") {
			value = fmt.Sprintf("%d", *layout.Pad)
		}
		if layout.ELFType != nil && !cmd.Flags().Changed("elf") {
			elfType = *layout.ELFType
		}
		files = append(files, layout.Files...)
		binaries = append(binaries, layout.Binaries...)
	}
	files = append(files, splitList(mergev2Args.files)...)
	binaries = append(binaries, splitList(mergev2Args.binaries)...)

	if len(binaries) == 0 && mergev2Args.layoutPath == "" {
		return fmt.Errorf("--binaries flag is required")
	}
	if len(files)+len(binaries) == 0 {
		return fmt.Errorf("no input to merge")
	}

	pad, err := parseByte(value, "value")
	if err != nil {
		return err
	}
	mode, err := elfseg.ParseMode(elfType)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	inputs, err := merge.LoadInputs(ctx, files, binaries, pad, mode)
	if err != nil {
		return err
	}
	bb, err := merge.FoldAll(ctx, inputs, pad)
	if err != nil {
		return err
	}

	baseFile := args[0] + ".baseadd"
	if err := writeFiles(
		fileutil.File{Name: args[0], Data: bb.Data},
		fileutil.File{Name: baseFile, Data: []byte(fmt.Sprintf("0x%x", bb.Base))},
	); err != nil {
		return err
	}

	rootCmd.Printf("✔ merged binary of %d bytes at 0x%08x written to: %s\n", len(bb.Data), bb.Base, args[0])
	rootCmd.Printf("✔ base address written to: %s\n", baseFile)
	return nil
}
