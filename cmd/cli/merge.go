// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/elfseg"
	"github.com/orbfw/fwimage/internal/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [OUTFILE]",
	Short: "Merge the boot loader, the installed header and the application in a contiguous binary",
	Example: `  # Merge the secure boot, the installed header and the user application
  fwimage merge -s sbsfu.elf -i header.bin -u appli.elf merged.bin

  # Merge with a loader and a header placed at a fixed address
  fwimage merge -s sbsfu.elf -l loader.elf -i header.bin -x 0x08010000 -u appli.elf merged.bin
`,
	Args: cobra.ExactArgs(1),
	RunE: mergeCmdRun,
}

type mergeFlags struct {
	installPath string
	sbsfuPath   string
	loaderPath  string
	appPath     string
	value       string
	elfType     int
	header      string
}

var mergeArgs = mergeFlags{
	value:   "0xff",
	elfType: 1,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeArgs.installPath, "install", "i", "",
		"path to the installed header binary (required)")
	mergeCmd.Flags().StringVarP(&mergeArgs.sbsfuPath, "sbsfu", "s", "",
		"path to the secure boot ELF executable (required)")
	mergeCmd.Flags().StringVarP(&mergeArgs.loaderPath, "loader", "l", "",
		"path to the loader ELF executable")
	mergeCmd.Flags().StringVarP(&mergeArgs.appPath, "userapp", "u", "",
		"path to the user application ELF executable")
	mergeCmd.Flags().StringVarP(&mergeArgs.value, "value", "v", mergeArgs.value,
		"byte used to fill the gaps between segments")
	mergeCmd.Flags().IntVarP(&mergeArgs.elfType, "elf", "e", mergeArgs.elfType,
		"ELF base address: 0 for the first segment, 1 for the lowest section")
	mergeCmd.Flags().StringVarP(&mergeArgs.header, "header", "x", "",
		"header address when the header is not contiguous with the application")
	rootCmd.AddCommand(mergeCmd)
}

func mergeCmdRun(cmd *cobra.Command, args []string) error {
	if mergeArgs.installPath == "" {
		return fmt.Errorf("--install flag is required")
	}
	if mergeArgs.sbsfuPath == "" {
		return fmt.Errorf("--sbsfu flag is required")
	}

	ctx := cmd.Context()
	pad, err := parseByte(mergeArgs.value, "value")
	if err != nil {
		return err
	}
	mode, err := elfseg.ParseMode(mergeArgs.elfType)
	if err != nil {
		return err
	}
	headerAddr, err := optionalAddress(mergeArgs.header, "header")
	if err != nil {
		return err
	}

	in := merge.MergeInput{
		HeaderAddress: headerAddr,
		Pad:           pad,
	}
	if in.SBSFU, err = elfseg.ExtractFile(ctx, mergeArgs.sbsfuPath, pad, mode); err != nil {
		return err
	}
	if mergeArgs.loaderPath != "" {
		loader, err := elfseg.ExtractFile(ctx, mergeArgs.loaderPath, pad, mode)
		if err != nil {
			return err
		}
		in.Loader = &loader
	}
	if mergeArgs.appPath != "" {
		app, err := elfseg.ExtractFile(ctx, mergeArgs.appPath, pad, mode)
		if err != nil {
			return err
		}
		in.App = &app
	}
	if in.Header, err = readFile(mergeArgs.installPath, "installed header"); err != nil {
		return err
	}

	data, err := merge.Merge(ctx, in)
	if err != nil {
		return err
	}

	if err := writeFile(args[0], data); err != nil {
		return err
	}
	rootCmd.Printf("✔ merged binary of %d bytes at 0x%08x written to: %s\n", len(data), in.SBSFU.Base, args[0])
	return nil
}
