// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/elfseg"
	"github.com/orbfw/fwimage/internal/merge"
)

var appendCmd = &cobra.Command{
	Use:   "append [OUTFILE]",
	Short: "Append the installed header and the application to an existing binary",
	Example: `  # Append the user application to a merged boot loader binary
  fwimage append -b sbsfu.bin -a 0x08000000 -i header.bin -u appli.elf merged.bin
`,
	Args: cobra.ExactArgs(1),
	RunE: appendCmdRun,
}

type appendFlags struct {
	installPath string
	binaryPath  string
	appPath     string
	value       string
	elfType     int
	header      string
	address     string
}

var appendArgs = appendFlags{
	value:   "0xff",
	elfType: 1,
}

func init() {
	appendCmd.Flags().StringVarP(&appendArgs.installPath, "install", "i", "",
		"path to the installed header binary (required)")
	appendCmd.Flags().StringVarP(&appendArgs.binaryPath, "binary", "b", "",
		"path to the existing binary (required)")
	appendCmd.Flags().StringVarP(&appendArgs.appPath, "userapp", "u", "",
		"path to the user application ELF executable (required)")
	appendCmd.Flags().StringVarP(&appendArgs.value, "value", "v", appendArgs.value,
		"byte used to fill the gaps between segments")
	appendCmd.Flags().IntVarP(&appendArgs.elfType, "elf", "e", appendArgs.elfType,
		"ELF base address: 0 for the first segment, 1 for the lowest section")
	appendCmd.Flags().StringVarP(&appendArgs.header, "header", "x", "",
		"header address when the header is not contiguous with the application")
	appendCmd.Flags().StringVarP(&appendArgs.address, "address", "a", "",
		"base address of the existing binary (required)")
	rootCmd.AddCommand(appendCmd)
}

func appendCmdRun(cmd *cobra.Command, args []string) error {
	switch {
	case appendArgs.installPath == "":
		return fmt.Errorf("--install flag is required")
	case appendArgs.binaryPath == "":
		return fmt.Errorf("--binary flag is required")
	case appendArgs.appPath == "":
		return fmt.Errorf("--userapp flag is required")
	case appendArgs.address == "":
		return fmt.Errorf("--address flag is required")
	}

	ctx := cmd.Context()
	pad, err := parseByte(appendArgs.value, "value")
	if err != nil {
		return err
	}
	mode, err := elfseg.ParseMode(appendArgs.elfType)
	if err != nil {
		return err
	}
	address, err := optionalAddress(appendArgs.address, "address")
	if err != nil {
		return err
	}
	headerAddr, err := optionalAddress(appendArgs.header, "header")
	if err != nil {
		return err
	}

	in := merge.AppendInput{
		Address:       *address,
		HeaderAddress: headerAddr,
		Pad:           pad,
	}
	if in.App, err = elfseg.ExtractFile(ctx, appendArgs.appPath, pad, mode); err != nil {
		return err
	}
	if in.Binary, err = readFile(appendArgs.binaryPath, "binary"); err != nil {
		return err
	}
	if in.Header, err = readFile(appendArgs.installPath, "installed header"); err != nil {
		return err
	}

	data, err := merge.Append(ctx, in)
	if err != nil {
		return err
	}

	if err := writeFile(args[0], data); err != nil {
		return err
	}
	rootCmd.Printf("✔ merged binary of %d bytes at 0x%08x written to: %s\n", len(data), in.Address, args[0])
	return nil
}
