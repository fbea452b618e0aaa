// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/csource"
)

var extractCmd = &cobra.Command{
	Use:   "extract [INFILE]",
	Short: "Print the 32-bit hexadecimal value of a symbol from a text file",
	Example: `  # Print the start address of the key region from a linker map file
  fwimage extract -d __ICFEDIT_SE_Key_region_ROM_start__ SBSFU.map
`,
	Args: cobra.ExactArgs(1),
	RunE: extractCmdRun,
}

type extractFlags struct {
	define string
}

var extractArgs extractFlags

func init() {
	extractCmd.Flags().StringVarP(&extractArgs.define, "define", "d", "",
		"symbol searched in the file (required)")
	rootCmd.AddCommand(extractCmd)
}

func extractCmdRun(cmd *cobra.Command, args []string) error {
	if extractArgs.define == "" {
		return fmt.Errorf("--define flag is required")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	value, err := csource.HexValue(f, extractArgs.define)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(rootCmd.OutOrStdout(), value)
	return err
}
