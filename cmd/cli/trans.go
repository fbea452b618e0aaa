// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/keys"
)

var transCmd = &cobra.Command{
	Use:   "trans [OUTFILE]",
	Short: "Translate a key into execute-only Thumb code",
	Example: `  # Print an IAR routine loading the key for Cortex-M4
  fwimage trans -k oem_keys.jwk -f SE_ReadKey -s .SE_Key_Data

  # Write a GNU assembly file for Cortex-M0+
  fwimage trans -k oem_keys.jwk -f SE_ReadKey -a GNU -v V6M -e se_key.s
`,
	Args: cobra.MaximumNArgs(1),
	RunE: transCmdRun,
}

type transFlags struct {
	keyPath   string
	function  string
	section   string
	assembler string
	arch      string
	end       bool
}

var transArgs = transFlags{
	assembler: keys.AssemblerIAR,
	arch:      keys.ArchV7M,
}

func init() {
	transCmd.Flags().StringVarP(&transArgs.keyPath, "key", "k", "",
		"path to the key file")
	transCmd.Flags().StringVarP(&transArgs.function, "function", "f", "",
		"name of the generated function (required)")
	transCmd.Flags().StringVarP(&transArgs.section, "section", "s", "",
		"code section of the generated function")
	transCmd.Flags().StringVarP(&transArgs.assembler, "assembly", "a", transArgs.assembler,
		"assembler syntax, one of: GNU, IAR, ARM")
	transCmd.Flags().StringVarP(&transArgs.arch, "version", "v", transArgs.arch,
		"Cortex-M architecture, one of: V6M, V7M")
	transCmd.Flags().BoolVarP(&transArgs.end, "end", "e", false,
		"close the assembly file with an END directive")
	rootCmd.AddCommand(transCmd)
}

func transCmdRun(cmd *cobra.Command, args []string) error {
	if transArgs.function == "" {
		return fmt.Errorf("--function flag is required")
	}

	k, err := loadKey(transArgs.keyPath)
	if err != nil {
		return err
	}

	code, err := keys.Translate(k, keys.TranslateOptions{
		Function:  transArgs.function,
		Section:   transArgs.section,
		Assembler: transArgs.assembler,
		Arch:      transArgs.arch,
		End:       transArgs.end,
	})
	if err != nil {
		return err
	}

	if len(args) == 0 {
		_, err = fmt.Fprint(rootCmd.OutOrStdout(), code)
		return err
	}

	if err := writeFile(args[0], []byte(code)); err != nil {
		return err
	}
	rootCmd.Printf("✔ execute-only key code written to: %s\n", args[0])
	return nil
}
