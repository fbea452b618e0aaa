// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/csource"
)

var confCmd = &cobra.Command{
	Use:   "conf [INFILE]",
	Short: "Print the value of a define from a C header",
	Example: `  # Print the crypto scheme of the secure engine
  fwimage conf se_crypto_config.h
`,
	Args: cobra.ExactArgs(1),
	RunE: confCmdRun,
}

type confFlags struct {
	define string
}

var confArgs = confFlags{
	define: "SECBOOT_CRYPTO_SCHEME",
}

func init() {
	confCmd.Flags().StringVarP(&confArgs.define, "define", "d", confArgs.define,
		"name of the define")
	rootCmd.AddCommand(confCmd)
}

func confCmdRun(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	value, err := csource.Define(f, confArgs.define)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(rootCmd.OutOrStdout(), value)
	return err
}
