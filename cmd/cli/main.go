// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/merge"
)

var (
	VERSION = "0.0.0-dev.0"
)

var rootCmd = &cobra.Command{
	Use:               "fwimage",
	Version:           VERSION,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	Short:             "Command line utility for building secure boot firmware images",
	Long: `Command line utility for building secure boot firmware images.
It generates keys, signs and encrypts firmware, builds image headers,
merges ELF executables and binaries into flashable images and computes
partial update deltas.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SetContext(logr.NewContext(cmd.Context(), newLogger(cmd.ErrOrStderr())))
	},
}

type rootFlags struct {
	verbose bool
}

var rootArgs rootFlags

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootArgs.verbose, "verbose", false,
		"Print diagnostic logs to stderr.")
	rootCmd.SetOut(os.Stdout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrf("✗ %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode returns the process exit code for err: the code of merge
// conflicts, 1 otherwise.
func exitCode(err error) int {
	var ce *merge.ConflictError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 1
}

func newLogger(w io.Writer) logr.Logger {
	if !rootArgs.verbose {
		return logr.Discard()
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintln(w, prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: 1})
}
