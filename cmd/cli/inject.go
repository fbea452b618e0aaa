// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbfw/fwimage/internal/csource"
	"github.com/orbfw/fwimage/internal/keys"
)

var injectCmd = &cobra.Command{
	Use:   "inject [OUTFILE]",
	Short: "Inject a key or certificate in the KMS embedded keys source",
	Long: `Inject a key or certificate in the KMS embedded keys source.
On the lines holding the pattern, CKA_VALUE attributes receive the raw key
bytes and CKA_EC_POINT attributes receive the key as a DER octet string
holding an uncompressed point.`,
	Example: `  # Inject the public key of an ECDSA key pair
  fwimage inject -k ecc.jwk -p @ECDSA_PUB_KEY@ -f kms_blob.c.template kms_blob.c

  # Inject an AES secret key
  fwimage inject -k aes.jwk -t private -p @AES_KEY@ -f kms_blob.c.template kms_blob.c

  # Inject a DER certificate
  fwimage inject -c root_ca.der -p @ROOT_CA_CERT@ -f kms_blob.c.template kms_blob.c
`,
	Args: cobra.ExactArgs(1),
	RunE: injectCmdRun,
}

type injectFlags struct {
	keyPath    string
	certPath   string
	pattern    string
	sourcePath string
	part       string
}

var injectArgs = injectFlags{
	part: string(keys.PartPublic),
}

func init() {
	injectCmd.Flags().StringVarP(&injectArgs.keyPath, "key", "k", "",
		"path to the key file")
	injectCmd.Flags().StringVarP(&injectArgs.certPath, "cert", "c", "",
		"path to a DER certificate file")
	injectCmd.Flags().StringVarP(&injectArgs.pattern, "pattern", "p", "",
		"pattern replaced by the key material (required)")
	injectCmd.Flags().StringVarP(&injectArgs.sourcePath, "file", "f", "",
		"path to the source file template (required)")
	injectCmd.Flags().StringVarP(&injectArgs.part, "type", "t", injectArgs.part,
		"key part to inject, one of: public, private")
	rootCmd.AddCommand(injectCmd)
}

func injectCmdRun(cmd *cobra.Command, args []string) error {
	switch {
	case injectArgs.pattern == "":
		return fmt.Errorf("--pattern flag is required")
	case injectArgs.sourcePath == "":
		return fmt.Errorf("--file flag is required")
	case injectArgs.keyPath != "" && injectArgs.certPath != "":
		return fmt.Errorf("either --key or --cert can be specified, not both")
	}

	var material []byte
	if injectArgs.certPath != "" {
		cert, err := readFile(injectArgs.certPath, "certificate")
		if err != nil {
			return err
		}
		material = cert
	} else {
		k, err := loadKey(injectArgs.keyPath)
		if err != nil {
			return err
		}
		material, err = keys.Material(k, keys.Part(injectArgs.part))
		if err != nil {
			return err
		}
	}

	source, err := readFile(injectArgs.sourcePath, "source file")
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := csource.InjectKey(bytes.NewReader(source), &out, injectArgs.pattern, material); err != nil {
		return err
	}

	if err := writeFile(args[0], out.Bytes()); err != nil {
		return err
	}
	rootCmd.Printf("✔ %d bytes of key material injected in: %s\n", len(material), args[0])
	return nil
}
