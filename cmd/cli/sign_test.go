// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/orbfw/fwimage/internal/keys"
)

func TestSignCmdECDSA(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	keyPath := generateTestKey(t, tempDir, keys.KindECDSAP256)
	payload := bytes.Repeat([]byte("firmware"), 64)
	inPath := writeTestFile(t, tempDir, "appli.bin", payload)
	outPath := filepath.Join(tempDir, "appli.sign")

	output, err := executeCommand([]string{"sign", "-k", keyPath, inPath, outPath})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(output).To(ContainSubstring("✔ signature written to: " + outPath))

	sig, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(sig).To(HaveLen(keys.ECDSASignatureSize))

	k, err := keys.Load(keyPath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(k.Verify(payload, sig, nil)).To(Succeed())
}

func TestSignCmdGCMNonce(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	keyPath := generateTestKey(t, tempDir, keys.KindAESGCM)
	inPath := writeTestFile(t, tempDir, "appli.bin", bytes.Repeat([]byte{0x5a}, 100))
	noncePath := filepath.Join(tempDir, "nonce.bin")
	outPath := filepath.Join(tempDir, "appli.tag")

	// The nonce file is created on first use.
	output, err := executeCommand([]string{"sign", "-k", keyPath, "-n", noncePath, inPath, outPath})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(output).To(ContainSubstring("✔ nonce written to: " + noncePath))

	nonce, err := os.ReadFile(noncePath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(nonce).To(HaveLen(keys.GCMNonceSize))
	tag, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(tag).To(HaveLen(keys.GCMTagSize))

	// The tag is the one of the encrypted payload.
	k, err := keys.Load(keyPath)
	g.Expect(err).ToNot(HaveOccurred())
	ct, err := keys.Encrypt(k, bytes.Repeat([]byte{0x5a}, 100), keys.EncryptOptions{Nonce: nonce})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(ct.Tag).To(Equal(tag))

	// The existing nonce is reused.
	output, err = executeCommand([]string{"sign", "-k", keyPath, "-n", noncePath, inPath, outPath})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(output).ToNot(ContainSubstring("nonce written"))
	again, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(again).To(Equal(tag))
}

func TestSignCmdKeyFromEnv(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	k, err := keys.Generate(keys.KindECDSAP256)
	g.Expect(err).ToNot(HaveOccurred())
	data, err := keys.ToJSON(k)
	g.Expect(err).ToNot(HaveOccurred())
	t.Setenv(keyEnvVar, string(data))

	payload := []byte("payload")
	inPath := writeTestFile(t, tempDir, "appli.bin", payload)
	outPath := filepath.Join(tempDir, "appli.sign")

	_, err = executeCommand([]string{"sign", inPath, outPath})
	g.Expect(err).ToNot(HaveOccurred())

	sig, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(k.Verify(payload, sig, nil)).To(Succeed())
}

func TestSignCmdErrors(t *testing.T) {
	tempDir := t.TempDir()
	cbcKey := generateTestKey(t, tempDir, keys.KindAESCBC)
	gcmKey := generateTestKey(t, tempDir, keys.KindAESGCM)
	inPath := writeTestFile(t, tempDir, "appli.bin", []byte("payload"))
	outPath := filepath.Join(tempDir, "appli.sign")

	tests := []struct {
		name         string
		args         []string
		errorMessage string
	}{
		{
			name:         "missing arguments",
			args:         []string{"sign", "-k", cbcKey, inPath},
			errorMessage: "accepts 2 arg(s), received 1",
		},
		{
			name:         "missing key",
			args:         []string{"sign", inPath, outPath},
			errorMessage: "key must be specified with --key flag or FWIMAGE_KEY environment variable",
		},
		{
			name:         "encryption only key",
			args:         []string{"sign", "-k", cbcKey, inPath, outPath},
			errorMessage: "provided key is not usable to sign",
		},
		{
			name:         "gcm key without nonce file",
			args:         []string{"sign", "-k", gcmKey, inPath, outPath},
			errorMessage: "--nonce flag is required for aes-gcm keys",
		},
		{
			name:         "missing input",
			args:         []string{"sign", "-k", gcmKey, "-n", filepath.Join(tempDir, "n.bin"), filepath.Join(tempDir, "none.bin"), outPath},
			errorMessage: "failed to read input file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			t.Setenv(keyEnvVar, "")

			_, err := executeCommand(tt.args)
			g.Expect(err).To(HaveOccurred())
			g.Expect(err.Error()).To(ContainSubstring(tt.errorMessage))
			g.Expect(outPath).ToNot(BeAnExistingFile())
		})
	}
}

func TestSha256Cmd(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	payload := bytes.Repeat([]byte{0x01, 0x02, 0x03}, 1000)
	inPath := writeTestFile(t, tempDir, "appli.bin", payload)
	outPath := filepath.Join(tempDir, "appli.sha256")

	output, err := executeCommand([]string{"sha256", inPath, outPath})
	g.Expect(err).ToNot(HaveOccurred())

	sum := sha256.Sum256(payload)
	data, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(data).To(Equal(sum[:]))
	g.Expect(output).To(ContainSubstring("✔ sha256:"))
	g.Expect(output).To(ContainSubstring("written to: " + outPath))
}
