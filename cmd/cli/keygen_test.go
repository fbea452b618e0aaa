// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/orbfw/fwimage/internal/keys"
)

func TestKeygenCmd(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		setupFunc    func(string) error
		expectError  bool
		errorMessage string
		expectedKind keys.Kind
	}{
		{
			name:         "ecdsa key",
			args:         []string{"keygen", "-t", "ecdsa-p256", "-k", "key.jwk"},
			expectedKind: keys.KindECDSAP256,
		},
		{
			name:         "aes-gcm key",
			args:         []string{"keygen", "--type=aes-gcm", "--key=key.jwk"},
			expectedKind: keys.KindAESGCM,
		},
		{
			name:         "aes-cbc key",
			args:         []string{"keygen", "-t", "aes-cbc", "-k", "key.jwk"},
			expectedKind: keys.KindAESCBC,
		},
		{
			name:         "aes-ctr key",
			args:         []string{"keygen", "-t", "aes-ctr", "-k", "key.jwk"},
			expectedKind: keys.KindAESCTR,
		},
		{
			name:         "missing key flag",
			args:         []string{"keygen", "-t", "aes-gcm"},
			expectError:  true,
			errorMessage: "--key flag is required",
		},
		{
			name:         "missing type flag",
			args:         []string{"keygen", "-k", "key.jwk"},
			expectError:  true,
			errorMessage: "--type flag is required",
		},
		{
			name:         "unknown type",
			args:         []string{"keygen", "-t", "rsa-2048", "-k", "key.jwk"},
			expectError:  true,
			errorMessage: "unexpected key type: rsa-2048",
		},
		{
			name: "existing key file",
			args: []string{"keygen", "-t", "aes-gcm", "-k", "key.jwk"},
			setupFunc: func(dir string) error {
				return os.WriteFile(filepath.Join(dir, "key.jwk"), []byte("{}"), 0600)
			},
			expectError:  true,
			errorMessage: "refusing to overwrite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			tempDir := t.TempDir()
			t.Chdir(tempDir)

			if tt.setupFunc != nil {
				g.Expect(tt.setupFunc(tempDir)).To(Succeed())
			}

			output, err := executeCommand(tt.args)

			if tt.expectError {
				g.Expect(err).To(HaveOccurred())
				g.Expect(err.Error()).To(ContainSubstring(tt.errorMessage))
				return
			}

			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(output).To(ContainSubstring("✔ " + string(tt.expectedKind) + " key written to: key.jwk"))

			k, err := keys.Load(filepath.Join(tempDir, "key.jwk"))
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(k.Kind()).To(Equal(tt.expectedKind))
			g.Expect(k.KeyID()).ToNot(BeEmpty())

			info, err := os.Stat(filepath.Join(tempDir, "key.jwk"))
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(info.Mode().Perm()).To(Equal(os.FileMode(0600)))
		})
	}
}
