// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/orbfw/fwimage/internal/merge"
)

func fill(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestMergeCmd(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	sbsfu := writeTestELF(t, tempDir, "sbsfu.elf", testSegment{paddr: 0x08000000, data: fill(16, 0x11)})
	app := writeTestELF(t, tempDir, "appli.elf", testSegment{paddr: 0x08000400, data: fill(32, 0xaa)})
	installed := writeTestFile(t, tempDir, "header.bin", fill(512, 0x48))
	outPath := filepath.Join(tempDir, "merged.bin")

	output, err := executeCommand([]string{"merge", "-s", sbsfu, "-i", installed, "-u", app, outPath})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(output).To(ContainSubstring(fmt.Sprintf("✔ merged binary of %d bytes at 0x08000000 written to: %s", 0x400+32, outPath)))

	data, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	expected := append(fill(16, 0x11), fill(0x200-16, 0xff)...)
	expected = append(expected, fill(512, 0x48)...)
	expected = append(expected, fill(32, 0xaa)...)
	g.Expect(data).To(Equal(expected))
}

func TestMergeCmdLoader(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	sbsfu := writeTestELF(t, tempDir, "sbsfu.elf", testSegment{paddr: 0x08000000, data: fill(16, 0x11)})
	loader := writeTestELF(t, tempDir, "loader.elf", testSegment{paddr: 0x08000100, data: fill(16, 0x22)})
	app := writeTestELF(t, tempDir, "appli.elf", testSegment{paddr: 0x08000400, data: fill(32, 0xaa)})
	installed := writeTestFile(t, tempDir, "header.bin", fill(512, 0x48))
	outPath := filepath.Join(tempDir, "merged.bin")

	_, err := executeCommand([]string{"merge", "-s", sbsfu, "-l", loader, "-i", installed, "-u", app, "-v", "0", outPath})
	g.Expect(err).ToNot(HaveOccurred())

	data, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(data).To(HaveLen(0x400 + 32))
	g.Expect(data[:16]).To(Equal(fill(16, 0x11)))
	g.Expect(data[16:0x100]).To(Equal(fill(0x100-16, 0x00)))
	g.Expect(data[0x100:0x110]).To(Equal(fill(16, 0x22)))
	g.Expect(data[0x200:0x400]).To(Equal(fill(512, 0x48)))
}

func TestMergeCmdConflicts(t *testing.T) {
	tempDir := t.TempDir()

	sbsfu := writeTestELF(t, tempDir, "sbsfu.elf", testSegment{paddr: 0x08000000, data: fill(16, 0x11)})
	app := writeTestELF(t, tempDir, "appli.elf", testSegment{paddr: 0x08000400, data: fill(32, 0xaa)})
	installed := writeTestFile(t, tempDir, "header.bin", fill(512, 0x48))
	overlapping := writeTestELF(t, tempDir, "overlapping.elf", testSegment{paddr: 0x08000008, data: fill(16, 0x22)})
	large := writeTestELF(t, tempDir, "large.elf", testSegment{paddr: 0x08000100, data: fill(0x200, 0x22)})
	outPath := filepath.Join(tempDir, "merged.bin")

	tests := []struct {
		name         string
		args         []string
		code         int
		errorMessage string
	}{
		{
			name:         "sbsfu overlaps loader",
			args:         []string{"merge", "-s", sbsfu, "-l", overlapping, "-i", installed, "-u", app, outPath},
			code:         merge.ExitSBSFUTooLarge,
			errorMessage: "sbsfu is too large to merge with loader",
		},
		{
			name:         "loader overlaps header",
			args:         []string{"merge", "-s", sbsfu, "-l", large, "-i", installed, "-u", app, outPath},
			code:         merge.ExitLoaderTooLarge,
			errorMessage: "loader is too large to merge with appli",
		},
		{
			name:         "header address required",
			args:         []string{"merge", "-s", sbsfu, "-i", installed, outPath},
			code:         1,
			errorMessage: "header address is required without user application",
		},
		{
			name:         "missing sbsfu",
			args:         []string{"merge", "-i", installed, "-u", app, outPath},
			code:         1,
			errorMessage: "--sbsfu flag is required",
		},
		{
			name:         "invalid pad value",
			args:         []string{"merge", "-s", sbsfu, "-i", installed, "-u", app, "-v", "256", outPath},
			code:         1,
			errorMessage: "invalid --value",
		},
		{
			name:         "invalid elf type",
			args:         []string{"merge", "-s", sbsfu, "-i", installed, "-u", app, "-e", "2", outPath},
			code:         1,
			errorMessage: "unsupported elf type 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			_, err := executeCommand(tt.args)
			g.Expect(err).To(HaveOccurred())
			g.Expect(err.Error()).To(ContainSubstring(tt.errorMessage))
			g.Expect(exitCode(err)).To(Equal(tt.code))
			g.Expect(outPath).ToNot(BeAnExistingFile())
		})
	}
}

func TestMergev2Cmd(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	sbsfu := writeTestELF(t, tempDir, "sbsfu.elf", testSegment{paddr: 0x08000000, data: fill(16, 0x11)})
	after := writeTestFile(t, tempDir, "after.bin", fill(8, 0x22))
	before := writeTestFile(t, tempDir, "before.bin", fill(16, 0x33))
	outPath := filepath.Join(tempDir, "merged.bin")

	output, err := executeCommand([]string{"mergev2", "-f", sbsfu,
		"-b", after + "@0x08000100;" + before + "@0x07ffff00", outPath})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(output).To(ContainSubstring("✔ base address written to: " + outPath + ".baseadd"))

	data, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	expected := append(fill(16, 0x33), fill(0x100-16, 0xff)...)
	expected = append(expected, fill(16, 0x11)...)
	expected = append(expected, fill(0x100-16, 0xff)...)
	expected = append(expected, fill(8, 0x22)...)
	g.Expect(data).To(Equal(expected))

	base, err := os.ReadFile(outPath + ".baseadd")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(base)).To(Equal("0x7ffff00"))
}

func TestMergev2CmdLayout(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	writeTestELF(t, tempDir, "sbsfu.elf", testSegment{paddr: 0x08000000, data: fill(16, 0x11)})
	writeTestFile(t, tempDir, "kms.bin", fill(8, 0x22))
	layoutPath := writeTestFile(t, tempDir, "layout.yaml", []byte(`pad: 0
elfType: 1
files:
  - sbsfu.elf
binaries:
  - kms.bin@0x08000020
`))
	outPath := filepath.Join(tempDir, "merged.bin")

	_, err := executeCommand([]string{"mergev2", "--layout", layoutPath, outPath})
	g.Expect(err).ToNot(HaveOccurred())

	data, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	expected := append(fill(16, 0x11), fill(16, 0x00)...)
	g.Expect(data).To(Equal(append(expected, fill(8, 0x22)...)))

	// The pad flag overrides the manifest.
	_, err = executeCommand([]string{"mergev2", "--layout", layoutPath, "-v", "0xee", outPath})
	g.Expect(err).ToNot(HaveOccurred())
	data, err = os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(data[16:32]).To(Equal(fill(16, 0xee)))
}

func TestMergev2CmdConflicts(t *testing.T) {
	tempDir := t.TempDir()

	sbsfu := writeTestELF(t, tempDir, "sbsfu.elf", testSegment{paddr: 0x08000000, data: fill(16, 0x11)})
	straddling := writeTestFile(t, tempDir, "straddling.bin", fill(16, 0x22))
	inside := writeTestFile(t, tempDir, "inside.bin", fill(4, 0x22))
	outPath := filepath.Join(tempDir, "merged.bin")

	tests := []struct {
		name string
		args []string
		code int
		err  error
	}{
		{
			name: "partial overlap",
			args: []string{"mergev2", "-f", sbsfu, "-b", straddling + "@0x08000008", outPath},
			code: merge.ExitPartialOverlap,
			err:  merge.ErrPartialOverlap,
		},
		{
			name: "overlapped zone not empty",
			args: []string{"mergev2", "-f", sbsfu, "-b", inside + "@0x08000004", outPath},
			code: merge.ExitOverlapNotEmpty,
			err:  merge.ErrOverlapNotEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			_, err := executeCommand(tt.args)
			g.Expect(err).To(HaveOccurred())
			g.Expect(errors.Is(err, tt.err)).To(BeTrue())
			g.Expect(exitCode(err)).To(Equal(tt.code))
			g.Expect(outPath).ToNot(BeAnExistingFile())
			g.Expect(outPath + ".baseadd").ToNot(BeAnExistingFile())
		})
	}

	t.Run("missing binaries", func(t *testing.T) {
		g := NewWithT(t)
		_, err := executeCommand([]string{"mergev2", "-f", sbsfu, outPath})
		g.Expect(err).To(MatchError("--binaries flag is required"))
	})
}

func TestAppendCmd(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	binary := writeTestFile(t, tempDir, "sbsfu.bin", fill(64, 0x22))
	app := writeTestELF(t, tempDir, "appli.elf", testSegment{paddr: 0x08000400, data: fill(32, 0xaa)})
	installed := writeTestFile(t, tempDir, "header.bin", fill(512, 0x48))
	outPath := filepath.Join(tempDir, "merged.bin")

	output, err := executeCommand([]string{"append", "-b", binary, "-a", "0x08000000", "-i", installed, "-u", app, outPath})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(output).To(ContainSubstring("✔ merged binary of 1056 bytes at 0x08000000"))

	data, err := os.ReadFile(outPath)
	g.Expect(err).ToNot(HaveOccurred())
	expected := append(fill(64, 0x22), fill(0x200-64, 0xff)...)
	expected = append(expected, fill(512, 0x48)...)
	g.Expect(data).To(Equal(append(expected, fill(32, 0xaa)...)))

	_, err = executeCommand([]string{"append", "-b", binary, "-i", installed, "-u", app, outPath})
	g.Expect(err).To(MatchError("--address flag is required"))
}
