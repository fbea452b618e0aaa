// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/orbfw/fwimage/internal/bindiff"
	"github.com/orbfw/fwimage/internal/keys"
)

// executeCommand executes a CLI command with the given args and returns the output and error.
// This helper function can be reused across all CLI command tests.
func executeCommand(args []string) (string, error) {
	defer resetCmdArgs()

	// Capture output
	buf := new(bytes.Buffer)

	// Set up the command
	cmd := rootCmd
	cmd.SetArgs(args)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	// Execute command
	err := cmd.Execute()

	return buf.String(), err
}

// resetCmdArgs resets all command-specific flags to their default values.
// This should be called between tests to ensure clean state.
func resetCmdArgs() {
	rootArgs = rootFlags{}

	// Key commands
	keygenArgs = keygenFlags{}
	getpubArgs = getpubFlags{}
	transArgs = transFlags{assembler: keys.AssemblerIAR, arch: keys.ArchV7M}
	injectArgs = injectFlags{part: string(keys.PartPublic)}

	// Image commands
	signArgs = signFlags{}
	encArgs = encFlags{}
	headerArgs = newImageHeaderFlags()
	packArgs = newImageHeaderFlags()
	inspectArgs = newInspectFlags()
	diffArgs = diffFlags{begin: "0", end: "0", align: bindiff.DefaultAlign}

	// Merge commands
	mergeArgs = mergeFlags{value: "0xff", elfType: 1}
	mergev2Args = mergev2Flags{value: "0xff", elfType: 1}
	appendArgs = appendFlags{value: "0xff", elfType: 1}

	// Source commands
	confArgs = confFlags{define: "SECBOOT_CRYPTO_SCHEME"}
	extractArgs = extractFlags{}

	resetChangedFlags(rootCmd)
}

func resetChangedFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetChangedFlags(c)
	}
}

func writeTestFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func generateTestKey(t *testing.T, dir string, kind keys.Kind) string {
	t.Helper()
	k, err := keys.Generate(kind)
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, string(kind)+".jwk")
	if err := keys.WriteFile(k, p); err != nil {
		t.Fatal(err)
	}
	return p
}

type testSegment struct {
	paddr uint32
	data  []byte
}

// writeTestELF writes a little-endian ELF32 ARM executable with one
// loadable segment per seg and a .text section at the first segment.
func writeTestELF(t *testing.T, dir, name string, segs ...testSegment) string {
	t.Helper()

	const (
		ehsize    = 52
		phentsize = 32
		shentsize = 40
	)

	dataOff := uint32(ehsize + phentsize*len(segs))
	var payload bytes.Buffer
	phdrs := make([]elf.Prog32, 0, len(segs))
	for _, s := range segs {
		phdrs = append(phdrs, elf.Prog32{
			Type:   uint32(elf.PT_LOAD),
			Off:    dataOff + uint32(payload.Len()),
			Vaddr:  s.paddr,
			Paddr:  s.paddr,
			Filesz: uint32(len(s.data)),
			Memsz:  uint32(len(s.data)),
			Flags:  uint32(elf.PF_R | elf.PF_X),
			Align:  4,
		})
		payload.Write(s.data)
	}

	strtab := []byte("\x00.text\x00.shstrtab\x00")
	strtabOff := dataOff + uint32(payload.Len())
	payload.Write(strtab)
	for payload.Len()%4 != 0 {
		payload.WriteByte(0)
	}
	shdrs := []elf.Section32{
		{},
		{
			Name:      1,
			Type:      uint32(elf.SHT_PROGBITS),
			Flags:     uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr:      segs[0].paddr,
			Off:       dataOff,
			Size:      uint32(len(segs[0].data)),
			Addralign: 4,
		},
		{
			Name:      7,
			Type:      uint32(elf.SHT_STRTAB),
			Off:       strtabOff,
			Size:      uint32(len(strtab)),
			Addralign: 1,
		},
	}

	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_ARM),
		Version:   uint32(elf.EV_CURRENT),
		Phoff:     ehsize,
		Shoff:     dataOff + uint32(payload.Len()),
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     uint16(len(phdrs)),
		Shentsize: shentsize,
		Shnum:     uint16(len(shdrs)),
		Shstrndx:  uint16(len(shdrs) - 1),
	}
	copy(hdr.Ident[:], []byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS32), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)})

	var out bytes.Buffer
	for _, v := range []any{hdr, phdrs, payload.Bytes(), shdrs} {
		if err := binary.Write(&out, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	return writeTestFile(t, dir, name, out.Bytes())
}
