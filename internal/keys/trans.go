// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"fmt"
	"strings"
)

// Assembler syntaxes supported by Translate.
const (
	AssemblerGNU = "GNU"
	AssemblerIAR = "IAR"
	AssemblerARM = "ARM"
)

// Cortex-M architectures supported by Translate.
const (
	ArchV6M = "V6M"
	ArchV7M = "V7M"
)

// TranslateOptions configures the execute-only key routine.
type TranslateOptions struct {
	// Function is the exported symbol name.
	Function string
	// Section is the code section, .text when empty.
	Section string
	// Assembler is one of GNU, IAR or ARM.
	Assembler string
	// Arch is V6M or V7M.
	Arch string
	// End appends the END directive closing the assembly file.
	End bool
}

// Translate emits a Thumb routine that stores the key material in the
// buffer pointed to by r0 without reading it from data memory, so that the
// key can live in execute-only flash. Only r1 is clobbered.
func Translate(k Key, opts TranslateOptions) (string, error) {
	if opts.Function == "" {
		return "", fmt.Errorf("function name is required")
	}
	switch opts.Assembler {
	case AssemblerGNU, AssemblerIAR, AssemblerARM:
	default:
		return "", fmt.Errorf("assembly option not supported: %q", opts.Assembler)
	}
	if opts.Arch != ArchV6M && opts.Arch != ArchV7M {
		return "", fmt.Errorf("Cortex M architecture not supported: %q", opts.Arch)
	}

	part := PartPrivate
	if k.Kind() == KindECDSAP256 {
		part = PartPublic
	}
	data, err := Material(k, part)
	if err != nil {
		return "", err
	}
	if len(data)%4 != 0 {
		return "", fmt.Errorf("key size %d is not a multiple of 4", len(data))
	}
	// Thumb-1 STR immediate offsets are limited to 124.
	if opts.Arch == ArchV6M && len(data) > 128 {
		return "", fmt.Errorf("key size %d too large for %s", len(data), ArchV6M)
	}

	section := opts.Section
	if section == "" {
		section = ".text"
	}

	var sb strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&sb, format+"\n", args...)
	}

	switch opts.Assembler {
	case AssemblerGNU:
		line("\t.syntax unified")
		line("\t.thumb")
		line("\t.section %s,\"ax\",%%progbits", section)
		line("\t.global %s", opts.Function)
		line("\t.thumb_func")
		line("\t.type %s, %%function", opts.Function)
		line("%s:", opts.Function)
	case AssemblerIAR:
		line("\tSECTION %s:CODE:NOROOT(2)", section)
		line("\tPUBLIC %s", opts.Function)
		line("\tTHUMB")
		line("%s:", opts.Function)
	case AssemblerARM:
		line("\tAREA |%s|, CODE, READONLY, EXECONLY", section)
		line("\tTHUMB")
		line("\tEXPORT %s", opts.Function)
		line("%s", opts.Function)
	}

	for off := 0; off < len(data); off += 4 {
		b := data[off : off+4]
		if opts.Arch == ArchV7M {
			lo := uint16(b[0]) | uint16(b[1])<<8
			hi := uint16(b[2]) | uint16(b[3])<<8
			line("\tMOVW r1, #0x%04x", lo)
			line("\tMOVT r1, #0x%04x", hi)
		} else {
			line("\tMOVS r1, #0x%02x", b[3])
			for i := 2; i >= 0; i-- {
				line("\tLSLS r1, r1, #8")
				line("\tADDS r1, r1, #0x%02x", b[i])
			}
		}
		line("\tSTR r1, [r0, #%d]", off)
	}
	line("\tBX LR")

	if opts.Assembler == AssemblerGNU {
		line("\t.size %s, .-%s", opts.Function, opts.Function)
	}
	if opts.End {
		if opts.Assembler == AssemblerGNU {
			line("\t.end")
		} else {
			line("\tEND")
		}
	}
	return sb.String(), nil
}
