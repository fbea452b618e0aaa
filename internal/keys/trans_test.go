// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega"
)

func testAESKey(t *testing.T) Key {
	secret := []byte{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	}
	k, err := newAESKey("test", KindAESCBC, secret)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestTranslateV7M(t *testing.T) {
	g := NewWithT(t)

	out, err := Translate(testAESKey(t), TranslateOptions{
		Function:  "SE_ReadKey",
		Assembler: AssemblerGNU,
		Arch:      ArchV7M,
	})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(ContainSubstring(".section .text,\"ax\",%progbits"))
	g.Expect(out).To(ContainSubstring(".global SE_ReadKey"))
	g.Expect(out).To(ContainSubstring("MOVW r1, #0x0100\n\tMOVT r1, #0x0302\n\tSTR r1, [r0, #0]"))
	g.Expect(out).To(ContainSubstring("STR r1, [r0, #12]"))
	g.Expect(strings.Count(out, "STR r1")).To(Equal(4))
	g.Expect(out).To(ContainSubstring("BX LR"))
	g.Expect(out).ToNot(ContainSubstring(".end"))
}

func TestTranslateV6M(t *testing.T) {
	g := NewWithT(t)

	out, err := Translate(testAESKey(t), TranslateOptions{
		Function:  "SE_ReadKey",
		Section:   ".SE_Key_Data",
		Assembler: AssemblerIAR,
		Arch:      ArchV6M,
		End:       true,
	})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(HavePrefix("\tSECTION .SE_Key_Data:CODE:NOROOT(2)\n"))
	g.Expect(out).To(ContainSubstring("MOVS r1, #0x03\n\tLSLS r1, r1, #8\n\tADDS r1, r1, #0x02"))
	g.Expect(out).To(ContainSubstring("ADDS r1, r1, #0x00\n\tSTR r1, [r0, #0]"))
	g.Expect(out).ToNot(ContainSubstring("MOVW"))
	g.Expect(out).To(HaveSuffix("\tEND\n"))
}

func TestTranslateARMSyntax(t *testing.T) {
	g := NewWithT(t)

	ec, err := Generate(KindECDSAP256)
	g.Expect(err).ToNot(HaveOccurred())

	out, err := Translate(ec, TranslateOptions{
		Function:  "SE_ReadKey_Pub",
		Assembler: AssemblerARM,
		Arch:      ArchV7M,
	})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(out).To(ContainSubstring("AREA |.text|, CODE, READONLY, EXECONLY"))
	g.Expect(out).To(ContainSubstring("EXPORT SE_ReadKey_Pub"))
	g.Expect(strings.Count(out, "STR r1")).To(Equal(16))
}

func TestTranslateValidation(t *testing.T) {
	g := NewWithT(t)
	k := testAESKey(t)

	_, err := Translate(k, TranslateOptions{Function: "f", Assembler: "MASM", Arch: ArchV7M})
	g.Expect(err).To(MatchError(ContainSubstring("assembly option not supported")))

	_, err = Translate(k, TranslateOptions{Function: "f", Assembler: AssemblerGNU, Arch: "V8M"})
	g.Expect(err).To(MatchError(ContainSubstring("architecture not supported")))

	_, err = Translate(k, TranslateOptions{Assembler: AssemblerGNU, Arch: ArchV7M})
	g.Expect(err).To(MatchError(ContainSubstring("function name is required")))
}
