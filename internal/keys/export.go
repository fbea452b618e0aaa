// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"fmt"
	"io"
	"strings"
)

// Part selects which key material is exported.
type Part string

const (
	PartPublic  Part = "public"
	PartPrivate Part = "private"
)

// Material returns the raw key bytes for part: the X||Y point of an ECDSA
// public key, the ECDSA private scalar, or the AES secret.
func Material(k Key, part Part) ([]byte, error) {
	switch key := k.(type) {
	case *ECDSAKey:
		switch part {
		case PartPublic:
			return key.PublicPoint(), nil
		case PartPrivate:
			if key.priv == nil {
				return nil, fmt.Errorf("key has no private part")
			}
			out := make([]byte, 32)
			key.priv.D.FillBytes(out)
			return out, nil
		}
	case *AESKey:
		switch part {
		case PartPublic:
			return nil, ErrNoPublicPart
		case PartPrivate:
			return key.Secret(), nil
		}
	}
	return nil, fmt.Errorf("unsupported key part %q for %s key", part, k.Kind())
}

// EmitC writes the key material distributed to the firmware as a C array:
// the public point for ECDSA keys and the secret for symmetric keys.
func EmitC(w io.Writer, k Key) error {
	var (
		name string
		data []byte
		err  error
	)
	switch k.Kind() {
	case KindECDSAP256:
		name = "ecdsa_pub_key"
		data, err = Material(k, PartPublic)
	default:
		name = strings.ReplaceAll(string(k.Kind()), "-", "_") + "_secret_key"
		data, err = Material(k, PartPrivate)
	}
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "/* Autogenerated by fwimage, do not edit */\n")
	fmt.Fprintf(&sb, "const unsigned char %s[] = {", name)
	for i, b := range data {
		if i%8 == 0 {
			sb.WriteString("\n    ")
		} else {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "0x%02x,", b)
	}
	sb.WriteString("\n};\n")
	fmt.Fprintf(&sb, "const unsigned int %s_len = %d;\n", name, len(data))

	_, err = io.WriteString(w, sb.String())
	return err
}
