// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"

	"github.com/orbfw/fwimage/internal/fileutil"
)

const (
	useSig = "sig"
	useEnc = "enc"
)

var algorithmByKind = map[Kind]string{
	KindECDSAP256: string(jose.ES256),
	KindAESGCM:    string(jose.A128GCM),
	KindAESCBC:    "A128CBC",
	KindAESCTR:    "A128CTR",
}

// Generate creates a new key of the given kind with a UUID v6 key ID.
func Generate(kind Kind) (Key, error) {
	kid, err := uuid.NewV6()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key ID: %w", err)
	}

	switch kind {
	case KindECDSAP256:
		return generateECDSA(kid.String())
	case KindAESGCM, KindAESCBC, KindAESCTR:
		return generateAES(kid.String(), kind)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// ToJSON serializes the key, including its private material, as a JWK.
func ToJSON(k Key) ([]byte, error) {
	return json.MarshalIndent(k.jwk(), "", "  ")
}

// WriteFile writes the key to filePath as a JWK readable by the owner only.
// Existing files are never overwritten.
func WriteFile(k Key, filePath string) error {
	data, err := ToJSON(k)
	if err != nil {
		return err
	}
	return fileutil.WriteNewFile(filePath, data, 0600)
}

// Load reads a key from a JWK file or a PEM encoded EC key file.
func Load(filePath string) (Key, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	k, err := Parse(data)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = filePath
		}
		return nil, err
	}
	return k, nil
}

// Parse decodes key material from JWK or PEM bytes.
func Parse(data []byte) (Key, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &FormatError{Err: errors.New("empty key material")}
	}
	if trimmed[0] == '{' {
		return parseJWK(trimmed)
	}
	return parsePEM(trimmed)
}

func parseJWK(data []byte) (Key, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, &FormatError{Err: fmt.Errorf("failed to parse JWK: %w", err)}
	}

	var kind Kind
	for k, alg := range algorithmByKind {
		if alg == jwk.Algorithm {
			kind = k
		}
	}

	var (
		key Key
		err error
	)
	switch kind {
	case KindECDSAP256:
		switch ec := jwk.Key.(type) {
		case *ecdsa.PrivateKey:
			key, err = newECDSAKey(jwk.KeyID, ec, nil)
		case *ecdsa.PublicKey:
			key, err = newECDSAKey(jwk.KeyID, nil, ec)
		default:
			err = fmt.Errorf("algorithm %s requires an EC key, got %T", jwk.Algorithm, jwk.Key)
		}
	case KindAESGCM, KindAESCBC, KindAESCTR:
		secret, ok := jwk.Key.([]byte)
		if !ok {
			err = fmt.Errorf("algorithm %s requires a symmetric key, got %T", jwk.Algorithm, jwk.Key)
			break
		}
		key, err = newAESKey(jwk.KeyID, kind, secret)
	default:
		err = fmt.Errorf("unsupported algorithm %q", jwk.Algorithm)
	}
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	return key, nil
}

func parsePEM(data []byte) (Key, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &FormatError{Err: errors.New("no JWK or PEM data found")}
	}

	var (
		key Key
		err error
	)
	switch block.Type {
	case "EC PRIVATE KEY":
		var priv *ecdsa.PrivateKey
		if priv, err = x509.ParseECPrivateKey(block.Bytes); err == nil {
			key, err = newECDSAKey("", priv, nil)
		}
	case "PRIVATE KEY":
		var parsed any
		if parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
			priv, ok := parsed.(*ecdsa.PrivateKey)
			if !ok {
				err = fmt.Errorf("unsupported private key type %T", parsed)
				break
			}
			key, err = newECDSAKey("", priv, nil)
		}
	case "PUBLIC KEY":
		var parsed any
		if parsed, err = x509.ParsePKIXPublicKey(block.Bytes); err == nil {
			pub, ok := parsed.(*ecdsa.PublicKey)
			if !ok {
				err = fmt.Errorf("unsupported public key type %T", parsed)
				break
			}
			key, err = newECDSAKey("", nil, pub)
		}
	default:
		err = fmt.Errorf("unsupported PEM block %q", block.Type)
	}
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	return key, nil
}
