/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"
)

// Verification method types.
const (
	Ed25519VerificationKey2018 = "Ed25519VerificationKey2018"
	Ed25519VerificationKey2020 = "Ed25519VerificationKey2020"
	JSONWebKey2020             = "JsonWebKey2020"
	Multikey                   = "Multikey"
)

var (
	ed25519Codec = []byte{0xed, 0x01}
	p256Codec    = []byte{0x80, 0x24}
)

// ErrUnsupportedKey is returned for key material the wallet cannot verify with.
var ErrUnsupportedKey = errors.New("unsupported key")

// JSONWebKey returns the public key of the method as a JWK.
func (vm *VerificationMethod) JSONWebKey() (*jose.JSONWebKey, error) {
	var (
		pub crypto.PublicKey
		err error
	)

	switch {
	case len(vm.PublicKeyJwk) > 0:
		jwk := &jose.JSONWebKey{}

		if err = jwk.UnmarshalJSON(vm.PublicKeyJwk); err != nil {
			return nil, fmt.Errorf("%w: parse publicKeyJwk of %s: %v", ErrUnsupportedKey, vm.ID, err)
		}

		if !jwk.IsPublic() {
			return nil, fmt.Errorf("publicKeyJwk of %s contains private key material", vm.ID)
		}

		jwk.KeyID = vm.ID

		return jwk, nil
	case vm.PublicKeyMultibase != "":
		pub, err = DecodeMultikey(vm.PublicKeyMultibase)
	case vm.PublicKeyBase58 != "":
		var raw []byte

		_, raw, err = multibase.Decode(string(multibase.Base58BTC) + vm.PublicKeyBase58)
		if err == nil {
			pub, err = rawEd25519(raw)
		}
	default:
		return nil, fmt.Errorf("%w: %s has no public key", ErrUnsupportedKey, vm.ID)
	}

	if err != nil {
		return nil, fmt.Errorf("decode public key of %s: %w", vm.ID, err)
	}

	return &jose.JSONWebKey{Key: pub, KeyID: vm.ID}, nil
}

// EncodeMultikey encodes a public key as a base58btc multicodec value.
func EncodeMultikey(pub crypto.PublicKey) (string, error) {
	var data []byte

	switch k := pub.(type) {
	case ed25519.PublicKey:
		data = append(append([]byte{}, ed25519Codec...), k...)
	case *ecdsa.PublicKey:
		if k.Curve != elliptic.P256() {
			return "", fmt.Errorf("%w: curve %s", ErrUnsupportedKey, k.Curve.Params().Name)
		}

		data = append(append([]byte{}, p256Codec...), elliptic.MarshalCompressed(k.Curve, k.X, k.Y)...)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedKey, pub)
	}

	return multibase.Encode(multibase.Base58BTC, data)
}

// DecodeMultikey decodes a multibase multicodec public key. A bare 32 byte value is read as Ed25519.
func DecodeMultikey(value string) (crypto.PublicKey, error) {
	_, data, err := multibase.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("decode multibase: %w", err)
	}

	switch {
	case len(data) == ed25519.PublicKeySize:
		return rawEd25519(data)
	case bytes.HasPrefix(data, ed25519Codec):
		return rawEd25519(data[len(ed25519Codec):])
	case bytes.HasPrefix(data, p256Codec):
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), data[len(p256Codec):])
		if x == nil {
			return nil, errors.New("invalid compressed P-256 point")
		}

		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("%w: unknown multicodec prefix", ErrUnsupportedKey)
	}
}

func rawEd25519(raw []byte) (ed25519.PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519 key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}

	return ed25519.PublicKey(raw), nil
}
