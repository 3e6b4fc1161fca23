/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package key implements the did:key method for Ed25519 and P-256 keys.
package key

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"

	"github.com/trustbloc/walletcore/pkg/did"
)

// DIDMethod is the method name.
const DIDMethod = "key"

const prefix = "did:" + DIDMethod + ":"

// VDR creates and reads did:key documents. Reads never touch the network.
type VDR struct{}

// New returns a did:key VDR.
func New() *VDR {
	return &VDR{}
}

// Create builds the did:key document for a public key.
func (v *VDR) Create(pub crypto.PublicKey) (*did.DocResolution, error) {
	multikey, err := did.EncodeMultikey(pub)
	if err != nil {
		return nil, fmt.Errorf("did:key: %w", err)
	}

	doc, err := document(multikey, pub)
	if err != nil {
		return nil, err
	}

	return did.NewDocResolution(doc)
}

// Read expands a did:key into its document.
func (v *VDR) Read(_ context.Context, didKey string) (*did.DocResolution, error) {
	if !strings.HasPrefix(didKey, prefix) {
		return nil, fmt.Errorf("did:key: invalid DID %q", didKey)
	}

	multikey := strings.TrimPrefix(did.StripDIDURL(didKey), prefix)

	if enc, _, err := multibase.Decode(multikey); err != nil || enc != multibase.Base58BTC {
		return nil, fmt.Errorf("did:key: %q is not a base58btc multibase value", multikey)
	}

	pub, err := did.DecodeMultikey(multikey)
	if err != nil {
		return nil, fmt.Errorf("did:key: %w", err)
	}

	doc, err := document(multikey, pub)
	if err != nil {
		return nil, err
	}

	return did.NewDocResolution(doc)
}

func document(multikey string, pub crypto.PublicKey) (*did.Doc, error) {
	id := prefix + multikey
	vmID := id + "#" + multikey

	vm := did.VerificationMethod{
		ID:         vmID,
		Controller: id,
	}

	if edKey, ok := pub.(ed25519.PublicKey); ok {
		b58, err := multibase.Encode(multibase.Base58BTC, edKey)
		if err != nil {
			return nil, fmt.Errorf("did:key: encode key: %w", err)
		}

		vm.Type = did.Ed25519VerificationKey2018
		vm.PublicKeyBase58 = b58[1:]
	} else {
		jwk, err := (&jose.JSONWebKey{Key: pub}).MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("did:key: marshal jwk: %w", err)
		}

		vm.Type = did.JSONWebKey2020
		vm.PublicKeyJwk = jwk
	}

	ref := []did.Verification{did.NewReferencedVerification(vmID)}

	return &did.Doc{
		Context:              []string{did.ContextV1},
		ID:                   id,
		VerificationMethod:   []did.VerificationMethod{vm},
		Authentication:       ref,
		AssertionMethod:      ref,
		CapabilityInvocation: ref,
		CapabilityDelegation: ref,
	}, nil
}
