/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwk implements the did:jwk method.
package jwk

import (
	"context"
	"crypto"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"github.com/trustbloc/walletcore/pkg/did"
)

// DIDMethod is the method name.
const DIDMethod = "jwk"

const (
	prefix   = "did:" + DIDMethod + ":"
	fragment = "#0"
)

// VDR creates and reads did:jwk documents.
type VDR struct{}

func New() *VDR {
	return &VDR{}
}

// Create builds the did:jwk document for a public key.
func (v *VDR) Create(pub crypto.PublicKey) (*did.DocResolution, error) {
	raw, err := (&jose.JSONWebKey{Key: pub}).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("did:jwk: marshal jwk: %w", err)
	}

	return did.NewDocResolution(document(prefix+base64.RawURLEncoding.EncodeToString(raw), raw))
}

// Read decodes a did:jwk into its document.
func (v *VDR) Read(_ context.Context, didJWK string) (*did.DocResolution, error) {
	if !strings.HasPrefix(didJWK, prefix) {
		return nil, fmt.Errorf("did:jwk: invalid DID %q", didJWK)
	}

	id := did.StripDIDURL(didJWK)

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(id, prefix))
	if err != nil {
		return nil, fmt.Errorf("did:jwk: decode: %w", err)
	}

	key := &jose.JSONWebKey{}

	if err = key.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("did:jwk: parse jwk: %w", err)
	}

	if !key.IsPublic() {
		return nil, fmt.Errorf("did:jwk: jwk must not contain private key material")
	}

	return did.NewDocResolution(document(id, raw))
}

func document(id string, jwk []byte) *did.Doc {
	vmID := id + fragment
	ref := []did.Verification{did.NewReferencedVerification(vmID)}

	return &did.Doc{
		Context: []string{did.ContextV1},
		ID:      id,
		VerificationMethod: []did.VerificationMethod{{
			ID:           vmID,
			Type:         did.JSONWebKey2020,
			Controller:   id,
			PublicKeyJwk: jwk,
		}},
		Authentication:       ref,
		AssertionMethod:      ref,
		CapabilityInvocation: ref,
		CapabilityDelegation: ref,
	}
}
