/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package creator creates wallet DIDs backed by keys in the local KMS.
package creator

import (
	"crypto"
	"fmt"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/jwk"
	"github.com/trustbloc/walletcore/pkg/did/key"
	"github.com/trustbloc/walletcore/pkg/kms"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

var logger = log.New("did-creator")

// DefaultKeyType is used when Create is called without a key type.
const DefaultKeyType = kms.ED25519

type methodCreator interface {
	Create(pub crypto.PublicKey) (*did.DocResolution, error)
}

// Creator creates DIDs.
type Creator struct {
	kms     *kms.LocalKMS
	methods map[string]methodCreator
}

// New returns a Creator storing keys in km.
func New(km *kms.LocalKMS) *Creator {
	return &Creator{
		kms: km,
		methods: map[string]methodCreator{
			key.DIDMethod: key.New(),
			jwk.DIDMethod: jwk.New(),
		},
	}
}

// SupportedMethods lists the DID methods Create accepts.
func (c *Creator) SupportedMethods() []string {
	return []string{key.DIDMethod, jwk.DIDMethod}
}

// Create generates a key and a DID for it. The assertion method of the new document is bound
// to the key so it can sign proofs and presentations.
func (c *Creator) Create(method string, keyType kms.KeyType) (*did.DocResolution, error) {
	m, supported := c.methods[method]
	if !supported {
		return nil, walleterror.Newf(walleterror.UnsupportedDIDMethod, "unsupported did method: %s", method).
			WithComponent(walleterror.DIDCreatorComponent)
	}

	if keyType == "" {
		keyType = DefaultKeyType
	}

	k, err := c.kms.Create(keyType)
	if err != nil {
		return nil, walleterror.New(walleterror.InvalidArgumentError, fmt.Errorf("did:%s: %w", method, err)).
			WithComponent(walleterror.DIDCreatorComponent)
	}

	res, err := m.Create(k.PublicKey())
	if err != nil {
		return nil, walleterror.New(walleterror.SystemError, err).WithComponent(walleterror.DIDCreatorComponent)
	}

	vmIDs := map[string]struct{}{}

	for _, rel := range []did.VerificationRelationship{did.AssertionMethod, did.Authentication} {
		for _, vm := range res.DIDDocument.VerificationMethods(rel) {
			vmIDs[vm.ID] = struct{}{}
		}
	}

	for vmID := range vmIDs {
		if err = c.kms.Bind(vmID, k.ID()); err != nil {
			return nil, walleterror.New(walleterror.SystemError, err).WithComponent(walleterror.DIDCreatorComponent)
		}
	}

	logger.Debug("DID created", logfields.WithDID(res.DIDDocument.ID), logfields.WithDIDMethod(method))

	return res, nil
}
