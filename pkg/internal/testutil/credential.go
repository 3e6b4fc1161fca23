/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package testutil creates signed credentials for tests.
package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/credential/ldproof"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/creator"
	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/doc/sdjwt"
	"github.com/trustbloc/walletcore/pkg/kms"
)

// Issuer signs credentials with a did:key.
type Issuer struct {
	DID    string
	Doc    *did.DocResolution
	Signer jwt.Signer
	KMS    *kms.LocalKMS
}

// NewIssuer creates an issuer with a fresh did:key of the given key type.
func NewIssuer(t *testing.T, keyType kms.KeyType) *Issuer {
	t.Helper()

	km := kms.NewLocalKMS()

	res, err := creator.New(km).Create("key", keyType)
	require.NoError(t, err)

	vmID, err := res.AssertionMethodID()
	require.NoError(t, err)

	signer, err := km.Signer(vmID)
	require.NoError(t, err)

	return &Issuer{DID: res.DIDDocument.ID, Doc: res, Signer: signer, KMS: km}
}

// CredentialDoc returns an unsigned credential document issued by the issuer.
func (i *Issuer) CredentialDoc(subjectID string, types []string, subject map[string]interface{}) map[string]interface{} {
	cs := map[string]interface{}{"id": subjectID}

	for k, v := range subject {
		cs[k] = v
	}

	allTypes := []interface{}{"VerifiableCredential"}
	for _, t := range types {
		allTypes = append(allTypes, t)
	}

	return map[string]interface{}{
		"@context":          []interface{}{TestContextURL},
		"id":                "urn:uuid:" + uuid.NewString(),
		"type":              allTypes,
		"issuer":            i.DID,
		"issuanceDate":      time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"credentialSubject": cs,
	}
}

// JWTVC signs doc as a JWT VC.
func (i *Issuer) JWTVC(t *testing.T, doc map[string]interface{}) string {
	t.Helper()

	token, err := jwt.Sign(i.Signer, i.jwtClaims(doc))
	require.NoError(t, err)

	return token
}

// SDJWTVC signs doc as an SD-JWT VC with the named subject claims concealed.
func (i *Issuer) SDJWTVC(t *testing.T, doc map[string]interface{}, concealed ...string) string {
	t.Helper()

	claims := i.jwtClaims(doc)
	vc, _ := claims["vc"].(map[string]interface{})
	subject, _ := vc["credentialSubject"].(map[string]interface{})

	disclosures, err := sdjwt.Conceal(subject, concealed...)
	require.NoError(t, err)

	claims[sdjwt.SDAlgorithmKey] = "sha-256"

	token, err := jwt.Sign(i.Signer, claims)
	require.NoError(t, err)

	return sdjwt.Combine(token, disclosures)
}

// LDPVC signs doc with an Ed25519Signature2018 proof.
func (i *Issuer) LDPVC(t *testing.T, doc map[string]interface{}) string {
	t.Helper()

	require.NoError(t, ldproof.Sign(doc, i.Signer, ldproof.Ed25519Signature2018, DocumentLoader(t)))

	b, err := json.Marshal(doc)
	require.NoError(t, err)

	return string(b)
}

func (i *Issuer) jwtClaims(doc map[string]interface{}) map[string]interface{} {
	// Round trip through JSON so the signed claims do not share maps with doc.
	b, _ := json.Marshal(doc) //nolint:errchkjson
	vc := map[string]interface{}{}

	_ = json.Unmarshal(b, &vc) //nolint:errcheck

	claims := map[string]interface{}{
		"iss": i.DID,
		"nbf": time.Now().Add(-time.Hour).Unix(),
		"vc":  vc,
	}

	if id, ok := vc["id"].(string); ok {
		claims["jti"] = id
	}

	if subject, ok := vc["credentialSubject"].(map[string]interface{}); ok {
		if sub, isString := subject["id"].(string); isString {
			claims["sub"] = sub
		}
	}

	return claims
}
