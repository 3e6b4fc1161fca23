/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/did"
)

const sampleDoc = `{
  "@context": ["https://www.w3.org/ns/did/v1"],
  "id": "did:example:123",
  "verificationMethod": [{
    "id": "did:example:123#key-1",
    "type": "Ed25519VerificationKey2018",
    "controller": "did:example:123",
    "publicKeyBase58": "H3C2AVvLMv6gmMNam3uVAjZpfkcJCwDwnZn6z3wXmqPV"
  }],
  "authentication": [{
    "id": "#auth-1",
    "type": "Ed25519VerificationKey2020",
    "controller": "did:example:123",
    "publicKeyMultibase": "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"
  }],
  "assertionMethod": ["#key-1", "did:example:123#missing"],
  "service": [{
    "id": "did:example:123#linked",
    "type": ["LinkedDomains"],
    "serviceEndpoint": {"origins": ["https://issuer.example"]}
  }, {
    "id": "did:example:123#hub",
    "type": "Hub",
    "serviceEndpoint": "https://hub.example"
  }]
}`

func TestParseDocument(t *testing.T) {
	doc, err := did.ParseDocument([]byte(sampleDoc))
	require.NoError(t, err)
	require.Equal(t, "did:example:123", doc.ID)

	t.Run("references are resolved", func(t *testing.T) {
		methods := doc.VerificationMethods(did.AssertionMethod)
		require.Len(t, methods, 1)
		require.Equal(t, "did:example:123#key-1", methods[0].ID)
	})

	t.Run("embedded methods are found by relative id", func(t *testing.T) {
		vm, ok := doc.FindVerificationMethod("did:example:123#auth-1")
		require.True(t, ok)
		require.Equal(t, did.Ed25519VerificationKey2020, vm.Type)

		_, ok = doc.FindVerificationMethod("key-1")
		require.True(t, ok)
	})

	t.Run("services", func(t *testing.T) {
		linked := doc.ServicesByType("LinkedDomains")
		require.Len(t, linked, 1)
		require.Equal(t, []string{"https://issuer.example"}, linked[0].URIs())

		hub := doc.ServicesByType("Hub")
		require.Len(t, hub, 1)
		require.Equal(t, []string{"https://hub.example"}, hub[0].URIs())
	})

	t.Run("keys", func(t *testing.T) {
		for _, id := range []string{"#key-1", "#auth-1"} {
			vm, ok := doc.FindVerificationMethod(id)
			require.True(t, ok)

			jwk, err := vm.JSONWebKey()
			require.NoError(t, err)
			require.IsType(t, ed25519.PublicKey{}, jwk.Key)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		res, err := did.NewDocResolution(doc)
		require.NoError(t, err)

		parsed, err := did.ParseDocResolution(res.Content)
		require.NoError(t, err)
		require.Equal(t, doc.ID, parsed.DIDDocument.ID)
		require.Len(t, parsed.DIDDocument.AssertionMethod, 2)

		assertion, err := parsed.AssertionMethodID()
		require.NoError(t, err)
		require.Equal(t, "did:example:123#key-1", assertion)
	})

	t.Run("resolution wrapper", func(t *testing.T) {
		res, err := did.ParseDocResolution([]byte(`{"didDocument":` + sampleDoc +
			`,"didDocumentMetadata":{"canonicalId":"did:example:123"}}`))
		require.NoError(t, err)
		require.Equal(t, "did:example:123", res.Metadata["canonicalId"])
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := did.ParseDocument([]byte(`{"verificationMethod":[]}`))
		require.ErrorContains(t, err, "has no id")
	})
}

func TestParse(t *testing.T) {
	d, err := did.Parse("did:web:example.com:user#key-1")
	require.NoError(t, err)
	require.Equal(t, "web", d.Method)
	require.Equal(t, "example.com:user", d.MethodSpecificID)
	require.Equal(t, "did:web:example.com:user", d.String())

	for _, invalid := range []string{"", "did:", "did:web", "notdid:web:x", "did:WEB:x"} {
		_, err = did.Parse(invalid)
		require.Error(t, err, invalid)
	}
}

func TestVerificationMethods(t *testing.T) {
	doc, err := did.ParseDocument([]byte(sampleDoc))
	require.NoError(t, err)

	t.Run("returns the verification methods", func(t *testing.T) {
		result, err := did.VerificationMethods(doc, did.AssertionMethod, did.Authentication)
		require.NoError(t, err)
		require.Len(t, result, 2)
		require.Equal(t, "did:example:123#key-1", result[0].ID)
		require.Equal(t, "#auth-1", result[1].ID)
	})

	t.Run("error if did doc does not have a given verification method relation", func(t *testing.T) {
		_, err := did.VerificationMethods(doc, did.KeyAgreement)
		require.Error(t, err)
		require.Contains(t, err.Error(), "does not have a verification method for relation keyAgreement")
	})
}

func TestFragments(t *testing.T) {
	t.Run("returns the fragment", func(t *testing.T) {
		expected := "key-1"
		result, err := did.Fragments("did:example:123#" + expected)
		require.NoError(t, err)
		require.Equal(t, []string{expected}, result)
	})

	t.Run("error if url does not have a fragment", func(t *testing.T) {
		_, err := did.Fragments("did:example:123")
		require.Error(t, err)
		require.Contains(t, err.Error(), "no fragment in url")
	})
}

func TestMultikey(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	for name, pub := range map[string]interface{}{"ed25519": edPub, "p256": &ecKey.PublicKey} {
		t.Run(name, func(t *testing.T) {
			encoded, err := did.EncodeMultikey(pub)
			require.NoError(t, err)
			require.Equal(t, byte('z'), encoded[0])

			decoded, err := did.DecodeMultikey(encoded)
			require.NoError(t, err)
			require.Equal(t, pub, decoded)
		})
	}

	t.Run("unsupported curve", func(t *testing.T) {
		p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		require.NoError(t, err)

		_, err = did.EncodeMultikey(&p384.PublicKey)
		require.ErrorIs(t, err, did.ErrUnsupportedKey)
	})
}

type stubResolver struct {
	doc *did.Doc
	err error
}

func (r *stubResolver) Resolve(_ context.Context, _ string) (*did.DocResolution, error) {
	if r.err != nil {
		return nil, r.err
	}

	return &did.DocResolution{DIDDocument: r.doc}, nil
}

func TestNewPublicKeyFetcher(t *testing.T) {
	doc, err := did.ParseDocument([]byte(sampleDoc))
	require.NoError(t, err)

	fetcher := did.NewPublicKeyFetcher(&stubResolver{doc: doc})

	t.Run("absolute kid", func(t *testing.T) {
		jwk, err := fetcher(context.Background(), "", "did:example:123#key-1")
		require.NoError(t, err)
		require.Equal(t, "did:example:123#key-1", jwk.KeyID)
	})

	t.Run("fragment resolved against issuer", func(t *testing.T) {
		jwk, err := fetcher(context.Background(), "did:example:123", "#auth-1")
		require.NoError(t, err)
		require.NotNil(t, jwk.Key)
	})

	t.Run("no kid uses assertion method", func(t *testing.T) {
		jwk, err := fetcher(context.Background(), "did:example:123", "")
		require.NoError(t, err)
		require.Equal(t, "did:example:123#key-1", jwk.KeyID)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := fetcher(context.Background(), "", "did:example:123#other")
		require.ErrorContains(t, err, "not found")
	})

	t.Run("not a DID", func(t *testing.T) {
		_, err := fetcher(context.Background(), "https://issuer.example", "key-1")
		require.ErrorContains(t, err, "not a DID URL")
	})

	t.Run("resolution failure", func(t *testing.T) {
		_, err := did.NewPublicKeyFetcher(&stubResolver{err: errors.New("offline")})(
			context.Background(), "", "did:example:123#key-1")
		require.ErrorContains(t, err, "offline")
	})
}
