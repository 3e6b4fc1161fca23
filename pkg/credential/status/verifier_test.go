/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/credential/status"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/doc/vc/bitstring"
	"github.com/trustbloc/walletcore/pkg/internal/testutil"
	"github.com/trustbloc/walletcore/pkg/kms"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const (
	revokedIndex = 5
	listSize     = 1024
)

type statusServer struct {
	*httptest.Server

	mu    sync.Mutex
	lists map[string]string
	hits  map[string]int
}

func newStatusServer(t *testing.T) *statusServer {
	t.Helper()

	s := &statusServer{lists: map[string]string{}, hits: map[string]int{}}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.hits[r.URL.Path]++

		list, ok := s.lists[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write([]byte(list))
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *statusServer) publish(path, list string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[path] = list

	return s.URL + path
}

func encodedList(t *testing.T, opts ...bitstring.Opt) string {
	t.Helper()

	bits := bitstring.NewBitString(listSize, opts...)
	require.NoError(t, bits.Set(revokedIndex, true))

	encoded, err := bits.EncodeBits()
	require.NoError(t, err)

	return encoded
}

func listVC(t *testing.T, issuer *testutil.Issuer, listURL, vcType, subjectType, purpose, encoded string) string {
	t.Helper()

	subject := map[string]interface{}{"type": subjectType, "encodedList": encoded}
	if purpose != "" {
		subject["statusPurpose"] = purpose
	}

	return issuer.JWTVC(t, issuer.CredentialDoc(listURL+"#list", []string{vcType}, subject))
}

func holderVC(t *testing.T, issuer *testutil.Issuer, entry map[string]interface{}) *credential.Credential {
	t.Helper()

	doc := issuer.CredentialDoc("did:example:holder", []string{"UniversityDegreeCredential"}, nil)
	if entry != nil {
		doc["credentialStatus"] = entry
	}

	vc, err := credential.Parse(issuer.JWTVC(t, doc))
	require.NoError(t, err)

	return vc
}

func TestVerifier_Verify(t *testing.T) {
	issuer := testutil.NewIssuer(t, kms.ED25519)
	srv := newStatusServer(t)

	sl2021 := srv.publish("/status/2021", "")
	srv.publish("/status/2021", listVC(t, issuer, sl2021, "StatusList2021Credential",
		status.StatusList2021Type, "revocation", encodedList(t)))

	suspension := srv.publish("/status/suspension", "")
	srv.publish("/status/suspension", listVC(t, issuer, suspension, "StatusList2021Credential",
		status.StatusList2021Type, "suspension", encodedList(t)))

	rl2021 := srv.publish("/status/rl2021", "")
	srv.publish("/status/rl2021", listVC(t, issuer, rl2021, "RevocationList2021Credential",
		status.RevocationList2021Type, "", encodedList(t)))

	bitstringList := srv.publish("/status/bitstring", "")
	srv.publish("/status/bitstring", listVC(t, issuer, bitstringList, "BitstringStatusListCredential",
		status.BitstringStatusListType, "revocation", encodedList(t, bitstring.WithMultibaseEncoding(multibase.Base64url))))

	verifier := status.NewVerifier(status.WithHTTPClient(httputil.NewClient(srv.Client())))

	entry := func(entryType, listURL, purpose string, index int) map[string]interface{} {
		e := map[string]interface{}{
			"id":                   listURL + "#1",
			"type":                 entryType,
			"statusListIndex":      index,
			"statusListCredential": listURL,
		}

		if purpose != "" {
			e["statusPurpose"] = purpose
		}

		return e
	}

	tests := []struct {
		name  string
		entry map[string]interface{}
		code  walleterror.Code
	}{
		{name: "no status", entry: nil},
		{name: "StatusList2021 valid", entry: entry(status.StatusList2021Entry, sl2021, "revocation", 1)},
		{
			name:  "StatusList2021 revoked",
			entry: entry(status.StatusList2021Entry, sl2021, "revocation", revokedIndex),
			code:  walleterror.CredentialRevokedError,
		},
		{
			name:  "StatusList2021 suspended",
			entry: entry(status.StatusList2021Entry, suspension, "suspension", revokedIndex),
			code:  walleterror.CredentialRevokedError,
		},
		{name: "RevocationList2021 valid", entry: entry(status.RevocationList2021Status, rl2021, "", 2)},
		{
			name:  "RevocationList2021 revoked",
			entry: entry(status.RevocationList2021Status, rl2021, "", revokedIndex),
			code:  walleterror.CredentialRevokedError,
		},
		{name: "Bitstring valid", entry: entry(status.BitstringStatusListEntry, bitstringList, "revocation", 4)},
		{
			name:  "Bitstring revoked",
			entry: entry(status.BitstringStatusListEntry, bitstringList, "revocation", revokedIndex),
			code:  walleterror.CredentialRevokedError,
		},
		{
			name:  "purpose mismatch",
			entry: entry(status.StatusList2021Entry, sl2021, "suspension", 1),
			code:  walleterror.StatusListMismatchError,
		},
		{
			name:  "list type mismatch",
			entry: entry(status.BitstringStatusListEntry, sl2021, "revocation", 1),
			code:  walleterror.StatusListMismatchError,
		},
		{
			name:  "index out of range",
			entry: entry(status.StatusList2021Entry, sl2021, "revocation", listSize),
			code:  walleterror.StatusResolutionError,
		},
		{
			name:  "missing purpose",
			entry: entry(status.StatusList2021Entry, sl2021, "", 1),
			code:  walleterror.StatusResolutionError,
		},
		{
			name:  "unsupported type",
			entry: entry("CredentialStatusList2017", sl2021, "", 1),
			code:  walleterror.StatusResolutionError,
		},
		{
			name:  "list not found",
			entry: entry(status.StatusList2021Entry, srv.URL+"/status/missing", "revocation", 1),
			code:  walleterror.StatusResolutionError,
		},
		{
			name:  "list unreachable",
			entry: entry(status.StatusList2021Entry, "http://127.0.0.1:1/status", "revocation", 1),
			code:  walleterror.StatusResolutionError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := verifier.Verify(context.Background(), holderVC(t, issuer, tc.entry))
			if tc.code == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			require.Equal(t, tc.code, walleterror.CodeOf(err), err)
		})
	}

	t.Run("status lists are cached", func(t *testing.T) {
		srv.mu.Lock()
		hits := srv.hits["/status/2021"]
		srv.mu.Unlock()

		require.NoError(t, verifier.Verify(context.Background(),
			holderVC(t, issuer, entry(status.StatusList2021Entry, sl2021, "revocation", 1))))

		srv.mu.Lock()
		require.Equal(t, hits, srv.hits["/status/2021"])
		srv.mu.Unlock()
	})

	t.Run("expired", func(t *testing.T) {
		doc := issuer.CredentialDoc("did:example:holder", nil, nil)
		doc["expirationDate"] = time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)

		vc, err := credential.Parse(issuer.JWTVC(t, doc))
		require.NoError(t, err)

		require.True(t, walleterror.HasCode(verifier.Verify(context.Background(), vc),
			walleterror.CredentialExpiredError))
	})

	t.Run("nil credential", func(t *testing.T) {
		require.True(t, walleterror.HasCode(verifier.Verify(context.Background(), nil),
			walleterror.InvalidArgumentError))
	})
}

type serviceResolver struct {
	doc *did.Doc
}

func (r *serviceResolver) Resolve(context.Context, string) (*did.DocResolution, error) {
	return &did.DocResolution{DIDDocument: r.doc}, nil
}

func TestVerifier_DIDURLStatusList(t *testing.T) {
	issuer := testutil.NewIssuer(t, kms.ED25519)
	srv := newStatusServer(t)

	listURL := srv.publish("/status/did", "")
	srv.publish("/status/did", listVC(t, issuer, listURL, "StatusList2021Credential",
		status.StatusList2021Type, "revocation", encodedList(t)))

	endpoint, err := json.Marshal(listURL)
	require.NoError(t, err)

	doc := *issuer.Doc.DIDDocument
	doc.Service = []did.Service{{ID: "#status", Type: "StatusList", ServiceEndpoint: endpoint}}

	verifier := status.NewVerifier(
		status.WithHTTPClient(httputil.NewClient(srv.Client())),
		status.WithDIDResolver(&serviceResolver{doc: &doc}),
		status.WithCache(0, 0),
	)

	vc := holderVC(t, issuer, map[string]interface{}{
		"type":                 status.StatusList2021Entry,
		"statusPurpose":        "revocation",
		"statusListIndex":      "7",
		"statusListCredential": issuer.DID + "#status",
	})

	require.NoError(t, verifier.Verify(context.Background(), vc))

	vc = holderVC(t, issuer, map[string]interface{}{
		"type":                 status.StatusList2021Entry,
		"statusPurpose":        "revocation",
		"statusListIndex":      "1",
		"statusListCredential": issuer.DID + "#unknown",
	})

	require.True(t, walleterror.HasCode(verifier.Verify(context.Background(), vc), walleterror.StatusResolutionError))
}
