/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/pkg/did/web"
)

func TestDocumentURL(t *testing.T) {
	for didWeb, expected := range map[string]string{
		"did:web:w3c-ccg.github.io":             "https://w3c-ccg.github.io/.well-known/did.json",
		"did:web:w3c-ccg.github.io:user:alice":  "https://w3c-ccg.github.io/user/alice/did.json",
		"did:web:example.com%3A3000:user:alice": "https://example.com:3000/user/alice/did.json",
		"did:web:example.com#key-1":             "https://example.com/.well-known/did.json",
	} {
		got, err := web.DocumentURL(didWeb)
		require.NoError(t, err)
		require.Equal(t, expected, got)
	}

	_, err := web.DocumentURL("did:key:z6Mk")
	require.ErrorContains(t, err, "invalid DID")

	_, err = web.DocumentURL("did:web:example.com::x")
	require.ErrorContains(t, err, "invalid path")
}

func TestVDR_Read(t *testing.T) {
	var docID string

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/did.json":
			_, _ = fmt.Fprintf(w, `{"id":%q,"verificationMethod":[]}`, docID)
		case "/mismatch/did.json":
			_, _ = w.Write([]byte(`{"id":"did:web:other.example"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	host := strings.ReplaceAll(u.Host, ":", "%3A")
	docID = "did:web:" + host

	vdr := web.New(httputil.NewClient(srv.Client()))

	t.Run("success", func(t *testing.T) {
		res, err := vdr.Read(context.Background(), docID)
		require.NoError(t, err)
		require.Equal(t, docID, res.DIDDocument.ID)
	})

	t.Run("id mismatch", func(t *testing.T) {
		_, err := vdr.Read(context.Background(), docID+":mismatch")
		require.ErrorContains(t, err, "does not match")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := vdr.Read(context.Background(), docID+":missing")
		require.ErrorContains(t, err, "got status code 404")
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := web.New(nil).Read(context.Background(), "did:web:127.0.0.1%3A1")
		require.ErrorIs(t, err, httputil.ErrUnreachable)
	})
}
