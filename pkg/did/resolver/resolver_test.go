/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resolver_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/pkg/did"
	"github.com/trustbloc/walletcore/pkg/did/key"
	"github.com/trustbloc/walletcore/pkg/did/resolver"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

type countingMethod struct {
	calls int
	err   error
}

func (m *countingMethod) Read(_ context.Context, id string) (*did.DocResolution, error) {
	m.calls++

	if m.err != nil {
		return nil, m.err
	}

	return did.NewDocResolution(&did.Doc{ID: id})
}

func TestResolver(t *testing.T) {
	t.Run("did:key", func(t *testing.T) {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		created, err := key.New().Create(pub)
		require.NoError(t, err)

		res, err := resolver.New().Resolve(context.Background(), created.DIDDocument.ID)
		require.NoError(t, err)
		require.Equal(t, created.DIDDocument.ID, res.DIDDocument.ID)
	})

	t.Run("cached", func(t *testing.T) {
		m := &countingMethod{}
		r := resolver.New(resolver.WithMethod("example", m))

		for i := 0; i < 3; i++ {
			res, err := r.Resolve(context.Background(), "did:example:123#key-1")
			require.NoError(t, err)
			require.Equal(t, "did:example:123", res.DIDDocument.ID)
		}

		require.Equal(t, 1, m.calls)
	})

	t.Run("cache disabled", func(t *testing.T) {
		m := &countingMethod{}
		r := resolver.New(resolver.WithMethod("example", m), resolver.WithCache(0, time.Minute))

		for i := 0; i < 2; i++ {
			_, err := r.Resolve(context.Background(), "did:example:123")
			require.NoError(t, err)
		}

		require.Equal(t, 2, m.calls)
	})

	t.Run("method failure", func(t *testing.T) {
		m := &countingMethod{err: errors.New("registry down")}

		_, err := resolver.New(resolver.WithMethod("example", m)).Resolve(context.Background(), "did:example:123")
		require.ErrorContains(t, err, "registry down")
		require.True(t, walleterror.HasCode(err, walleterror.DIDResolutionError))
	})

	t.Run("unsupported method", func(t *testing.T) {
		_, err := resolver.New().Resolve(context.Background(), "did:ion:123")
		require.ErrorContains(t, err, "unsupported DID method")
		require.True(t, walleterror.HasCode(err, walleterror.DIDResolutionError))
	})

	t.Run("invalid DID", func(t *testing.T) {
		_, err := resolver.New().Resolve(context.Background(), "not-a-did")
		require.True(t, walleterror.HasCode(err, walleterror.DIDResolutionError))
	})

	t.Run("resolver server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/1.0/identifiers/did:ion:123" {
				w.WriteHeader(http.StatusNotFound)

				return
			}

			_, _ = w.Write([]byte(`{"didDocument":{"id":"did:ion:123"},"didDocumentMetadata":{}}`))
		}))
		defer srv.Close()

		r := resolver.New(
			resolver.WithHTTPClient(httputil.NewClient(srv.Client())),
			resolver.WithResolverServerURI(srv.URL+"/1.0/identifiers/"),
		)

		res, err := r.Resolve(context.Background(), "did:ion:123")
		require.NoError(t, err)
		require.Equal(t, "did:ion:123", res.DIDDocument.ID)

		_, err = r.Resolve(context.Background(), "did:ion:456")
		require.ErrorContains(t, err, "got status code 404")
	})
}
