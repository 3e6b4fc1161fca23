/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kms_test

import (
	"context"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/doc/jwt"
	"github.com/trustbloc/walletcore/pkg/kms"
)

func TestLocalKMS(t *testing.T) {
	for _, keyType := range kms.SupportedKeyTypes() {
		t.Run(string(keyType), func(t *testing.T) {
			store := kms.NewLocalKMS()

			key, err := store.Create(keyType)
			require.NoError(t, err)
			require.Equal(t, keyType, key.Type())

			got, err := store.Get(key.ID())
			require.NoError(t, err)
			require.Equal(t, key, got)

			const kid = "did:example:holder#key-1"

			require.NoError(t, store.Bind(kid, key.ID()))

			signer, err := store.Signer(kid)
			require.NoError(t, err)
			require.Equal(t, kid, signer.KeyID())

			token, err := jwt.Sign(signer, map[string]interface{}{"iss": "did:example:holder"})
			require.NoError(t, err)

			parsed, err := jwt.Parse(token, jwt.WithPublicKeyFetcher(
				func(_ context.Context, _, keyID string) (*jose.JSONWebKey, error) {
					require.Equal(t, kid, keyID)

					return signer.Public(), nil
				}))
			require.NoError(t, err)
			require.Equal(t, "did:example:holder", parsed.Payload["iss"])
		})
	}

	t.Run("unsupported key type", func(t *testing.T) {
		_, err := kms.NewLocalKMS().Create("RSA")
		require.ErrorContains(t, err, "unsupported key type")
	})

	t.Run("unknown key", func(t *testing.T) {
		store := kms.NewLocalKMS()

		_, err := store.Get("missing")
		require.ErrorIs(t, err, kms.ErrKeyNotFound)

		require.ErrorIs(t, store.Bind("did:example:1#k", "missing"), kms.ErrKeyNotFound)

		_, err = store.Signer("did:example:1#k")
		require.ErrorIs(t, err, kms.ErrKeyNotFound)
	})

	t.Run("algorithm mismatch", func(t *testing.T) {
		key, err := kms.NewLocalKMS().Create(kms.ED25519)
		require.NoError(t, err)

		_, err = key.SignPayload([]byte("data"), jose.ES256)
		require.ErrorContains(t, err, "cannot sign with")
	})
}
