/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/jsonld"
)

// TestContextURL is a preloaded context mapping every term into an example vocabulary.
const TestContextURL = "https://example.org/walletcore/test/v1"

// DocumentLoader returns an offline document loader with the test context preloaded.
func DocumentLoader(t *testing.T, extraContexts ...jsonld.ContextDocument) *jsonld.DocumentLoader {
	t.Helper()

	testContexts := []jsonld.ContextDocument{
		{
			URL: TestContextURL,
			Content: []byte(`{"@context": {
				"@vocab": "https://example.org/walletcore/vocab#",
				"id": "@id",
				"type": "@type"
			}}`),
		},
	}

	loader, err := jsonld.NewDocumentLoader(
		jsonld.WithRemoteDisabled(),
		jsonld.WithExtraContexts(append(testContexts, extraContexts...)...),
	)
	require.NoError(t, err)

	return loader
}
