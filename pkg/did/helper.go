/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"github.com/trustbloc/walletcore/pkg/doc/jwt"
)

// VerificationMethods returns the first verification method encountered for all relations in the same given order.
// At least one relation must be provided.
func VerificationMethods(d *Doc, relations ...VerificationRelationship) ([]*VerificationMethod, error) {
	vm := make([]*VerificationMethod, 0, len(relations))

	for _, relation := range relations {
		methods := d.VerificationMethods(relation)

		if len(methods) == 0 {
			return nil, fmt.Errorf("did %s does not have a verification method for relation %s", d.ID, relation)
		}

		vm = append(vm, methods[0])
	}

	return vm, nil
}

// Fragments parses each url and returns the fragments in the same order.
func Fragments(didURLs ...string) ([]string, error) {
	f := make([]string, len(didURLs))

	for i, didURL := range didURLs {
		u, err := url.Parse(didURL)
		if err != nil {
			return nil, fmt.Errorf("not a URL: %s", didURL)
		}

		if u.Fragment == "" {
			return nil, fmt.Errorf("no fragment in url %s", didURL)
		}

		f[i] = u.Fragment
	}

	return f, nil
}

// NewPublicKeyFetcher returns a JWS key fetcher backed by DID resolution. A kid that is a bare
// fragment is resolved against the issuer DID; a kid without a fragment selects the first
// assertion method of the DID it names.
func NewPublicKeyFetcher(r Resolver) jwt.PublicKeyFetcher {
	return func(ctx context.Context, issuer, kid string) (*jose.JSONWebKey, error) {
		didURL := kid

		switch {
		case kid == "":
			didURL = issuer
		case strings.HasPrefix(kid, "#"):
			didURL = StripDIDURL(issuer) + kid
		}

		if !strings.HasPrefix(didURL, "did:") {
			return nil, fmt.Errorf("key id %q is not a DID URL", kid)
		}

		res, err := r.Resolve(ctx, StripDIDURL(didURL))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", StripDIDURL(didURL), err)
		}

		var vm *VerificationMethod

		if strings.Contains(didURL, "#") {
			found, ok := res.DIDDocument.FindVerificationMethod(didURL)
			if !ok {
				return nil, fmt.Errorf("verification method %s not found", didURL)
			}

			vm = found
		} else {
			methods, vmErr := VerificationMethods(res.DIDDocument, AssertionMethod)
			if vmErr != nil {
				return nil, vmErr
			}

			vm = methods[0]
		}

		return vm.JSONWebKey()
	}
}
