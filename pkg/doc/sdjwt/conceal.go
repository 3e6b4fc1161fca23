/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwt

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
)

const saltSize = 16

// Conceal replaces the named properties of obj with SHA-256 digests under "_sd" and returns
// the disclosures that reveal them. Missing names are ignored.
func Conceal(obj map[string]interface{}, names ...string) ([]*Disclosure, error) {
	var (
		disclosures []*Disclosure
		digests     []interface{}
	)

	if existing, ok := obj[SDKey].([]interface{}); ok {
		digests = existing
	}

	for _, name := range names {
		value, ok := obj[name]
		if !ok {
			continue
		}

		salt, err := newSalt()
		if err != nil {
			return nil, err
		}

		d, err := NewDisclosure(salt, name, value)
		if err != nil {
			return nil, err
		}

		digest, err := d.Digest(defaultSDAlg)
		if err != nil {
			return nil, err
		}

		delete(obj, name)

		disclosures = append(disclosures, d)
		digests = append(digests, digest)
	}

	if len(digests) > 0 {
		sort.Slice(digests, func(i, j int) bool {
			return digests[i].(string) < digests[j].(string)
		})

		obj[SDKey] = digests
	}

	return disclosures, nil
}

// Combine builds the combined format of an issuer-signed JWT and its disclosures.
func Combine(signedJWT string, disclosures []*Disclosure) string {
	cf := &CombinedFormat{SDJWT: signedJWT}

	for _, d := range disclosures {
		cf.Disclosures = append(cf.Disclosures, d.Encoded)
	}

	return cf.Serialize()
}

func newSalt() (string, error) {
	b := make([]byte, saltSize)

	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
