/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/doc/sdjwt"
)

func TestParse(t *testing.T) {
	t.Run("issuance form", func(t *testing.T) {
		cf, err := sdjwt.Parse("a.b.c~d1~d2~")
		require.NoError(t, err)
		require.Equal(t, "a.b.c", cf.SDJWT)
		require.Equal(t, []string{"d1", "d2"}, cf.Disclosures)
		require.Empty(t, cf.KeyBinding)
		require.Equal(t, "a.b.c~d1~d2~", cf.Serialize())
	})

	t.Run("without trailing separator", func(t *testing.T) {
		cf, err := sdjwt.Parse("a.b.c~d1")
		require.NoError(t, err)
		require.Equal(t, []string{"d1"}, cf.Disclosures)
	})

	t.Run("key binding", func(t *testing.T) {
		cf, err := sdjwt.Parse("a.b.c~d1~x.y.z")
		require.NoError(t, err)
		require.Equal(t, []string{"d1"}, cf.Disclosures)
		require.Equal(t, "x.y.z", cf.KeyBinding)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := sdjwt.Parse("~d1")
		require.ErrorContains(t, err, "empty SD-JWT")

		_, err = sdjwt.Parse("a.b.c~~d1~")
		require.ErrorContains(t, err, "empty disclosure")
	})
}

func TestParseDisclosure(t *testing.T) {
	// Example from the SD-JWT draft.
	d, err := sdjwt.ParseDisclosure("WyI2cU1RdlJMNWhhaiIsICJmYW1pbHlfbmFtZSIsICJNw7ZiaXVzIl0")
	require.NoError(t, err)
	require.Equal(t, "6qMQvRL5haj", d.Salt)
	require.Equal(t, "family_name", d.Name)
	require.Equal(t, "Möbius", d.Value)

	digest, err := d.Digest("sha-256")
	require.NoError(t, err)
	require.Equal(t, "uutlBuYeMDyjLLTpf6Jxi7yNkEF35jdyWMn9U7b_RYY", digest)

	_, err = d.Digest("md5")
	require.ErrorContains(t, err, "not supported")

	_, err = sdjwt.ParseDisclosure("!!")
	require.ErrorContains(t, err, "decode disclosure")

	_, err = sdjwt.ParseDisclosure("WyJvbmx5Il0")
	require.ErrorContains(t, err, "must be 2 or 3")
}

func TestRestoreClaims(t *testing.T) {
	subject := map[string]interface{}{
		"id":         "did:example:holder",
		"given_name": "Alice",
		"degree":     map[string]interface{}{"type": "BachelorDegree"},
	}

	disclosures, err := sdjwt.Conceal(subject, "given_name", "degree", "missing")
	require.NoError(t, err)
	require.Len(t, disclosures, 2)
	require.NotContains(t, subject, "given_name")
	require.Len(t, subject[sdjwt.SDKey], 2)

	nationality, err := sdjwt.NewArrayElementDisclosure("salt-1", "DE")
	require.NoError(t, err)

	nationalityDigest, err := nationality.Digest("")
	require.NoError(t, err)

	subject["nationalities"] = []interface{}{
		map[string]interface{}{"...": nationalityDigest},
		"FR",
	}

	claims := map[string]interface{}{
		"iss":                "did:example:issuer",
		sdjwt.SDAlgorithmKey: "sha-256",
		"vc":                 map[string]interface{}{"credentialSubject": subject},
	}

	all := []string{disclosures[0].Encoded, disclosures[1].Encoded, nationality.Encoded}

	t.Run("all disclosed", func(t *testing.T) {
		restored, err := sdjwt.RestoreClaims(claims, all)
		require.NoError(t, err)
		require.NotContains(t, restored, sdjwt.SDAlgorithmKey)

		s := restored["vc"].(map[string]interface{})["credentialSubject"].(map[string]interface{})
		require.Equal(t, "Alice", s["given_name"])
		require.Equal(t, map[string]interface{}{"type": "BachelorDegree"}, s["degree"])
		require.Equal(t, []interface{}{"DE", "FR"}, s["nationalities"])
		require.NotContains(t, s, sdjwt.SDKey)

		require.Contains(t, subject, sdjwt.SDKey, "input must not be modified")
	})

	t.Run("partially disclosed", func(t *testing.T) {
		restored, err := sdjwt.RestoreClaims(claims, all[:1])
		require.NoError(t, err)

		s := restored["vc"].(map[string]interface{})["credentialSubject"].(map[string]interface{})
		require.Len(t, s, 3)
		require.Equal(t, []interface{}{"FR"}, s["nationalities"])
	})

	t.Run("unknown disclosure", func(t *testing.T) {
		other, err := sdjwt.NewDisclosure("salt", "name", "value")
		require.NoError(t, err)

		_, err = sdjwt.RestoreClaims(claims, []string{other.Encoded})
		require.ErrorContains(t, err, "not found in SD-JWT disclosure digests")
	})

	t.Run("duplicate claim name", func(t *testing.T) {
		dup, err := sdjwt.NewDisclosure("salt", "id", "did:example:other")
		require.NoError(t, err)

		digest, err := dup.Digest("")
		require.NoError(t, err)

		_, err = sdjwt.RestoreClaims(map[string]interface{}{
			"id":        "did:example:holder",
			sdjwt.SDKey: []interface{}{digest},
		}, []string{dup.Encoded})
		require.ErrorContains(t, err, "already exists")
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := sdjwt.RestoreClaims(map[string]interface{}{sdjwt.SDAlgorithmKey: "md5"}, all)
		require.ErrorContains(t, err, "not supported")
	})
}

func TestCombine(t *testing.T) {
	d, err := sdjwt.NewDisclosure("salt", "name", "value")
	require.NoError(t, err)

	combined := sdjwt.Combine("a.b.c", []*sdjwt.Disclosure{d})
	require.True(t, sdjwt.IsSDJWT(combined))

	cf, err := sdjwt.Parse(combined)
	require.NoError(t, err)
	require.Equal(t, []string{d.Encoded}, cf.Disclosures)
}
