/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package qrcode_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/walletcore/pkg/qrcode"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const offer = "openid-credential-offer://?credential_offer_uri=https%3A%2F%2Fissuer.example.com%2Foffers%2F42"

func TestRoundTrip(t *testing.T) {
	img, err := qrcode.Encode(offer, 0)
	require.NoError(t, err)

	text, err := qrcode.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	require.Equal(t, offer, text)

	t.Run("base64", func(t *testing.T) {
		text, err = qrcode.DecodeBase64(base64.StdEncoding.EncodeToString(img))
		require.NoError(t, err)
		require.Equal(t, offer, text)
	})

	t.Run("data URL", func(t *testing.T) {
		text, err = qrcode.DecodeBase64("data:image/png;base64," + base64.StdEncoding.EncodeToString(img))
		require.NoError(t, err)
		require.Equal(t, offer, text)
	})
}

func TestDecode_Errors(t *testing.T) {
	_, err := qrcode.Decode(bytes.NewReader([]byte("not an image")))
	require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError))

	_, err = qrcode.DecodeBase64("%%%")
	require.True(t, walleterror.HasCode(err, walleterror.InvalidArgumentError))
}
