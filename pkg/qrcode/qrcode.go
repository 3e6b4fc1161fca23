/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package qrcode reads credential offers and authorization requests from QR code images.
package qrcode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoding
	"image/png"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	gozxingqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/trustbloc/walletcore/pkg/walleterror"
)

const defaultSize = 256

// Decode returns the text of the QR code in a PNG or JPEG image.
func Decode(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", invalidImage(fmt.Errorf("decode image: %w", err))
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", invalidImage(fmt.Errorf("create bitmap from image: %w", err))
	}

	result, err := gozxingqr.NewQRCodeReader().Decode(bitmap, nil)
	if err != nil {
		return "", invalidImage(fmt.Errorf("decode bitmap: %w", err))
	}

	return result.GetText(), nil
}

// DecodeBase64 decodes an image given in standard base64, optionally as a data URL.
func DecodeBase64(s string) (string, error) {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i > 0 {
		s = s[i+len(";base64,"):]
	}

	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return "", invalidImage(fmt.Errorf("decode base64 image: %w", err))
	}

	return Decode(bytes.NewReader(b))
}

// Encode renders text as a square PNG QR code. A size of zero selects the default.
func Encode(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultSize
	}

	matrix, err := gozxingqr.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	var buf bytes.Buffer

	if err = png.Encode(&buf, matrix); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

func invalidImage(err error) error {
	return walleterror.New(walleterror.InvalidArgumentError, err).WithOperation("decodeQRCode")
}
