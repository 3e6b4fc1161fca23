/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bitstring decodes the compressed bit arrays published in status list credentials.
package bitstring

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/multiformats/go-multibase"
)

const (
	bitsPerByte = 8
	one         = 0x1
	bitOffset   = 7

	// maxDecodedSize bounds the inflated list. 16MB covers a 131M entry list.
	maxDecodedSize = 16 << 20
)

// ErrInvalidPosition is returned for indexes outside the list.
var ErrInvalidPosition = errors.New("position is invalid")

// BitString is an uncompressed status list.
type BitString struct {
	bits              []byte
	multibaseEncoding multibase.Encoding
	bitPosition       func(position int) int
}

type Opt func(*options)

type options struct {
	multibaseEncoding multibase.Encoding
}

// WithMultibaseEncoding selects the BitstringStatusList representation: a multibase value with
// bits indexed left-to-right. Without it lists are unpadded base64url with bits indexed
// right-to-left as StatusList2021 and RevocationList2021 issuers produce them.
func WithMultibaseEncoding(value multibase.Encoding) Opt {
	return func(options *options) {
		options.multibaseEncoding = value
	}
}

// NewBitString returns a zeroed list able to hold length entries.
func NewBitString(length int, opts ...Opt) *BitString {
	size := 1 + ((length - 1) / bitsPerByte)

	return newBitString(make([]byte, size), opts)
}

func newBitString(bits []byte, opts []Opt) *BitString {
	o := &options{}

	for _, opt := range opts {
		opt(o)
	}

	b := &BitString{
		bits:              bits,
		multibaseEncoding: o.multibaseEncoding,
	}

	if o.multibaseEncoding != multibase.Encoding(0) {
		b.bitPosition = func(position int) int {
			return bitOffset - (position % bitsPerByte)
		}
	} else {
		b.bitPosition = func(position int) int {
			return position % bitsPerByte
		}
	}

	return b
}

// DecodeBits decodes and inflates an encoded list.
func DecodeBits(encodedBits string, opts ...Opt) (*BitString, error) {
	o := &options{}

	for _, opt := range opts {
		opt(o)
	}

	var (
		compressed []byte
		err        error
	)

	if o.multibaseEncoding != multibase.Encoding(0) {
		var encoding multibase.Encoding

		encoding, compressed, err = multibase.Decode(encodedBits)
		if err != nil {
			return nil, fmt.Errorf("decode multibase: %w", err)
		}

		if encoding != o.multibaseEncoding {
			return nil, fmt.Errorf("encoding not supported: %d", encoding)
		}
	} else {
		compressed, err = base64.RawURLEncoding.DecodeString(encodedBits)
		if err != nil {
			return nil, fmt.Errorf("decode base64url: %w", err)
		}
	}

	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}

	defer r.Close()

	buf := new(bytes.Buffer)
	if _, err = buf.ReadFrom(io.LimitReader(r, maxDecodedSize+1)); err != nil {
		return nil, fmt.Errorf("inflate list: %w", err)
	}

	if buf.Len() > maxDecodedSize {
		return nil, fmt.Errorf("status list exceeds %d bytes", maxDecodedSize)
	}

	return newBitString(buf.Bytes(), opts), nil
}

// Len returns the number of entries the list can address.
func (b *BitString) Len() int {
	return len(b.bits) * bitsPerByte
}

// Set flips the entry at position.
func (b *BitString) Set(position int, bitSet bool) error {
	if position < 0 || position/bitsPerByte > len(b.bits)-1 {
		return ErrInvalidPosition
	}

	nByte := position / bitsPerByte
	mask := byte(one << b.bitPosition(position))

	if bitSet {
		b.bits[nByte] |= mask
	} else {
		b.bits[nByte] &^= mask
	}

	return nil
}

// Get reports whether the entry at position is set.
func (b *BitString) Get(position int) (bool, error) {
	if position < 0 || position/bitsPerByte > len(b.bits)-1 {
		return false, ErrInvalidPosition
	}

	return b.bits[position/bitsPerByte]&(one<<b.bitPosition(position)) != 0, nil
}

// EncodeBits compresses and encodes the list in the representation it was created with.
func (b *BitString) EncodeBits() (string, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b.bits); err != nil {
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	if b.multibaseEncoding == multibase.Encoding(0) {
		return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
	}

	return multibase.Encode(b.multibaseEncoding, buf.Bytes())
}
